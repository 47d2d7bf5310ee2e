package circuit_test

import "github.com/fyerfyer/logic-blocks/pkg/circuit"

// Helper: the two-input AND-then-OR board of the first puzzle level
func createPuzzleCircuit() *circuit.Circuit {
	c := circuit.NewCircuit("logic_blocks")
	c.AddInput(circuit.NewInputNode(1, 50, 100))
	c.AddInput(circuit.NewInputNode(2, 50, 200))
	c.AddGate(circuit.NewGate(1, circuit.AND, 250, 150))
	c.AddGate(circuit.NewGate(2, circuit.OR, 450, 150))
	return c
}

// Helper: a single gate of the given type fed by inputs 1 and 2
func createSingleGateCircuit(gateType circuit.GateType) *circuit.Circuit {
	c := circuit.NewCircuit("single")
	c.AddInput(circuit.NewInputNode(1, 0, 0))
	c.AddInput(circuit.NewInputNode(2, 0, 0))
	c.AddGate(circuit.NewGate(1, gateType, 0, 0))
	for slot := 0; slot < gateType.Arity(); slot++ {
		c.Connections = append(c.Connections, circuit.Connect(circuit.FromInput(slot+1), 1, slot))
	}
	return c
}

func setInputs(c *circuit.Circuit, values ...bool) {
	for i, v := range values {
		c.Inputs[i].Value = v
	}
}
