package algorithm

import (
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// Implication derives three-valued gate outputs from a partial input
// assignment. Unassigned inputs are X; unconnected slots read as 0.
type Implication struct {
	Circuit *circuit.Circuit
	Logger  *utils.Logger
	Topo    *circuit.Topology
	Inputs  map[int]circuit.LogicValue // Input node ID to assigned value
	Values  map[int]circuit.LogicValue // Gate ID to implied output
}

// NewImplication creates a new Implication manager
func NewImplication(c *circuit.Circuit, t *circuit.Topology, logger *utils.Logger) *Implication {
	i := &Implication{
		Circuit: c,
		Logger:  logger,
		Topo:    t,
	}
	i.Reset()
	return i
}

// Reset unassigns every input and clears implied values
func (i *Implication) Reset() {
	i.Inputs = make(map[int]circuit.LogicValue, len(i.Circuit.Inputs))
	for _, in := range i.Circuit.Inputs {
		i.Inputs[in.ID] = circuit.X
	}
	i.Values = make(map[int]circuit.LogicValue, len(i.Circuit.Gates))
}

// Assign sets an input node to a value
func (i *Implication) Assign(id int, value circuit.LogicValue) {
	i.Inputs[id] = value
	i.Logger.Trace("Setting in%d = %v", id, value)
}

// Unassign returns an input node to X
func (i *Implication) Unassign(id int) {
	i.Inputs[id] = circuit.X
}

// ImplyValues recomputes every gate output in topological order
func (i *Implication) ImplyValues() {
	i.Logger.Implication("Starting implication process")
	i.Logger.Indent()
	defer i.Logger.Outdent()

	for _, id := range i.Topo.Order {
		gate, ok := i.Circuit.Gate(id)
		if !ok {
			continue
		}

		in := make([]circuit.LogicValue, gate.Arity())
		for slot := range in {
			in[slot] = i.SlotValue(id, slot)
		}
		i.Values[id] = gate.Type.Evaluate(in)
		i.Logger.Implication("%s%v = %v", gate, in, i.Values[id])
	}
}

// SlotValue returns the implied value arriving at a gate slot
func (i *Implication) SlotValue(gateID, slot int) circuit.LogicValue {
	conn, ok := i.Circuit.Driver(gateID, slot)
	if !ok {
		return circuit.Zero
	}

	switch conn.Source.Kind {
	case circuit.InputSource:
		if v, exists := i.Inputs[conn.Source.ID]; exists {
			return v
		}
	case circuit.GateSource:
		if v, exists := i.Values[conn.Source.ID]; exists {
			return v
		}
	}
	return circuit.Zero
}

// TerminalValue returns the implied circuit output
func (i *Implication) TerminalValue() circuit.LogicValue {
	terminal, ok := i.Circuit.Terminal()
	if !ok {
		return circuit.Zero
	}
	if v, exists := i.Values[terminal.ID]; exists {
		return v
	}
	return circuit.X
}
