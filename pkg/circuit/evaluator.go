package circuit

import (
	"fmt"
	"strings"
)

// Mode selects how gate-to-gate edges are resolved during a pass
type Mode int

const (
	// Settled evaluates gates in topological order so one call yields a
	// fully settled result for acyclic wiring
	Settled Mode = iota
	// SinglePass evaluates gates in declaration order and reads the
	// previous-pass output of every source gate
	SinglePass
)

// String returns a string representation of the mode
func (m Mode) String() string {
	switch m {
	case Settled:
		return "settled"
	case SinglePass:
		return "single-pass"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "settled":
		return Settled, nil
	case "single-pass", "singlepass", "legacy":
		return SinglePass, nil
	default:
		return 0, fmt.Errorf("unknown evaluation mode: %q", name)
	}
}

// Result is the outcome of one evaluation pass
type Result struct {
	Gates  []Gate
	Output bool
}

// Evaluate recomputes every gate's slots and output from scratch. The
// circuit is not modified. Unconnected slots and references to missing
// nodes or gates resolve to false; evaluation never fails.
func Evaluate(c *Circuit, mode Mode) Result {
	gates := make([]Gate, len(c.Gates))
	index := make(map[int][]int, len(c.Gates))
	previous := make(map[int]bool, len(c.Gates))
	current := make(map[int]bool, len(c.Gates))

	for i, gate := range c.Gates {
		gates[i] = gate.Clone()
		index[gate.ID] = append(index[gate.ID], i)
		previous[gate.ID] = gate.Output
		current[gate.ID] = gate.Output
	}

	// order holds positions in c.Gates; a hand-built circuit may reuse an
	// ID and every gate carrying it is still evaluated
	order := make([]int, 0, len(c.Gates))
	if mode == Settled {
		topo := NewTopology(c)
		topo.Analyze()
		done := make(map[int]bool, len(topo.Order))
		for _, id := range topo.Order {
			if done[id] {
				continue
			}
			done[id] = true
			order = append(order, index[id]...)
		}
	} else {
		for i := range c.Gates {
			order = append(order, i)
		}
	}

	for _, i := range order {
		gate := &gates[i]
		resolved := make([]bool, gate.Arity())

		for slot := range resolved {
			resolved[slot] = resolveSlot(c, gate.ID, slot, mode, previous, current)
		}

		gate.Slots = make([]LogicValue, len(resolved))
		for slot, v := range resolved {
			gate.Slots[slot] = FromBool(v)
		}
		gate.Output = gate.Type.Apply(resolved)
		current[gate.ID] = gate.Output
	}

	result := Result{Gates: gates}
	if len(gates) > 0 {
		result.Output = gates[len(gates)-1].Output
	}
	return result
}

// resolveSlot follows the effective driver of one slot
func resolveSlot(c *Circuit, gateID, slot int, mode Mode, previous, current map[int]bool) bool {
	conn, ok := c.Driver(gateID, slot)
	if !ok {
		return false
	}

	switch conn.Source.Kind {
	case InputSource:
		node, exists := c.Input(conn.Source.ID)
		return exists && node.Value
	case GateSource:
		if mode == SinglePass {
			return previous[conn.Source.ID]
		}
		return current[conn.Source.ID]
	default:
		return false
	}
}

// Evaluate runs a pass in the given mode, stores the result and returns the
// terminal output
func (c *Circuit) Evaluate(mode Mode) bool {
	result := Evaluate(c, mode)
	c.Apply(result)
	return result.Output
}
