package algorithm

import (
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// Backtrace maps an objective on a gate output to an input assignment
type Backtrace struct {
	Circuit     *circuit.Circuit
	Logger      *utils.Logger
	Topology    *circuit.Topology
	Implication *Implication
}

// NewBacktrace creates a new Backtrace manager
func NewBacktrace(c *circuit.Circuit, t *circuit.Topology, i *Implication, logger *utils.Logger) *Backtrace {
	return &Backtrace{
		Circuit:     c,
		Logger:      logger,
		Topology:    t,
		Implication: i,
	}
}

// DirectBacktrace walks from a gate objective toward the inputs through
// slots that are still X, and returns the input to assign and its value.
// ok is false when no X path leads to an input.
func (b *Backtrace) DirectBacktrace(gateID int, value circuit.LogicValue) (inputID int, inputValue circuit.LogicValue, ok bool) {
	b.Logger.Decision("Starting direct backtrace for g%d = %v", gateID, value)

	visited := make(map[int]bool)
	for !visited[gateID] {
		visited[gateID] = true

		gate, exists := b.Circuit.Gate(gateID)
		if !exists {
			return 0, circuit.X, false
		}

		slot := b.selectSlot(gate, value)
		if slot < 0 {
			b.Logger.Decision("No X slot left on %s", gate)
			return 0, circuit.X, false
		}

		if gate.Type.IsInverting() {
			value = value.Not()
		}

		conn, _ := b.Circuit.Driver(gateID, slot)
		if conn.Source.Kind == circuit.InputSource {
			b.Logger.Decision("Backtrace selected in%d = %v", conn.Source.ID, value)
			return conn.Source.ID, value, true
		}
		gateID = conn.Source.ID
	}

	return 0, circuit.X, false
}

// selectSlot picks the X slot to follow. When one slot can decide the
// output (controlling objective) the easiest, lowest-level driver is
// chosen; when every slot must agree the hardest is tackled first. Ties
// on level go to the driver with the smaller fanout for a controlling
// objective and the larger fanout otherwise.
func (b *Backtrace) selectSlot(gate *circuit.Gate, value circuit.LogicValue) int {
	controlling := gate.Type.ControllingValue() == value

	best, bestLevel, bestFanout := -1, 0, 0
	for slot := 0; slot < gate.Arity(); slot++ {
		if b.Implication.SlotValue(gate.ID, slot) != circuit.X {
			continue
		}

		level, fanout := b.driverCost(gate.ID, slot)
		switch {
		case best < 0:
		case level != bestLevel:
			if controlling == (level > bestLevel) {
				continue
			}
		case fanout == bestFanout:
			continue
		case controlling == (fanout > bestFanout):
			continue
		}
		best, bestLevel, bestFanout = slot, level, fanout
	}
	return best
}

// driverCost returns the topological level of a slot's driver (inputs are
// 0) and the number of slots that driver feeds
func (b *Backtrace) driverCost(gateID, slot int) (level, fanout int) {
	conn, ok := b.Circuit.Driver(gateID, slot)
	if !ok {
		return 0, 0
	}
	fanout = b.Topology.Fanout[conn.Source]
	if conn.Source.Kind != circuit.GateSource {
		return 0, fanout
	}
	return b.Topology.LevelMap[conn.Source.ID], fanout
}
