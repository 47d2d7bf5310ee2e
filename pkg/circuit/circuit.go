package circuit

import (
	"fmt"
	"strings"
)

// SlotPolicy decides what happens when a connection targets a slot that
// already has a driver
type SlotPolicy int

const (
	// RejectOccupied refuses the second driver with ErrSlotOccupied
	RejectOccupied SlotPolicy = iota
	// LastWins accepts it; the evaluator reads the last-declared driver
	LastWins
)

// String returns a string representation of the slot policy
func (p SlotPolicy) String() string {
	switch p {
	case RejectOccupied:
		return "reject"
	case LastWins:
		return "last-wins"
	default:
		return "unknown"
	}
}

// ParseSlotPolicy converts a policy name to a SlotPolicy
func ParseSlotPolicy(name string) (SlotPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reject":
		return RejectOccupied, nil
	case "last-wins", "lastwins":
		return LastWins, nil
	default:
		return 0, fmt.Errorf("unknown slot policy: %q", name)
	}
}

// Rules controls which connections Validate accepts
type Rules struct {
	Slots       SlotPolicy
	AllowCycles bool
}

// Circuit represents a gate network: input nodes, gates and the connections
// between them. The terminal output is the output of the last gate.
type Circuit struct {
	Name        string       `json:"name"`
	Inputs      []InputNode  `json:"inputs"`
	Gates       []Gate       `json:"gates"`
	Connections []Connection `json:"connections"`
}

// NewCircuit creates a new empty circuit with the given name
func NewCircuit(name string) *Circuit {
	return &Circuit{
		Name:        name,
		Inputs:      make([]InputNode, 0),
		Gates:       make([]Gate, 0),
		Connections: make([]Connection, 0),
	}
}

// AddInput adds an input node to the circuit. Input IDs are unique.
func (c *Circuit) AddInput(node InputNode) error {
	if _, exists := c.Input(node.ID); exists {
		return fmt.Errorf("input %d: %w", node.ID, ErrDuplicateID)
	}
	c.Inputs = append(c.Inputs, node)
	return nil
}

// AddGate adds a gate to the circuit. Its slots are sized to its arity and
// gate IDs are unique.
func (c *Circuit) AddGate(gate Gate) error {
	if _, exists := c.Gate(gate.ID); exists {
		return fmt.Errorf("gate %d: %w", gate.ID, ErrDuplicateID)
	}
	if len(gate.Slots) != gate.Arity() {
		gate.Slots = make([]LogicValue, gate.Arity())
	}
	c.Gates = append(c.Gates, gate)
	return nil
}

// Input returns the input node with the given ID
func (c *Circuit) Input(id int) (*InputNode, bool) {
	for i := range c.Inputs {
		if c.Inputs[i].ID == id {
			return &c.Inputs[i], true
		}
	}
	return nil, false
}

// Gate returns the gate with the given ID
func (c *Circuit) Gate(id int) (*Gate, bool) {
	for i := range c.Gates {
		if c.Gates[i].ID == id {
			return &c.Gates[i], true
		}
	}
	return nil, false
}

// GateIndex returns the declaration index of a gate, or -1
func (c *Circuit) GateIndex(id int) int {
	for i := range c.Gates {
		if c.Gates[i].ID == id {
			return i
		}
	}
	return -1
}

// Terminal returns the gate whose output is the circuit output
func (c *Circuit) Terminal() (*Gate, bool) {
	if len(c.Gates) == 0 {
		return nil, false
	}
	return &c.Gates[len(c.Gates)-1], true
}

// Output returns the terminal output from the last evaluation.
// A circuit without gates is always low.
func (c *Circuit) Output() bool {
	terminal, ok := c.Terminal()
	return ok && terminal.Output
}

// Driver returns the connection feeding a gate slot. When several
// connections target the same slot the last declared one wins.
func (c *Circuit) Driver(gateID, slot int) (Connection, bool) {
	for i := len(c.Connections) - 1; i >= 0; i-- {
		conn := c.Connections[i]
		if conn.Gate == gateID && conn.Slot == slot {
			return conn, true
		}
	}
	return Connection{}, false
}

// Toggle flips the value of an input node
func (c *Circuit) Toggle(id int) error {
	node, ok := c.Input(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInput, id)
	}
	node.Toggle()
	return nil
}

// Validate checks a connection against the circuit under the given rules
func (c *Circuit) Validate(conn Connection, rules Rules) error {
	switch conn.Source.Kind {
	case InputSource:
		if _, ok := c.Input(conn.Source.ID); !ok {
			return invalid(conn, ErrUnknownSource)
		}
	case GateSource:
		if _, ok := c.Gate(conn.Source.ID); !ok {
			return invalid(conn, ErrUnknownSource)
		}
	default:
		return invalid(conn, ErrUnknownSource)
	}

	target, ok := c.Gate(conn.Gate)
	if !ok {
		return invalid(conn, ErrUnknownGate)
	}
	if conn.Slot < 0 || conn.Slot >= target.Arity() {
		return invalid(conn, ErrSlotOutOfRange)
	}

	if rules.Slots == RejectOccupied {
		if _, taken := c.Driver(conn.Gate, conn.Slot); taken {
			return invalid(conn, ErrSlotOccupied)
		}
	}

	if !rules.AllowCycles && conn.Source.Kind == GateSource {
		if conn.Source.ID == conn.Gate {
			return invalid(conn, ErrSelfLoop)
		}
		// The new edge source->target closes a cycle iff target already reaches source
		if NewTopology(c).FindPathBetween(conn.Gate, conn.Source.ID) != nil {
			return invalid(conn, ErrCycle)
		}
	}

	return nil
}

// Connect validates a connection and appends it to the circuit
func (c *Circuit) Connect(conn Connection, rules Rules) error {
	if err := c.Validate(conn, rules); err != nil {
		return err
	}
	c.Connections = append(c.Connections, conn)
	return nil
}

// Apply stores an evaluation result in the circuit
func (c *Circuit) Apply(result Result) {
	c.Gates = result.Gates
}

// Clone returns a deep copy of the circuit
func (c *Circuit) Clone() *Circuit {
	clone := &Circuit{
		Name:        c.Name,
		Inputs:      make([]InputNode, len(c.Inputs)),
		Gates:       make([]Gate, len(c.Gates)),
		Connections: make([]Connection, len(c.Connections)),
	}
	copy(clone.Inputs, c.Inputs)
	for i, gate := range c.Gates {
		clone.Gates[i] = gate.Clone()
	}
	copy(clone.Connections, c.Connections)
	return clone
}

// InputValues returns the current input assignment keyed by node ID
func (c *Circuit) InputValues() map[int]bool {
	values := make(map[int]bool, len(c.Inputs))
	for _, in := range c.Inputs {
		values[in.ID] = in.Value
	}
	return values
}

// String returns a string representation of the circuit state
func (c *Circuit) String() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Circuit: %s\n", c.Name))

	builder.WriteString("Inputs: ")
	for _, in := range c.Inputs {
		builder.WriteString(fmt.Sprintf("%s ", in))
	}

	builder.WriteString("\nGates: ")
	for _, gate := range c.Gates {
		builder.WriteString(fmt.Sprintf("%s=%s ", gate, FromBool(gate.Output)))
	}

	builder.WriteString("\nConnections: ")
	for _, conn := range c.Connections {
		builder.WriteString(fmt.Sprintf("%s ", conn))
	}

	builder.WriteString(fmt.Sprintf("\nOutput: %s", FromBool(c.Output())))

	return builder.String()
}
