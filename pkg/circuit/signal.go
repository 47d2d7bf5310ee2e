package circuit

import (
	"fmt"
)

// LogicValue represents the possible values for a gate input slot
type LogicValue int

const (
	X    LogicValue = iota // Unknown/unresolved
	Zero                   // Logic 0
	One                    // Logic 1
)

// String returns a string representation of the logic value
func (v LogicValue) String() string {
	switch v {
	case X:
		return "X"
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler
func (v LogicValue) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (v *LogicValue) UnmarshalText(text []byte) error {
	switch string(text) {
	case "X", "x":
		*v = X
	case "0":
		*v = Zero
	case "1":
		*v = One
	default:
		return fmt.Errorf("invalid logic value: %q", text)
	}
	return nil
}

// FromBool converts a boolean signal to a logic value
func FromBool(b bool) LogicValue {
	if b {
		return One
	}
	return Zero
}

// Bool reports whether the value is One. X counts as low.
func (v LogicValue) Bool() bool {
	return v == One
}

// IsAssigned returns true if the value is definite (not X)
func (v LogicValue) IsAssigned() bool {
	return v == Zero || v == One
}

// Not returns the complement of the value, X stays X
func (v LogicValue) Not() LogicValue {
	switch v {
	case Zero:
		return One
	case One:
		return Zero
	default:
		return X
	}
}

// Point is a position on the puzzle canvas
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// InputNode represents a user-toggleable boolean source
type InputNode struct {
	ID       int   `json:"id" yaml:"id"`
	Value    bool  `json:"value" yaml:"value"`
	Position Point `json:"position" yaml:"position"`
}

// NewInputNode creates a new input node set low
func NewInputNode(id int, x, y float64) InputNode {
	return InputNode{
		ID:       id,
		Position: Point{X: x, Y: y},
	}
}

// Toggle flips the node's value
func (n *InputNode) Toggle() {
	n.Value = !n.Value
}

// String returns a string representation of the input node
func (n InputNode) String() string {
	return fmt.Sprintf("in%d=%s", n.ID, FromBool(n.Value))
}
