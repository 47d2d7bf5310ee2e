package circuit

import (
	"fmt"
	"strings"
)

// GateType represents the type of logic gate
type GateType int

const (
	AND GateType = iota
	OR
	NOT
)

// String returns a string representation of the gate type
func (gt GateType) String() string {
	switch gt {
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	default:
		return "UNKNOWN"
	}
}

// ParseGateType converts a gate type name to a GateType
func ParseGateType(name string) (GateType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "AND":
		return AND, nil
	case "OR":
		return OR, nil
	case "NOT", "INV":
		return NOT, nil
	default:
		return 0, fmt.Errorf("unsupported gate type: %q", name)
	}
}

// Arity returns the number of input slots the gate type reads
func (gt GateType) Arity() int {
	switch gt {
	case AND, OR:
		return 2
	case NOT:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler
func (gt GateType) MarshalText() ([]byte, error) {
	if gt.Arity() == 0 {
		return nil, fmt.Errorf("unsupported gate type: %d", int(gt))
	}
	return []byte(gt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (gt *GateType) UnmarshalText(text []byte) error {
	parsed, err := ParseGateType(string(text))
	if err != nil {
		return err
	}
	*gt = parsed
	return nil
}

// Apply computes the gate's truth function over resolved slot values.
// Slots beyond the arity are ignored; missing slots read as false.
func (gt GateType) Apply(in []bool) bool {
	slot := func(i int) bool {
		return i < len(in) && in[i]
	}

	switch gt {
	case AND:
		return slot(0) && slot(1)
	case OR:
		return slot(0) || slot(1)
	case NOT:
		return !slot(0)
	default:
		return false
	}
}

// Evaluate computes the three-valued output of the gate type.
// Used by the solver where unassigned inputs are X.
func (gt GateType) Evaluate(in []LogicValue) LogicValue {
	slot := func(i int) LogicValue {
		if i < len(in) {
			return in[i]
		}
		return Zero
	}

	switch gt {
	case AND:
		result := One
		for i := 0; i < gt.Arity(); i++ {
			switch slot(i) {
			case Zero:
				return Zero // Short-circuit for AND gate
			case X:
				result = X
			}
		}
		return result
	case OR:
		result := Zero
		for i := 0; i < gt.Arity(); i++ {
			switch slot(i) {
			case One:
				return One // Short-circuit for OR gate
			case X:
				result = X
			}
		}
		return result
	case NOT:
		return slot(0).Not()
	default:
		return X
	}
}

// ControllingValue returns the input value that alone decides the output
// (0 for AND, 1 for OR). NOT has none.
func (gt GateType) ControllingValue() LogicValue {
	switch gt {
	case AND:
		return Zero
	case OR:
		return One
	default:
		return X
	}
}

// IsInverting reports whether the gate complements its input
func (gt GateType) IsInverting() bool {
	return gt == NOT
}

// Gate represents a logic gate on the puzzle board
type Gate struct {
	ID       int          `json:"id" yaml:"id"`
	Type     GateType     `json:"type" yaml:"type"`
	Slots    []LogicValue `json:"slots" yaml:"-"`
	Output   bool         `json:"output" yaml:"-"`
	Position Point        `json:"position" yaml:"position"`
}

// NewGate creates a new gate with unresolved slots and a low output
func NewGate(id int, gateType GateType, x, y float64) Gate {
	return Gate{
		ID:       id,
		Type:     gateType,
		Slots:    make([]LogicValue, gateType.Arity()),
		Position: Point{X: x, Y: y},
	}
}

// Arity returns the number of input slots of the gate
func (g Gate) Arity() int {
	return g.Type.Arity()
}

// Clone returns a copy of the gate that shares no slot storage
func (g Gate) Clone() Gate {
	clone := g
	clone.Slots = make([]LogicValue, len(g.Slots))
	copy(clone.Slots, g.Slots)
	return clone
}

// String returns a string representation of the gate
func (g Gate) String() string {
	return fmt.Sprintf("g%d(%s)", g.ID, g.Type)
}
