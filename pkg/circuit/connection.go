package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceKind tells whether a connection is driven by an input node or a gate
type SourceKind int

const (
	InputSource SourceKind = iota
	GateSource
)

// String returns a string representation of the source kind
func (k SourceKind) String() string {
	switch k {
	case InputSource:
		return "input"
	case GateSource:
		return "gate"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *SourceKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "input":
		*k = InputSource
	case "gate":
		*k = GateSource
	default:
		return fmt.Errorf("invalid source kind: %q", text)
	}
	return nil
}

// Source references the driver of a connection
type Source struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	ID   int        `json:"id" yaml:"id"`
}

// FromInput returns a source reference to an input node
func FromInput(id int) Source {
	return Source{Kind: InputSource, ID: id}
}

// FromGate returns a source reference to a gate output
func FromGate(id int) Source {
	return Source{Kind: GateSource, ID: id}
}

// String returns a string representation of the source
func (s Source) String() string {
	if s.Kind == GateSource {
		return fmt.Sprintf("g%d", s.ID)
	}
	return fmt.Sprintf("in%d", s.ID)
}

// Connection is a directed edge from a source to one input slot of a gate
type Connection struct {
	Source Source `json:"source" yaml:"source"`
	Gate   int    `json:"gate" yaml:"gate"`
	Slot   int    `json:"slot" yaml:"slot"`
}

// Connect builds a connection from source to the given slot of a gate
func Connect(source Source, gateID, slot int) Connection {
	return Connection{Source: source, Gate: gateID, Slot: slot}
}

// String returns a string representation of the connection
func (c Connection) String() string {
	return fmt.Sprintf("%s->g%d.%d", c.Source, c.Gate, c.Slot)
}

// ParseSource parses "in<ID>" or "g<ID>"
func ParseSource(text string) (Source, error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "in"):
		id, err := strconv.Atoi(text[2:])
		if err != nil {
			return Source{}, fmt.Errorf("invalid input reference %q", text)
		}
		return FromInput(id), nil
	case strings.HasPrefix(text, "g"):
		id, err := strconv.Atoi(text[1:])
		if err != nil {
			return Source{}, fmt.Errorf("invalid gate reference %q", text)
		}
		return FromGate(id), nil
	default:
		return Source{}, fmt.Errorf("invalid source %q", text)
	}
}

// ParseConnection parses the form produced by Connection.String,
// e.g. "in1->g2.0"
func ParseConnection(text string) (Connection, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(text), "->")
	if !ok {
		return Connection{}, fmt.Errorf("invalid connection %q: missing ->", text)
	}
	source, err := ParseSource(from)
	if err != nil {
		return Connection{}, err
	}

	gate, slot, ok := strings.Cut(strings.TrimSpace(to), ".")
	if !ok || !strings.HasPrefix(gate, "g") {
		return Connection{}, fmt.Errorf("invalid connection target %q", to)
	}
	gateID, err := strconv.Atoi(gate[1:])
	if err != nil {
		return Connection{}, fmt.Errorf("invalid connection target %q", to)
	}
	slotIndex, err := strconv.Atoi(slot)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid slot in %q", to)
	}
	return Connect(source, gateID, slotIndex), nil
}
