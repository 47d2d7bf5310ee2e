package surface

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// Action is what a pointer event did
type Action int

const (
	None Action = iota
	Toggled
	DragStarted
	DragMoved
	Connected
	Rejected
	Cancelled
)

// String returns a string representation of the action
func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Toggled:
		return "toggled"
	case DragStarted:
		return "drag-started"
	case DragMoved:
		return "drag-moved"
	case Connected:
		return "connected"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Event describes the outcome of one pointer event
type Event struct {
	Action     Action              `json:"action"`
	Input      int                 `json:"input,omitempty"`
	Connection *circuit.Connection `json:"connection,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// Drag is a wire being dragged from a source towards a gate slot
type Drag struct {
	Source  circuit.Source `json:"source"`
	Pointer circuit.Point  `json:"pointer"`
}

// Surface keeps the pointer state of one session. It is not safe for
// concurrent use.
type Surface struct {
	session *puzzle.Session
	logger  *utils.Logger
	drag    *Drag
}

// New creates a surface over a session
func New(session *puzzle.Session, logger *utils.Logger) *Surface {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Surface{session: session, logger: logger}
}

// Dragging returns the drag in progress, if any
func (s *Surface) Dragging() (Drag, bool) {
	if s.drag == nil {
		return Drag{}, false
	}
	return *s.drag, true
}

// PointerDown toggles an input or starts a drag from an input port or a
// gate body. Ports are checked before toggles since the regions overlap.
func (s *Surface) PointerDown(p circuit.Point) Event {
	if !InCanvas(p) {
		return Event{Action: None}
	}
	c := s.session.Circuit()

	if id, ok := HitInputPort(c, p); ok {
		return s.startDrag(circuit.FromInput(id), p)
	}
	if id, ok := HitInputToggle(c, p); ok {
		if err := s.session.ToggleInput(id); err != nil {
			return Event{Action: Rejected, Input: id, Reason: err.Error()}
		}
		return Event{Action: Toggled, Input: id}
	}
	if id, ok := HitGate(c, p); ok {
		return s.startDrag(circuit.FromGate(id), p)
	}
	return Event{Action: None}
}

// PointerMove tracks the pointer while dragging
func (s *Surface) PointerMove(p circuit.Point) Event {
	if s.drag == nil {
		return Event{Action: None}
	}
	s.drag.Pointer = p
	return Event{Action: DragMoved}
}

// PointerUp ends a drag. Releasing over a gate slot attempts the
// connection; releasing anywhere else drops the wire.
func (s *Surface) PointerUp(p circuit.Point) Event {
	if s.drag == nil {
		return Event{Action: None}
	}
	source := s.drag.Source
	s.drag = nil

	gateID, slot, ok := HitSlot(s.session.Circuit(), p)
	if !ok {
		s.logger.Debug("Dropped wire from %s outside any slot", source)
		return Event{Action: Cancelled}
	}

	conn := circuit.Connect(source, gateID, slot)
	if err := s.session.AddConnection(source, gateID, slot); err != nil {
		return Event{Action: Rejected, Connection: &conn, Reason: reason(err)}
	}
	return Event{Action: Connected, Connection: &conn}
}

// PointerLeave cancels any drag in progress
func (s *Surface) PointerLeave() Event {
	if s.drag == nil {
		return Event{Action: None}
	}
	s.logger.Debug("Pointer left the canvas, drag from %s cancelled", s.drag.Source)
	s.drag = nil
	return Event{Action: Cancelled}
}

// Dispatch routes a named pointer event: down, move, up or leave
func (s *Surface) Dispatch(kind string, p circuit.Point) (Event, error) {
	switch strings.ToLower(kind) {
	case "down":
		return s.PointerDown(p), nil
	case "move":
		return s.PointerMove(p), nil
	case "up":
		return s.PointerUp(p), nil
	case "leave":
		return s.PointerLeave(), nil
	default:
		return Event{}, fmt.Errorf("unknown pointer event: %q", kind)
	}
}

func (s *Surface) startDrag(source circuit.Source, p circuit.Point) Event {
	s.drag = &Drag{Source: source, Pointer: p}
	s.logger.Debug("Started drag from %s", source)
	return Event{Action: DragStarted}
}

// reason reports the validation failure without the connection prefix
func reason(err error) string {
	var invalid *circuit.InvalidConnectionError
	if errors.As(err, &invalid) && invalid.Reason != nil {
		return invalid.Reason.Error()
	}
	return err.Error()
}
