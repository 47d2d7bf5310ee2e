// Package surface translates pointer gestures on the puzzle canvas into
// session operations.
package surface

import (
	"math"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
)

// Canvas geometry, in canvas pixels
const (
	CanvasWidth  = 900.0
	CanvasHeight = 500.0

	toggleOffset = 15.0 // toggle centre is right of the node position
	toggleReach  = 20.0
	portOffset   = 30.0
	portRadius   = 6.0

	gateWidth      = 60.0
	gateHalfHeight = 25.0

	slotHalfWidth = 10.0
	slotOffset    = 15.0
	slotReach     = 10.0
)

// InCanvas reports whether p lies on the canvas
func InCanvas(p circuit.Point) bool {
	return p.X >= 0 && p.X <= CanvasWidth && p.Y >= 0 && p.Y <= CanvasHeight
}

// HitInputPort returns the input whose output port contains p
func HitInputPort(c *circuit.Circuit, p circuit.Point) (int, bool) {
	for _, in := range c.Inputs {
		dx := p.X - (in.Position.X + portOffset)
		dy := p.Y - in.Position.Y
		if math.Hypot(dx, dy) <= portRadius {
			return in.ID, true
		}
	}
	return 0, false
}

// HitInputToggle returns the input whose toggle contains p
func HitInputToggle(c *circuit.Circuit, p circuit.Point) (int, bool) {
	for _, in := range c.Inputs {
		dx := math.Abs(p.X - (in.Position.X + toggleOffset))
		dy := math.Abs(p.Y - in.Position.Y)
		if dx < toggleReach && dy < toggleReach {
			return in.ID, true
		}
	}
	return 0, false
}

// HitGate returns the gate whose body contains p
func HitGate(c *circuit.Circuit, p circuit.Point) (int, bool) {
	for _, g := range c.Gates {
		if p.X >= g.Position.X && p.X <= g.Position.X+gateWidth &&
			p.Y >= g.Position.Y-gateHalfHeight && p.Y <= g.Position.Y+gateHalfHeight {
			return g.ID, true
		}
	}
	return 0, false
}

// HitSlot returns the gate input slot under p. Slot 0 sits above the gate
// centre line and slot 1 below it; gates with one slot offer only slot 0.
func HitSlot(c *circuit.Circuit, p circuit.Point) (gateID, slot int, ok bool) {
	for _, g := range c.Gates {
		if p.X < g.Position.X-slotHalfWidth || p.X > g.Position.X+slotHalfWidth {
			continue
		}
		if math.Abs(p.Y-(g.Position.Y-slotOffset)) < slotReach {
			return g.ID, 0, true
		}
		if g.Arity() > 1 && math.Abs(p.Y-(g.Position.Y+slotOffset)) < slotReach {
			return g.ID, 1, true
		}
	}
	return 0, 0, false
}
