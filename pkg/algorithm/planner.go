package algorithm

import (
	"errors"
	"strings"
	"time"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// ErrUnsettled means Plan ran out of states before reaching the target
var ErrUnsettled = errors.New("no toggle sequence reaches the target output within the search limit")

// DefaultPlanLimit bounds the number of distinct circuit states Plan visits
const DefaultPlanLimit = 1 << 14

// planStep is one node of the breadth-first search tree
type planStep struct {
	state  *circuit.Circuit
	parent int
	input  int
}

// Plan finds the shortest sequence of input toggles that leaves the terminal
// output at target when every toggle is followed by one evaluation pass in
// mode. The search starts from the circuit's stored gate outputs, so it
// honors the stale values a single-pass evaluation reads and may toggle the
// same input more than once. A non-positive limit means DefaultPlanLimit.
func Plan(c *circuit.Circuit, mode circuit.Mode, target bool, limit int, logger *utils.Logger) (*Hint, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if limit <= 0 {
		limit = DefaultPlanLimit
	}

	startTime := time.Now()
	logger.Info("Planning toggles for output = %v in %s mode", circuit.FromBool(target), mode)
	logger.Indent()
	defer logger.Outdent()

	var stats Stats
	root := c.Clone()
	steps := []planStep{{state: root, parent: -1}}
	seen := map[string]bool{stateKey(root): true}

	for head := 0; head < len(steps); head++ {
		current := steps[head].state
		if current.Output() == target {
			toggles := planPath(steps, head)
			stats.Decisions = len(toggles)
			stats.MaxDecisionDepth = len(toggles)
			stats.TotalTime = time.Since(startTime)

			logger.Info("Plan found: toggle %v after %d states", toggles, len(steps))
			return &Hint{
				Target:     target,
				Assignment: current.InputValues(),
				Toggles:    toggles,
				Stats:      stats,
			}, nil
		}

		for _, in := range current.Inputs {
			next := current.Clone()
			if err := next.Toggle(in.ID); err != nil {
				return nil, err
			}
			next.Evaluate(mode)
			stats.Implications++

			key := stateKey(next)
			if seen[key] {
				continue
			}
			if len(seen) >= limit {
				logger.Warning("Plan search stopped after %d states", len(seen))
				return nil, ErrUnsettled
			}
			seen[key] = true
			steps = append(steps, planStep{state: next, parent: head, input: in.ID})
			logger.Trace("Toggle in%d from state %d -> output %v", in.ID, head, circuit.FromBool(next.Output()))
		}
	}

	logger.Info("No toggle sequence reaches output = %v", circuit.FromBool(target))
	return nil, ErrUnjustifiable
}

// planPath walks parent links back to the root and returns the toggles in
// the order they must be applied
func planPath(steps []planStep, at int) []int {
	toggles := make([]int, 0)
	for i := at; steps[i].parent >= 0; i = steps[i].parent {
		toggles = append(toggles, steps[i].input)
	}
	for i, j := 0, len(toggles)-1; i < j; i, j = i+1, j-1 {
		toggles[i], toggles[j] = toggles[j], toggles[i]
	}
	return toggles
}

// stateKey captures everything the next pass depends on: input values and
// stored gate outputs
func stateKey(c *circuit.Circuit) string {
	var builder strings.Builder
	builder.Grow(len(c.Inputs) + len(c.Gates) + 1)
	for _, in := range c.Inputs {
		builder.WriteByte(bit(in.Value))
	}
	builder.WriteByte('|')
	for _, gate := range c.Gates {
		builder.WriteByte(bit(gate.Output))
	}
	return builder.String()
}

func bit(v bool) byte {
	if v {
		return '1'
	}
	return '0'
}
