package algorithm

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

var (
	// ErrUnjustifiable means no input assignment produces the target output
	ErrUnjustifiable = errors.New("no input assignment reaches the target output")
	// ErrCyclicCircuit means the wiring has a gate cycle and cannot be justified
	ErrCyclicCircuit = errors.New("circuit wiring contains a cycle")
)

// Stats contains statistics about a solver run
type Stats struct {
	Decisions        int           // Number of decisions made
	Backtracks       int           // Number of backtracks performed
	Implications     int           // Number of implications performed
	MaxDecisionDepth int           // Maximum decision tree depth reached
	TotalTime        time.Duration // Total execution time
}

// Hint is an input assignment that drives the terminal output to Target
type Hint struct {
	Target     bool         `json:"target"`
	Assignment map[int]bool `json:"assignment"`
	Toggles    []int        `json:"toggles"` // Input IDs to flip from the current state, in order
	Stats      Stats        `json:"-"`
}

// Solver searches for an input assignment with a PODEM-style loop:
// backtrace the output objective to an input, decide, imply, and
// backtrack on conflict
type Solver struct {
	Circuit       *circuit.Circuit
	Logger        *utils.Logger
	Topology      *circuit.Topology
	Implication   *Implication
	Backtrace     *Backtrace
	Decision      *Decision
	Stats         Stats
	MaxIterations int
}

// NewSolver creates a solver over a snapshot of the circuit
func NewSolver(c *circuit.Circuit, logger *utils.Logger) *Solver {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	snapshot := c.Clone()
	topo := circuit.NewTopology(snapshot)
	topo.Analyze()

	implication := NewImplication(snapshot, topo, logger)
	backtrace := NewBacktrace(snapshot, topo, implication, logger)
	decision := NewDecision(implication, logger)

	return &Solver{
		Circuit:       snapshot,
		Logger:        logger,
		Topology:      topo,
		Implication:   implication,
		Backtrace:     backtrace,
		Decision:      decision,
		MaxIterations: 10000,
	}
}

// Solve is a convenience wrapper around NewSolver and Justify
func Solve(c *circuit.Circuit, target bool, logger *utils.Logger) (*Hint, error) {
	return NewSolver(c, logger).Justify(target)
}

// Justify finds an input assignment that drives the terminal output to target
func (s *Solver) Justify(target bool) (*Hint, error) {
	startTime := time.Now()
	s.Logger.Info("Starting justification of output = %v", circuit.FromBool(target))
	s.Logger.Indent()
	defer s.Logger.Outdent()

	s.Stats = Stats{}
	s.Decision.Reset()
	s.Implication.Reset()

	if s.Topology.HasCycle() {
		return nil, ErrCyclicCircuit
	}

	found, err := s.run(circuit.FromBool(target))
	s.Stats.TotalTime = time.Since(startTime)
	if err != nil {
		return nil, err
	}
	if !found {
		s.Logger.Info("No assignment reaches output = %v", circuit.FromBool(target))
		return nil, ErrUnjustifiable
	}

	hint := s.buildHint(target)
	s.Logger.Info("Hint found: toggle %v", hint.Toggles)
	return hint, nil
}

// run is the main decision loop
func (s *Solver) run(target circuit.LogicValue) (bool, error) {
	terminal, ok := s.Circuit.Terminal()
	if !ok {
		return target == circuit.Zero, nil
	}

	s.imply()

	for iterations := 0; iterations < s.MaxIterations; iterations++ {
		out := s.Implication.TerminalValue()
		s.Logger.Trace("Iteration %d: output = %v", iterations+1, out)

		if out == target {
			return true, nil
		}

		if out == circuit.X {
			input, value, ok := s.Backtrace.DirectBacktrace(terminal.ID, target)
			if ok {
				s.Decision.MakeDecision(input, value)
				s.Stats.Decisions++
				if depth := s.Decision.GetCurrentDecisionDepth(); depth > s.Stats.MaxDecisionDepth {
					s.Stats.MaxDecisionDepth = depth
				}
				s.imply()
				continue
			}
		}

		// Output settled on the wrong value, or no X path remains
		s.Stats.Backtracks++
		if !s.Decision.Backtrack() {
			return false, nil
		}
		s.imply()
	}

	return false, fmt.Errorf("solver gave up after %d iterations", s.MaxIterations)
}

func (s *Solver) imply() {
	s.Implication.ImplyValues()
	s.Stats.Implications++
}

// buildHint fills don't-care inputs with their current values and lists
// the inputs that must change
func (s *Solver) buildHint(target bool) *Hint {
	hint := &Hint{
		Target:     target,
		Assignment: make(map[int]bool, len(s.Circuit.Inputs)),
		Toggles:    make([]int, 0),
		Stats:      s.Stats,
	}

	for _, in := range s.Circuit.Inputs {
		value := in.Value
		if assigned := s.Implication.Inputs[in.ID]; assigned.IsAssigned() {
			value = assigned.Bool()
		}
		hint.Assignment[in.ID] = value
		if value != in.Value {
			hint.Toggles = append(hint.Toggles, in.ID)
		}
	}
	sort.Ints(hint.Toggles)

	return hint
}
