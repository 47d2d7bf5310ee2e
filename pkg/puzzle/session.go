package puzzle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/logic-blocks/pkg/algorithm"
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/metrics"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// ErrNotSolved is returned by Submit while the terminal output is low
var ErrNotSolved = errors.New("terminal output is not high")

// CompletionRecorder persists that a player finished a level
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, playerID, levelID string, at time.Time) error
}

// Options configures a session. The zero value evaluates in settled mode,
// rejects occupied slots and cycles, and records nothing.
type Options struct {
	Rules    circuit.Rules
	Mode     circuit.Mode
	Logger   *utils.Logger
	Metrics  *metrics.Metrics
	Recorder CompletionRecorder
	PlayerID string
	Now      func() time.Time
}

// Session owns the circuit of one level being played. It is not safe for
// concurrent use.
type Session struct {
	level       *Level
	opts        Options
	logger      *utils.Logger
	initial     *circuit.Circuit
	circuit     *circuit.Circuit
	attempts    int
	completed   bool
	completedAt time.Time
}

// Snapshot is the externally visible state of a session
type Snapshot struct {
	Level       string               `json:"level"`
	Title       string               `json:"title"`
	Inputs      []circuit.InputNode  `json:"inputs"`
	Gates       []circuit.Gate       `json:"gates"`
	Connections []circuit.Connection `json:"connections"`
	Output      bool                 `json:"output"`
	Attempts    int                  `json:"attempts"`
	CanSubmit   bool                 `json:"canSubmit"`
	Completed   bool                 `json:"completed"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}

// NewSession builds the level's circuit and evaluates it once
func NewSession(level *Level, opts Options) (*Session, error) {
	if level == nil {
		level = DefaultLevel()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c, err := level.Build(opts.Rules)
	if err != nil {
		return nil, err
	}

	s := &Session{
		level:  level,
		opts:   opts,
		logger: opts.Logger,
	}
	s.circuit = c
	s.evaluate()
	s.initial = s.circuit.Clone()

	s.logger.Circuit("Session started for level %s (%d inputs, %d gates, mode %s, slots %s)",
		level.ID, len(c.Inputs), len(c.Gates), opts.Mode, opts.Rules.Slots)
	return s, nil
}

// Level returns the level being played
func (s *Session) Level() *Level {
	return s.level
}

// Circuit returns a copy of the current circuit
func (s *Session) Circuit() *circuit.Circuit {
	return s.circuit.Clone()
}

// Initial returns a copy of the circuit as it was when the level started
func (s *Session) Initial() *circuit.Circuit {
	return s.initial.Clone()
}

// Output returns the current terminal output
func (s *Session) Output() bool {
	return s.circuit.Output()
}

// Attempts returns how many times an input was toggled since the last reset
func (s *Session) Attempts() int {
	return s.attempts
}

// ConnectionCount returns the number of connections in the circuit
func (s *Session) ConnectionCount() int {
	return len(s.circuit.Connections)
}

// Completed reports whether the level was submitted successfully
func (s *Session) Completed() bool {
	return s.completed
}

// ToggleInput flips one input node and re-evaluates the circuit
func (s *Session) ToggleInput(id int) error {
	if err := s.circuit.Toggle(id); err != nil {
		return err
	}
	s.attempts++
	s.opts.Metrics.ObserveToggle()

	node, _ := s.circuit.Input(id)
	s.logger.Circuit("Toggled in%d to %s (attempt %d)", id, circuit.FromBool(node.Value), s.attempts)

	s.evaluate()
	return nil
}

// AddConnection wires source into a gate slot and re-evaluates the circuit.
// An invalid connection leaves the circuit unchanged.
func (s *Session) AddConnection(source circuit.Source, gateID, slot int) error {
	conn := circuit.Connect(source, gateID, slot)
	if err := s.circuit.Connect(conn, s.opts.Rules); err != nil {
		s.opts.Metrics.ObserveConnection(false)
		s.logger.Connection("Rejected %s: %v", conn, err)
		return err
	}
	s.opts.Metrics.ObserveConnection(true)
	s.logger.Connection("Connected %s", conn)

	s.evaluate()
	return nil
}

// Reset restores the level's initial circuit and clears attempts and
// completion
func (s *Session) Reset() {
	s.circuit = s.initial.Clone()
	s.attempts = 0
	s.completed = false
	s.completedAt = time.Time{}
	s.logger.Circuit("Reset level %s", s.level.ID)
}

// CanSubmit reports whether the level can be submitted
func (s *Session) CanSubmit() bool {
	return s.circuit.Output()
}

// Submit completes the level. It fails with ErrNotSolved while the output
// is low. The completion is recorded when a recorder is configured.
func (s *Session) Submit(ctx context.Context) error {
	if !s.CanSubmit() {
		return ErrNotSolved
	}

	at := s.opts.Now()
	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordCompletion(ctx, s.opts.PlayerID, s.level.ID, at); err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
	}

	s.completed = true
	s.completedAt = at
	s.opts.Metrics.ObserveCompletion()
	s.logger.Info("Level %s completed after %d attempts and %d connections",
		s.level.ID, s.attempts, s.ConnectionCount())
	return nil
}

// Hint searches for the input toggles that drive the output high from the
// current state
func (s *Session) Hint() (*algorithm.Hint, error) {
	return s.HintFor(true)
}

// HintFor searches for the input toggles that leave the output at target.
// Settled sessions use the justification solver. Single-pass sessions
// search toggle sequences against the evaluator itself, since one pass per
// toggle may leave downstream gates on stale values.
func (s *Session) HintFor(target bool) (*algorithm.Hint, error) {
	if s.opts.Mode == circuit.SinglePass {
		return algorithm.Plan(s.circuit, s.opts.Mode, target, 0, s.logger)
	}
	return algorithm.Solve(s.circuit, target, s.logger)
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() Snapshot {
	c := s.circuit.Clone()
	snap := Snapshot{
		Level:       s.level.ID,
		Title:       s.level.Title,
		Inputs:      c.Inputs,
		Gates:       c.Gates,
		Connections: c.Connections,
		Output:      c.Output(),
		Attempts:    s.attempts,
		CanSubmit:   c.Output(),
		Completed:   s.completed,
	}
	if s.completed {
		at := s.completedAt
		snap.CompletedAt = &at
	}
	return snap
}

func (s *Session) evaluate() {
	output := s.circuit.Evaluate(s.opts.Mode)
	s.opts.Metrics.ObserveEvaluation(s.opts.Mode.String())

	for _, gate := range s.circuit.Gates {
		s.logger.Evaluation("%s slots=%v output=%s", gate, gate.Slots, circuit.FromBool(gate.Output))
	}
	s.logger.Evaluation("Terminal output = %s", circuit.FromBool(output))
}
