// Package puzzle drives one play session of a Logic Blocks level: the
// player toggles inputs and wires gates until the terminal output is high.
package puzzle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// DefaultLevelID identifies the built-in level
const DefaultLevelID = "logic-blocks-1"

// Level is the fixed part of a puzzle: the input nodes, the gates and any
// connections that are already in place when the level starts.
type Level struct {
	ID          string               `json:"id" yaml:"id"`
	Title       string               `json:"title" yaml:"title"`
	Inputs      []circuit.InputNode  `json:"inputs" yaml:"inputs"`
	Gates       []circuit.Gate       `json:"gates" yaml:"gates"`
	Connections []circuit.Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// DefaultLevel returns the built-in level: two inputs, an AND gate and a
// terminal OR gate, nothing wired.
func DefaultLevel() *Level {
	return &Level{
		ID:    DefaultLevelID,
		Title: "Logic Blocks",
		Inputs: []circuit.InputNode{
			circuit.NewInputNode(1, 50, 100),
			circuit.NewInputNode(2, 50, 200),
		},
		Gates: []circuit.Gate{
			circuit.NewGate(1, circuit.AND, 250, 150),
			circuit.NewGate(2, circuit.OR, 450, 150),
		},
	}
}

// LoadLevel decodes a YAML level definition
func LoadLevel(r io.Reader) (*Level, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var level Level
	if err := decoder.Decode(&level); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty level definition")
		}
		return nil, fmt.Errorf("decode level: %w", err)
	}
	if err := level.Validate(); err != nil {
		return nil, err
	}
	return &level, nil
}

// LoadLevelFile loads a level from disk. Files ending in .bench are read as
// netlists, everything else as YAML.
func LoadLevelFile(path string) (*Level, error) {
	if strings.EqualFold(filepath.Ext(path), ".bench") {
		c, err := utils.ParseBenchFile(path)
		if err != nil {
			return nil, err
		}
		return LevelFromCircuit(c), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open level: %w", err)
	}
	defer file.Close()

	level, err := LoadLevel(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if level.ID == "" {
		level.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return level, nil
}

// LevelFromCircuit captures a circuit's nodes, gates and wiring as a level.
// Input values are kept; gate slots and outputs are cleared.
func LevelFromCircuit(c *circuit.Circuit) *Level {
	level := &Level{
		ID:          c.Name,
		Title:       c.Name,
		Inputs:      make([]circuit.InputNode, len(c.Inputs)),
		Gates:       make([]circuit.Gate, 0, len(c.Gates)),
		Connections: make([]circuit.Connection, len(c.Connections)),
	}
	copy(level.Inputs, c.Inputs)
	for _, g := range c.Gates {
		level.Gates = append(level.Gates, circuit.NewGate(g.ID, g.Type, g.Position.X, g.Position.Y))
	}
	copy(level.Connections, c.Connections)
	return level
}

// WriteYAML encodes the level definition
func (l *Level) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(l); err != nil {
		return fmt.Errorf("encode level: %w", err)
	}
	return encoder.Close()
}

// Validate checks that node and gate IDs are unique and gate types known
func (l *Level) Validate() error {
	seen := make(map[int]bool, len(l.Inputs))
	for _, in := range l.Inputs {
		if seen[in.ID] {
			return fmt.Errorf("duplicate input id %d", in.ID)
		}
		seen[in.ID] = true
	}

	seen = make(map[int]bool, len(l.Gates))
	for _, g := range l.Gates {
		if seen[g.ID] {
			return fmt.Errorf("duplicate gate id %d", g.ID)
		}
		if g.Type.Arity() == 0 {
			return fmt.Errorf("gate %d has unknown type", g.ID)
		}
		seen[g.ID] = true
	}
	return nil
}

// Build creates a fresh circuit for the level. Pre-wired connections are
// checked against rules.
func (l *Level) Build(rules circuit.Rules) (*circuit.Circuit, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	c := circuit.NewCircuit(l.ID)
	for _, in := range l.Inputs {
		if err := c.AddInput(in); err != nil {
			return nil, fmt.Errorf("level %s: %w", l.ID, err)
		}
	}
	for _, g := range l.Gates {
		if err := c.AddGate(circuit.NewGate(g.ID, g.Type, g.Position.X, g.Position.Y)); err != nil {
			return nil, fmt.Errorf("level %s: %w", l.ID, err)
		}
	}
	for _, conn := range l.Connections {
		if err := c.Connect(conn, rules); err != nil {
			return nil, fmt.Errorf("level %s: %w", l.ID, err)
		}
	}
	return c, nil
}
