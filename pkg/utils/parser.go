package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
)

// Regular expressions for parsing BENCH format
var (
	inputRegex  = regexp.MustCompile(`^INPUT\((\w+)\)$`)
	outputRegex = regexp.MustCompile(`^OUTPUT\((\w+)\)$`)
	gateRegex   = regexp.MustCompile(`^(\w+)\s*=\s*(\w+)\((.*)\)$`)
)

// Unconnected marks an empty gate slot in a netlist
const Unconnected = "_"

// Board layout used for netlists, which carry no positions
const (
	layoutInputX  = 50.0
	layoutGateX   = 250.0
	layoutColumn  = 200.0
	layoutRow     = 100.0
	layoutTopEdge = 100.0
)

// ParseBenchFile reads a circuit description in BENCH format and returns a Circuit object
func ParseBenchFile(filename string) (*circuit.Circuit, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Extract circuit name from filename
	name := strings.TrimSuffix(filepath.Base(filename), ".bench")
	return ParseBench(file, name)
}

// ParseBench reads a BENCH netlist. Inputs and gates get IDs 1..n in
// declaration order; every gate operand becomes a connection to that slot.
// The OUTPUT gate is moved last so it becomes the terminal gate.
func ParseBench(r io.Reader, name string) (*circuit.Circuit, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading netlist: %w", err)
	}

	c := circuit.NewCircuit(name)
	sources := make(map[string]circuit.Source)
	outputName := ""

	type pendingGate struct {
		id       int
		operands []string
		lineNo   int
	}
	var pending []pendingGate

	// First pass: declare all inputs and gates
	for i, line := range lines {
		if matches := inputRegex.FindStringSubmatch(line); matches != nil {
			if _, exists := sources[matches[1]]; exists {
				return nil, fmt.Errorf("line %d: %s declared twice", i+1, matches[1])
			}
			id := len(c.Inputs) + 1
			if err := c.AddInput(circuit.NewInputNode(id, 0, 0)); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			sources[matches[1]] = circuit.FromInput(id)
			continue
		}

		if matches := outputRegex.FindStringSubmatch(line); matches != nil {
			if outputName != "" {
				return nil, fmt.Errorf("line %d: only one OUTPUT is supported", i+1)
			}
			outputName = matches[1]
			continue
		}

		if matches := gateRegex.FindStringSubmatch(line); matches != nil {
			if _, exists := sources[matches[1]]; exists {
				return nil, fmt.Errorf("line %d: %s declared twice", i+1, matches[1])
			}
			gateType, err := circuit.ParseGateType(matches[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}

			operands := strings.Split(matches[3], ",")
			for j := range operands {
				operands[j] = strings.TrimSpace(operands[j])
			}
			if len(operands) > gateType.Arity() {
				return nil, fmt.Errorf("line %d: %s takes %d inputs, got %d", i+1, gateType, gateType.Arity(), len(operands))
			}

			id := len(c.Gates) + 1
			if err := c.AddGate(circuit.NewGate(id, gateType, 0, 0)); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			sources[matches[1]] = circuit.FromGate(id)
			pending = append(pending, pendingGate{id: id, operands: operands, lineNo: i + 1})
			continue
		}

		return nil, fmt.Errorf("line %d: cannot parse %q", i+1, line)
	}

	// Second pass: wire operands now that forward references resolve
	rules := circuit.Rules{Slots: circuit.RejectOccupied}
	for _, g := range pending {
		for slot, operand := range g.operands {
			if operand == "" || operand == Unconnected {
				continue
			}
			src, ok := sources[operand]
			if !ok {
				return nil, fmt.Errorf("line %d: undefined signal %s", g.lineNo, operand)
			}
			if err := c.Connect(circuit.Connect(src, g.id, slot), rules); err != nil {
				return nil, fmt.Errorf("line %d: %w", g.lineNo, err)
			}
		}
	}

	if outputName != "" {
		src, ok := sources[outputName]
		if !ok {
			return nil, fmt.Errorf("undefined output signal %s", outputName)
		}
		if src.Kind != circuit.GateSource {
			return nil, fmt.Errorf("output %s must be a gate", outputName)
		}
		moveGateLast(c, src.ID)
	}

	Layout(c)

	return c, nil
}

// moveGateLast makes the given gate the terminal gate
func moveGateLast(c *circuit.Circuit, id int) {
	idx := c.GateIndex(id)
	if idx < 0 || idx == len(c.Gates)-1 {
		return
	}
	gate := c.Gates[idx]
	c.Gates = append(c.Gates[:idx], c.Gates[idx+1:]...)
	c.Gates = append(c.Gates, gate)
}

// Layout places inputs in a left column and gates in one column per
// topological level
func Layout(c *circuit.Circuit) {
	for i := range c.Inputs {
		c.Inputs[i].Position = circuit.Point{X: layoutInputX, Y: layoutTopEdge + layoutRow*float64(i)}
	}

	topo := circuit.NewTopology(c)
	topo.Analyze()

	rows := make(map[int]int)
	for _, id := range topo.Order {
		level, ok := topo.LevelMap[id]
		if !ok {
			level = topo.MaxLevel + 1
		}
		gate, _ := c.Gate(id)
		gate.Position = circuit.Point{
			X: layoutGateX + layoutColumn*float64(level-1),
			Y: layoutTopEdge + layoutRow*float64(rows[level]),
		}
		rows[level]++
	}
}

// WriteBench writes the circuit's wiring as a BENCH netlist. Inputs are
// named in<ID>, gates g<ID>; a slot without a driver is written as "_".
func WriteBench(w io.Writer, c *circuit.Circuit) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "# %s\n", c.Name)
	for _, in := range c.Inputs {
		fmt.Fprintf(writer, "INPUT(in%d)\n", in.ID)
	}
	if terminal, ok := c.Terminal(); ok {
		fmt.Fprintf(writer, "OUTPUT(g%d)\n", terminal.ID)
	}

	for _, gate := range c.Gates {
		operands := make([]string, gate.Arity())
		for slot := range operands {
			conn, ok := c.Driver(gate.ID, slot)
			if !ok {
				operands[slot] = Unconnected
				continue
			}
			operands[slot] = conn.Source.String()
		}
		fmt.Fprintf(writer, "g%d = %s(%s)\n", gate.ID, gate.Type, strings.Join(operands, ", "))
	}

	return writer.Flush()
}

// WriteBenchFile writes the circuit's wiring to a file
func WriteBenchFile(filename string, c *circuit.Circuit) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteBench(file, c); err != nil {
		return fmt.Errorf("failed to write netlist: %w", err)
	}
	return nil
}

// WriteAssignment writes an input assignment, one "in<ID> <0|1>" per line,
// sorted by node ID
func WriteAssignment(w io.Writer, assignment map[int]bool) error {
	ids := make([]int, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	writer := bufio.NewWriter(w)
	writer.WriteString("# Input assignment\n")
	for _, id := range ids {
		fmt.Fprintf(writer, "in%d %s\n", id, circuit.FromBool(assignment[id]))
	}
	return writer.Flush()
}
