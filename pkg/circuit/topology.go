package circuit

import (
	"sort"
)

// Topology contains information about the gate-to-gate structure of a circuit
type Topology struct {
	Circuit  *Circuit
	LevelMap map[int]int    // Gate ID to its level; inputs sit at level 0
	MaxLevel int            // Maximum level in the circuit
	Order    []int          // Gate IDs in evaluation order
	Cyclic   []int          // Gates that cannot be levelized (on or behind a cycle)
	Fanout   map[Source]int // Number of effective slots each source drives

	fanin map[int][]int // Gate ID to the gates driving its slots
	succ  map[int][]int // Gate ID to the gates its output drives
}

// NewTopology creates a new topology analyzer for the given circuit.
// Only effective drivers (the last connection per slot within arity) count.
func NewTopology(c *Circuit) *Topology {
	t := &Topology{
		Circuit:  c,
		LevelMap: make(map[int]int),
		Fanout:   make(map[Source]int),
		fanin:    make(map[int][]int),
		succ:     make(map[int][]int),
	}

	for _, gate := range c.Gates {
		for slot := 0; slot < gate.Arity(); slot++ {
			conn, ok := c.Driver(gate.ID, slot)
			if !ok {
				continue
			}
			t.Fanout[conn.Source]++
			if conn.Source.Kind != GateSource {
				continue
			}
			if _, exists := c.Gate(conn.Source.ID); !exists {
				continue
			}
			t.fanin[gate.ID] = append(t.fanin[gate.ID], conn.Source.ID)
			t.succ[conn.Source.ID] = append(t.succ[conn.Source.ID], gate.ID)
		}
	}

	return t
}

// Analyze performs a complete topological analysis of the circuit
func (t *Topology) Analyze() {
	t.ComputeLevels()
	t.ComputeOrder()
}

// ComputeLevels assigns a level to each gate. A gate fed only by inputs or
// unconnected slots is level 1; levels increase toward the terminal gate.
func (t *Topology) ComputeLevels() {
	t.LevelMap = make(map[int]int)
	t.MaxLevel = 0

	// Keep processing gates until no more levels can be assigned
	changed := true
	for changed {
		changed = false

		for _, gate := range t.Circuit.Gates {
			if _, hasLevel := t.LevelMap[gate.ID]; hasLevel {
				continue
			}

			allSourcesHaveLevels := true
			maxSourceLevel := 0

			for _, src := range t.fanin[gate.ID] {
				level, exists := t.LevelMap[src]
				if !exists {
					allSourcesHaveLevels = false
					break
				}
				if level > maxSourceLevel {
					maxSourceLevel = level
				}
			}

			if allSourcesHaveLevels {
				t.LevelMap[gate.ID] = maxSourceLevel + 1
				if maxSourceLevel+1 > t.MaxLevel {
					t.MaxLevel = maxSourceLevel + 1
				}
				changed = true
			}
		}
	}

	t.Cyclic = make([]int, 0)
	for _, gate := range t.Circuit.Gates {
		if _, hasLevel := t.LevelMap[gate.ID]; !hasLevel {
			t.Cyclic = append(t.Cyclic, gate.ID)
		}
	}
}

// ComputeOrder sorts levelized gates by level, ties broken by declaration
// order, followed by the cyclic gates in declaration order
func (t *Topology) ComputeOrder() {
	if len(t.LevelMap)+len(t.Cyclic) != len(t.Circuit.Gates) {
		t.ComputeLevels()
	}

	t.Order = make([]int, 0, len(t.Circuit.Gates))
	for _, gate := range t.Circuit.Gates {
		if _, hasLevel := t.LevelMap[gate.ID]; hasLevel {
			t.Order = append(t.Order, gate.ID)
		}
	}

	sort.SliceStable(t.Order, func(i, j int) bool {
		return t.LevelMap[t.Order[i]] < t.LevelMap[t.Order[j]]
	})

	t.Order = append(t.Order, t.Cyclic...)
}

// HasCycle reports whether the effective wiring contains a gate cycle
func (t *Topology) HasCycle() bool {
	if len(t.LevelMap)+len(t.Cyclic) != len(t.Circuit.Gates) {
		t.ComputeLevels()
	}
	return len(t.Cyclic) > 0
}

// FindPathBetween finds a path of gate IDs from start to end following
// output-to-slot edges. It returns nil when end is unreachable.
func (t *Topology) FindPathBetween(start, end int) []int {
	// Simple BFS to find path
	visited := make(map[int]bool)
	queue := [][]int{{start}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		current := path[len(path)-1]
		if current == end {
			return path
		}

		if visited[current] {
			continue
		}

		visited[current] = true

		for _, next := range t.succ[current] {
			if !visited[next] {
				newPath := make([]int, len(path))
				copy(newPath, path)
				newPath = append(newPath, next)
				queue = append(queue, newPath)
			}
		}
	}

	return nil
}
