package algorithm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/logic-blocks/pkg/algorithm"
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

func parse(t *testing.T, src string) *circuit.Circuit {
	t.Helper()
	c, err := utils.ParseBench(strings.NewReader(src), t.Name())
	require.NoError(t, err)
	return c
}

// verify applies a hint and checks the circuit reaches the target
func verify(t *testing.T, c *circuit.Circuit, hint *algorithm.Hint) {
	t.Helper()
	applied := c.Clone()
	for _, id := range hint.Toggles {
		require.NoError(t, applied.Toggle(id))
	}
	assert.Equal(t, hint.Assignment, applied.InputValues())
	assert.Equal(t, hint.Target, applied.Evaluate(circuit.Settled))
}

func TestJustifyAndOrChain(t *testing.T) {
	c := parse(t, `
INPUT(a)
INPUT(b)
OUTPUT(o)
n = AND(a, b)
o = OR(n, _)
`)

	hint, err := algorithm.Solve(c, true, nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true}, hint.Assignment)
	assert.Equal(t, []int{1, 2}, hint.Toggles)
	assert.Equal(t, 2, hint.Stats.Decisions)
	verify(t, c, hint)
}

func TestJustifyAlreadySatisfied(t *testing.T) {
	c := parse(t, "INPUT(a)\nOUTPUT(o)\no = NOT(a)\n")

	hint, err := algorithm.Solve(c, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, hint.Toggles)

	c.Inputs[0].Value = true
	hint, err = algorithm.Solve(c, false, nil)
	require.NoError(t, err)
	assert.Empty(t, hint.Toggles)
}

func TestJustifyKeepsDontCareInputs(t *testing.T) {
	c := parse(t, `
INPUT(a)
INPUT(b)
OUTPUT(o)
o = OR(a, b)
`)
	c.Inputs[1].Value = true

	// b already drives OR high; a is a don't care and keeps its value
	hint, err := algorithm.Solve(c, true, nil)
	require.NoError(t, err)
	verify(t, c, hint)
	assert.LessOrEqual(t, len(hint.Toggles), 1)
}

func TestJustifyReconvergentFanout(t *testing.T) {
	// a feeds both sides of the AND; fixing a=0 through NOT leaves b to set x
	c := parse(t, `
INPUT(a)
INPUT(b)
OUTPUT(o)
na = NOT(a)
x = OR(a, b)
o = AND(na, x)
`)

	hint, err := algorithm.Solve(c, true, nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: false, 2: true}, hint.Assignment)
	verify(t, c, hint)
}

func TestJustifyImpossible(t *testing.T) {
	tautology := parse(t, `
INPUT(a)
OUTPUT(o)
na = NOT(a)
o = OR(na, a)
`)
	_, err := algorithm.Solve(tautology, false, nil)
	assert.ErrorIs(t, err, algorithm.ErrUnjustifiable)

	contradiction := parse(t, `
INPUT(a)
OUTPUT(o)
na = NOT(a)
o = AND(a, na)
`)
	solver := algorithm.NewSolver(contradiction, utils.NewNopLogger())
	_, err = solver.Justify(true)
	assert.ErrorIs(t, err, algorithm.ErrUnjustifiable)
	assert.Greater(t, solver.Stats.Backtracks, 0)
}

func TestJustifyUnwiredOutput(t *testing.T) {
	c := circuit.NewCircuit("unwired")
	c.AddInput(circuit.NewInputNode(1, 0, 0))
	c.AddGate(circuit.NewGate(1, circuit.AND, 0, 0))
	c.AddGate(circuit.NewGate(2, circuit.OR, 0, 0))

	_, err := algorithm.Solve(c, true, nil)
	assert.ErrorIs(t, err, algorithm.ErrUnjustifiable)

	hint, err := algorithm.Solve(c, false, nil)
	require.NoError(t, err)
	assert.Empty(t, hint.Toggles)
	assert.Equal(t, 0, hint.Stats.Decisions)
}

func TestJustifyEmptyCircuit(t *testing.T) {
	c := circuit.NewCircuit("empty")

	_, err := algorithm.Solve(c, true, nil)
	assert.ErrorIs(t, err, algorithm.ErrUnjustifiable)

	_, err = algorithm.Solve(c, false, nil)
	assert.NoError(t, err)
}

func TestJustifyRejectsCycles(t *testing.T) {
	c := circuit.NewCircuit("ring")
	c.AddGate(circuit.NewGate(1, circuit.NOT, 0, 0))
	c.AddGate(circuit.NewGate(2, circuit.NOT, 0, 0))
	rules := circuit.Rules{AllowCycles: true}
	require.NoError(t, c.Connect(circuit.Connect(circuit.FromGate(2), 1, 0), rules))
	require.NoError(t, c.Connect(circuit.Connect(circuit.FromGate(1), 2, 0), rules))

	_, err := algorithm.Solve(c, true, nil)
	assert.ErrorIs(t, err, algorithm.ErrCyclicCircuit)
}

func TestSolverDoesNotMutateCircuit(t *testing.T) {
	c := parse(t, "INPUT(a)\nOUTPUT(o)\no = NOT(a)\n")
	before := c.Clone()

	_, err := algorithm.Solve(c, false, nil)
	require.NoError(t, err)
	assert.Equal(t, before, c)
}

func TestJustifyExhaustiveAgreement(t *testing.T) {
	// Every reachable target must be found, every unreachable one reported
	c := parse(t, `
INPUT(a)
INPUT(b)
INPUT(c)
OUTPUT(o)
ab = AND(a, b)
nc = NOT(c)
o = OR(ab, nc)
`)

	reachable := map[bool]bool{}
	for mask := 0; mask < 8; mask++ {
		trial := c.Clone()
		for i := range trial.Inputs {
			trial.Inputs[i].Value = mask&(1<<i) != 0
		}
		reachable[trial.Evaluate(circuit.Settled)] = true
	}

	for _, target := range []bool{false, true} {
		hint, err := algorithm.Solve(c, target, nil)
		if !reachable[target] {
			assert.ErrorIs(t, err, algorithm.ErrUnjustifiable)
			continue
		}
		require.NoError(t, err, "target %v", target)
		verify(t, c, hint)
	}
}
