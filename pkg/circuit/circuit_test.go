package circuit_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
)

// TestInputNodeToggle tests creation and toggling of input nodes
func TestInputNodeToggle(t *testing.T) {
	c := createPuzzleCircuit()

	require.NoError(t, c.Toggle(1))
	node, ok := c.Input(1)
	require.True(t, ok)
	assert.True(t, node.Value)
	assert.Equal(t, "in1=1", node.String())

	require.NoError(t, c.Toggle(1))
	assert.False(t, node.Value)

	err := c.Toggle(9)
	assert.ErrorIs(t, err, circuit.ErrUnknownInput)
}

func TestCircuitLookups(t *testing.T) {
	c := createPuzzleCircuit()

	gate, ok := c.Gate(2)
	require.True(t, ok)
	assert.Equal(t, circuit.OR, gate.Type)
	assert.Equal(t, 1, c.GateIndex(2))
	assert.Equal(t, -1, c.GateIndex(5))

	terminal, ok := c.Terminal()
	require.True(t, ok)
	assert.Equal(t, 2, terminal.ID)

	_, ok = circuit.NewCircuit("empty").Terminal()
	assert.False(t, ok)
	assert.False(t, circuit.NewCircuit("empty").Output())
}

func TestAddGateSizesSlots(t *testing.T) {
	c := circuit.NewCircuit("sizing")
	require.NoError(t, c.AddGate(circuit.Gate{ID: 1, Type: circuit.OR}))
	assert.Len(t, c.Gates[0].Slots, 2)
}

func TestAddRejectsDuplicateIDs(t *testing.T) {
	c := createPuzzleCircuit()

	err := c.AddGate(circuit.NewGate(1, circuit.NOT, 0, 0))
	assert.ErrorIs(t, err, circuit.ErrDuplicateID)
	assert.Len(t, c.Gates, 2)

	err = c.AddInput(circuit.NewInputNode(2, 0, 0))
	assert.ErrorIs(t, err, circuit.ErrDuplicateID)
	assert.Len(t, c.Inputs, 2)

	// Inputs and gates have separate ID spaces
	require.NoError(t, c.AddGate(circuit.NewGate(3, circuit.NOT, 0, 0)))
	require.NoError(t, c.AddInput(circuit.NewInputNode(3, 0, 0)))
}

func TestValidateConnection(t *testing.T) {
	tests := []struct {
		name   string
		setup  []circuit.Connection
		rules  circuit.Rules
		conn   circuit.Connection
		reason error
	}{
		{
			name: "input to AND slot",
			conn: circuit.Connect(circuit.FromInput(1), 1, 0),
		},
		{
			name: "gate to gate",
			conn: circuit.Connect(circuit.FromGate(1), 2, 1),
		},
		{
			name:   "unknown input",
			conn:   circuit.Connect(circuit.FromInput(3), 1, 0),
			reason: circuit.ErrUnknownSource,
		},
		{
			name:   "unknown source gate",
			conn:   circuit.Connect(circuit.FromGate(3), 1, 0),
			reason: circuit.ErrUnknownSource,
		},
		{
			name:   "unknown target",
			conn:   circuit.Connect(circuit.FromInput(1), 7, 0),
			reason: circuit.ErrUnknownGate,
		},
		{
			name:   "slot beyond arity",
			conn:   circuit.Connect(circuit.FromInput(1), 1, 2),
			reason: circuit.ErrSlotOutOfRange,
		},
		{
			name:   "negative slot",
			conn:   circuit.Connect(circuit.FromInput(1), 1, -1),
			reason: circuit.ErrSlotOutOfRange,
		},
		{
			name:   "occupied slot rejected",
			setup:  []circuit.Connection{circuit.Connect(circuit.FromInput(1), 1, 0)},
			conn:   circuit.Connect(circuit.FromInput(2), 1, 0),
			reason: circuit.ErrSlotOccupied,
		},
		{
			name:  "occupied slot allowed with last-wins",
			setup: []circuit.Connection{circuit.Connect(circuit.FromInput(1), 1, 0)},
			rules: circuit.Rules{Slots: circuit.LastWins},
			conn:  circuit.Connect(circuit.FromInput(2), 1, 0),
		},
		{
			name:   "self loop",
			conn:   circuit.Connect(circuit.FromGate(1), 1, 0),
			reason: circuit.ErrSelfLoop,
		},
		{
			name:   "back edge closes cycle",
			setup:  []circuit.Connection{circuit.Connect(circuit.FromGate(1), 2, 0)},
			conn:   circuit.Connect(circuit.FromGate(2), 1, 0),
			reason: circuit.ErrCycle,
		},
		{
			name:  "back edge allowed when cycles allowed",
			setup: []circuit.Connection{circuit.Connect(circuit.FromGate(1), 2, 0)},
			rules: circuit.Rules{AllowCycles: true},
			conn:  circuit.Connect(circuit.FromGate(2), 1, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createPuzzleCircuit()
			c.Connections = append(c.Connections, tt.setup...)

			err := c.Connect(tt.conn, tt.rules)
			if tt.reason == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.conn, c.Connections[len(c.Connections)-1])
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)
			assert.ErrorIs(t, err, circuit.ErrInvalidConnection)
			assert.Len(t, c.Connections, len(tt.setup), "rejected connection must not be appended")

			var invalid *circuit.InvalidConnectionError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.conn, invalid.Connection)
		})
	}
}

func TestValidateNotSecondSlot(t *testing.T) {
	c := circuit.NewCircuit("not")
	c.AddInput(circuit.NewInputNode(1, 0, 0))
	c.AddGate(circuit.NewGate(1, circuit.NOT, 0, 0))

	err := c.Validate(circuit.Connect(circuit.FromInput(1), 1, 1), circuit.Rules{})
	assert.ErrorIs(t, err, circuit.ErrSlotOutOfRange)
}

func TestDriverLastDeclaredWins(t *testing.T) {
	c := createPuzzleCircuit()
	first := circuit.Connect(circuit.FromInput(1), 1, 0)
	second := circuit.Connect(circuit.FromInput(2), 1, 0)
	c.Connections = append(c.Connections, first, second)

	conn, ok := c.Driver(1, 0)
	require.True(t, ok)
	assert.Equal(t, second, conn)

	_, ok = c.Driver(1, 1)
	assert.False(t, ok)
}

func TestCircuitClone(t *testing.T) {
	c := createPuzzleCircuit()
	require.NoError(t, c.Connect(circuit.Connect(circuit.FromInput(1), 1, 0), circuit.Rules{}))
	c.Evaluate(circuit.Settled)

	clone := c.Clone()
	if diff := cmp.Diff(c, clone); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	clone.Inputs[0].Value = true
	clone.Gates[0].Slots[0] = circuit.One
	clone.Connections[0].Slot = 1

	assert.False(t, c.Inputs[0].Value)
	assert.Equal(t, circuit.Zero, c.Gates[0].Slots[0])
	assert.Equal(t, 0, c.Connections[0].Slot)
}

func TestCircuitStringAndValues(t *testing.T) {
	c := createPuzzleCircuit()
	require.NoError(t, c.Toggle(2))
	require.NoError(t, c.Connect(circuit.Connect(circuit.FromInput(2), 2, 1), circuit.Rules{}))
	c.Evaluate(circuit.Settled)

	assert.Equal(t, map[int]bool{1: false, 2: true}, c.InputValues())
	s := c.String()
	assert.Contains(t, s, "Circuit: logic_blocks")
	assert.Contains(t, s, "in2=1")
	assert.Contains(t, s, "in2->g2.1")
	assert.Contains(t, s, "Output: 1")
}

func TestParseSlotPolicy(t *testing.T) {
	p, err := circuit.ParseSlotPolicy("last-wins")
	require.NoError(t, err)
	assert.Equal(t, circuit.LastWins, p)

	p, err = circuit.ParseSlotPolicy("")
	require.NoError(t, err)
	assert.Equal(t, circuit.RejectOccupied, p)

	_, err = circuit.ParseSlotPolicy("first-wins")
	assert.Error(t, err)
}
