package algorithm

import (
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// DecisionNode represents a node in the decision tree
type DecisionNode struct {
	Input       int                // The input node where a decision was made
	Value       circuit.LogicValue // The current assigned value
	Tried       bool               // Whether the alternative value has been tried
	Alternative circuit.LogicValue // The alternative value (the opposite)
}

// Decision manages the decision tree for the solver
type Decision struct {
	Logger      *utils.Logger
	Implication *Implication
	Stack       []*DecisionNode // The decision stack (tree nodes in order)
}

// NewDecision creates a new Decision manager
func NewDecision(i *Implication, logger *utils.Logger) *Decision {
	return &Decision{
		Logger:      logger,
		Implication: i,
		Stack:       make([]*DecisionNode, 0),
	}
}

// MakeDecision assigns an input and records it on the stack
func (d *Decision) MakeDecision(input int, value circuit.LogicValue) {
	node := &DecisionNode{
		Input:       input,
		Value:       value,
		Alternative: value.Not(),
	}
	d.Stack = append(d.Stack, node)
	d.Implication.Assign(input, value)
	d.Logger.Decision("Decision: in%d = %v (depth %d)", input, value, len(d.Stack))
}

// Backtrack undoes decisions until one can flip to its untried
// alternative. It returns false once the stack is exhausted.
func (d *Decision) Backtrack() bool {
	d.Logger.Backtrack("Starting backtracking")

	for len(d.Stack) > 0 {
		lastIdx := len(d.Stack) - 1
		node := d.Stack[lastIdx]

		if !node.Tried {
			node.Value = node.Alternative
			node.Tried = true
			d.Implication.Assign(node.Input, node.Value)
			d.Logger.Backtrack("Trying alternative value %v for in%d", node.Value, node.Input)
			return true
		}

		d.Stack = d.Stack[:lastIdx]
		d.Implication.Unassign(node.Input)
		d.Logger.Backtrack("Both values failed for in%d, continuing backtrack", node.Input)
	}

	d.Logger.Backtrack("Decision stack empty, no more backtracking possible")
	return false
}

// GetCurrentDecisionDepth returns the current depth in the decision tree
func (d *Decision) GetCurrentDecisionDepth() int {
	return len(d.Stack)
}

// Reset resets the decision tree
func (d *Decision) Reset() {
	d.Stack = make([]*DecisionNode, 0)
}
