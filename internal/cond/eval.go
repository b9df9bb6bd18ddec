// Package cond evaluates the reverse-polish-notation boolean expressions
// that gate conditional policy rules, and tests two expressions for
// semantic equivalence across policies (spec.md section 4.1).
package cond

import "github.com/cici0602/sepolicy-engine/internal/policyview"

// DefaultMaxBools is the default limit on distinct booleans a conditional
// expression may reference before evaluation conservatively short-
// circuits to false (spec.md sections 3 and 9; configurable, not fixed,
// per the Open Question in section 9).
const DefaultMaxBools = 25

// DefaultMaxDepth is the evaluation stack depth bound (spec.md section 3,
// constant COND_EXPR_MAXDEPTH).
const DefaultMaxDepth = 10

// Evaluator evaluates conditional expressions against a boolean-state
// source, honoring configurable depth and distinct-boolean limits.
type Evaluator struct {
	MaxBools int
	MaxDepth int
}

// NewEvaluator returns an Evaluator with the default limits.
func NewEvaluator() *Evaluator {
	return &Evaluator{MaxBools: DefaultMaxBools, MaxDepth: DefaultMaxDepth}
}

// BoolState is anything that can report a boolean's current truth value
// by id. *policyview.View satisfies this directly. It is an alias for the
// interface literal, so *Evaluator also satisfies ruleindex.Evaluator.
type BoolState = interface {
	Bool(id int) (policyview.Bool, bool)
}

// Eval evaluates expr's RPN token stream against state, returning the
// resulting truth value. If expr exceeds MaxBools distinct booleans, Eval
// conservatively returns false without error (spec.md section 3: "> 25
// distinct booleans... otherwise evaluator short-circuits to false").
// Stack overflow (more operands pushed than MaxDepth allows) also
// short-circuits to false rather than panicking; this is the "building
// does not fail" guarantee from spec.md section 7 (MalformedConditional).
func (e *Evaluator) Eval(expr policyview.CondExpr, state BoolState) bool {
	maxBools := e.MaxBools
	if maxBools <= 0 {
		maxBools = DefaultMaxBools
	}
	maxDepth := e.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if len(expr.DistinctBools()) > maxBools {
		return false
	}

	stack := make([]bool, 0, maxDepth)
	push := func(b bool) bool {
		if len(stack) >= maxDepth {
			return false
		}
		stack = append(stack, b)
		return true
	}
	pop := func() (bool, bool) {
		if len(stack) == 0 {
			return false, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, tok := range expr.Tokens {
		switch tok.Op {
		case policyview.TokBool:
			b, ok := state.Bool(tok.BoolID)
			if !ok {
				return false
			}
			if !push(b.CurrentState) {
				return false
			}
		case policyview.TokNot:
			a, ok := pop()
			if !ok || !push(!a) {
				return false
			}
		case policyview.TokAnd, policyview.TokOr, policyview.TokXor, policyview.TokEq, policyview.TokNeq:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return false
			}
			var r bool
			switch tok.Op {
			case policyview.TokAnd:
				r = a && b
			case policyview.TokOr:
				r = a || b
			case policyview.TokXor:
				r = a != b
			case policyview.TokEq:
				r = a == b
			case policyview.TokNeq:
				r = a != b
			}
			if !push(r) {
				return false
			}
		default:
			return false
		}
	}

	if len(stack) != 1 {
		return false
	}
	return stack[0]
}
