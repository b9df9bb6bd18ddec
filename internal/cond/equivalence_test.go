package cond

import (
	"testing"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

func TestEquivalentIdenticalExpressions(t *testing.T) {
	a := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
		{Op: policyview.TokBool, BoolID: 1},
		{Op: policyview.TokAnd},
	}}
	b := a

	eq := Equivalent(a, b, nil, nil, DefaultMaxBools)
	if !eq.Equal {
		t.Fatalf("expected identical expressions to be equal")
	}
}

func TestEquivalentMappedBooleans(t *testing.T) {
	// Policy A: expr references bool ids 0,1. Policy B: same logical
	// expression but its booleans are numbered 5,6.
	a := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
		{Op: policyview.TokBool, BoolID: 1},
		{Op: policyview.TokOr},
	}}
	b := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 5},
		{Op: policyview.TokBool, BoolID: 6},
		{Op: policyview.TokOr},
	}}

	mapB := map[int]int{5: 0, 6: 1}
	eq := Equivalent(a, b, nil, mapB, DefaultMaxBools)
	if !eq.Equal {
		t.Fatalf("expected mapped expressions to be equal")
	}
}

func TestEquivalentInverse(t *testing.T) {
	a := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
	}}
	b := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
		{Op: policyview.TokNot},
	}}

	eq := Equivalent(a, b, nil, nil, DefaultMaxBools)
	if eq.Equal {
		t.Fatalf("a and !a should not be equal")
	}
	if !eq.Inverse {
		t.Fatalf("a and !a should be inverse")
	}
}

func TestEquivalentNotEqualNotInverse(t *testing.T) {
	a := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
		{Op: policyview.TokBool, BoolID: 1},
		{Op: policyview.TokAnd},
	}}
	b := policyview.CondExpr{Tokens: []policyview.CondToken{
		{Op: policyview.TokBool, BoolID: 0},
		{Op: policyview.TokBool, BoolID: 1},
		{Op: policyview.TokOr},
	}}
	eq := Equivalent(a, b, nil, nil, DefaultMaxBools)
	if eq.Equal || eq.Inverse {
		t.Fatalf("AND and OR over the same two booleans are neither equal nor inverse: %+v", eq)
	}
}
