package cond

import "github.com/cici0602/sepolicy-engine/internal/policyview"

// constState is a BoolState backed by a plain assignment of truth values
// to boolean ids, used to enumerate all 2^k assignments when testing two
// expressions for equivalence.
type constState map[int]bool

func (s constState) Bool(id int) (policyview.Bool, bool) {
	v, ok := s[id]
	if !ok {
		return policyview.Bool{}, false
	}
	return policyview.Bool{ID: id, CurrentState: v}, true
}

// Equivalence is the result of comparing two conditional expressions
// across policies (spec.md section 4.1 "Conditional equivalence"),
// consumed by diff-style callers.
type Equivalence struct {
	// Equal is true iff the two expressions agree on every assignment
	// of their (mapped) distinct booleans.
	Equal bool
	// Inverse is true iff they agree on every inverted assignment.
	Inverse bool
}

// Equivalent tests expr a (under boolean mapping mapA->canonical) and
// expr b (under mapB->canonical) for semantic equivalence. mapA and mapB
// translate each expression's boolean ids into a shared canonical id
// space so expressions from two different policies can be compared.
// Expressions referencing more than maxBools distinct (canonical)
// booleans conservatively never match, mirroring Eval's short-circuit.
func Equivalent(a, b policyview.CondExpr, mapA, mapB map[int]int, maxBools int) Equivalence {
	if maxBools <= 0 {
		maxBools = DefaultMaxBools
	}

	canonA := remap(a, mapA)
	canonB := remap(b, mapB)

	distinct := unionInts(canonA.DistinctBools(), canonB.DistinctBools())
	if len(distinct) > maxBools {
		return Equivalence{Equal: false, Inverse: false}
	}

	ev := NewEvaluator()
	ev.MaxBools = maxBools + 1 // allow Eval to actually run the comparison

	equal, inverse := true, true
	n := len(distinct)
	for mask := 0; mask < (1 << uint(n)); mask++ {
		assign := make(constState, n)
		for i, id := range distinct {
			assign[id] = mask&(1<<uint(i)) != 0
		}
		ra := ev.Eval(canonA, assign)
		rb := ev.Eval(canonB, assign)
		if ra != rb {
			equal = false
		}
		if ra != !rb {
			inverse = false
		}
		if !equal && !inverse {
			break
		}
	}
	return Equivalence{Equal: equal, Inverse: inverse}
}

// remap rewrites the BoolID of every TokBool token in expr through m,
// leaving unmapped ids untouched (the distinct-bool overflow check in
// Equivalent catches the degenerate case).
func remap(expr policyview.CondExpr, m map[int]int) policyview.CondExpr {
	if m == nil {
		return expr
	}
	out := expr
	out.Tokens = make([]policyview.CondToken, len(expr.Tokens))
	for i, t := range expr.Tokens {
		if t.Op == policyview.TokBool {
			if mapped, ok := m[t.BoolID]; ok {
				t.BoolID = mapped
			}
		}
		out.Tokens[i] = t
	}
	return out
}

func unionInts(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, x := range a {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	for _, x := range b {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
