package cond

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

// String reconstructs an infix, human-readable form of expr's RPN token
// stream for log/warning messages only -- never for a query result.
// Rule-to-string rendering is out of scope for this engine (spec.md
// section 1); this exists solely so a *slog.Logger warning about a
// malformed or conflicting conditional can name the expression.
func String(expr policyview.CondExpr) string {
	var stack []string
	for _, t := range expr.Tokens {
		switch t.Op {
		case policyview.TokBool:
			stack = append(stack, "b"+strconv.Itoa(t.BoolID))
		case policyview.TokNot:
			if len(stack) < 1 {
				return "<malformed>"
			}
			a := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack = append(stack, fmt.Sprintf("!%s", a))
		default:
			if len(stack) < 2 {
				return "<malformed>"
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, fmt.Sprintf("(%s %s %s)", a, opSymbol(t.Op), b))
		}
	}
	if len(stack) != 1 {
		return "<malformed>"
	}
	return stack[0]
}

func opSymbol(op policyview.CondOp) string {
	switch op {
	case policyview.TokAnd:
		return "&&"
	case policyview.TokOr:
		return "||"
	case policyview.TokXor:
		return "^"
	case policyview.TokEq:
		return "=="
	case policyview.TokNeq:
		return "!="
	default:
		return "?"
	}
}

// Summary returns a short diagnostic label combining the expression id
// and its rendered form, e.g. "cond#3 ((b0 && b1) || !b2)".
func Summary(expr policyview.CondExpr) string {
	return strings.TrimSpace(fmt.Sprintf("cond#%d %s", expr.ID, String(expr)))
}
