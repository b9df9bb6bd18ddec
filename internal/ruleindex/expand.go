package ruleindex

import "github.com/cici0602/sepolicy-engine/internal/policyview"

// expandTypes resolves a TaSet's tagged elements to a sorted, deduplicated
// list of concrete type ids, expanding every attribute reference to its
// member types (spec.md section 4.1, rule 1: "Attribute expansion").
// Literal self elements are passed through untouched; callers resolve
// self against the current rule's source before or after calling this,
// depending on which side they are expanding.
func expandTypes(view policyview.Interface, set policyview.TaSet) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range set.Elems {
		switch e.Kind {
		case policyview.TaAttrib:
			if attr, ok := view.Attribute(e.ID); ok {
				for _, t := range attr.TypeIDs {
					add(t)
				}
			}
		default:
			add(e.ID)
		}
	}
	return sortInts(out)
}

// allTypesExceptSelf returns every type id in view except the reserved
// self pseudo-type, for STAR expansion (spec.md section 4.1 rule 2).
func allTypesExceptSelf(view policyview.Interface) []int {
	n := view.NumTypes()
	out := make([]int, 0, n)
	for id := 1; id < n; id++ {
		out = append(out, id)
	}
	return out
}

// expandSrc resolves a rule's source side to a concrete, sorted type id
// list, honoring SRC_STAR and SRC_TILDA (spec.md section 4.1 rules 1-3).
// The source side never contains a literal self reference (self.md
// section 3: "self" only ever appears on the target side).
func expandSrc(view policyview.Interface, set policyview.TaSet, flags policyview.RuleFlags) []int {
	if flags.has(policyview.SrcStar) {
		return allTypesExceptSelf(view)
	}
	listed := expandTypes(view, set)
	if flags.has(policyview.SrcTilda) {
		return subtractTypes(allTypesExceptSelf(view), listed)
	}
	return listed
}

// expandTgt resolves a rule's target side for one concrete source type
// src, so that a literal self element expands to exactly src (spec.md
// section 4.1 rule 1, and the boundary test requiring self to contribute
// the source type exactly once even inside a multi-type attribute).
func expandTgt(view policyview.Interface, set policyview.TaSet, flags policyview.RuleFlags, src int) []int {
	if flags.has(policyview.TgtStar) {
		return allTypesExceptSelf(view)
	}

	seen := make(map[int]bool)
	var out []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range set.Elems {
		switch {
		case e.Kind == policyview.TaType && e.ID == policyview.SelfType:
			add(src)
		case e.Kind == policyview.TaAttrib:
			if attr, ok := view.Attribute(e.ID); ok {
				for _, t := range attr.TypeIDs {
					add(t)
				}
			}
		default:
			add(e.ID)
		}
	}
	listed := sortInts(out)

	if flags.has(policyview.TgtTilda) {
		return subtractTypes(allTypesExceptSelf(view), listed)
	}
	return listed
}

// expandPerms resolves a rule's permission set against the union of
// permission ids valid for classID, honoring PERM_STAR and PERM_TILDA
// (spec.md section 4.1 rule 3: "per side independently").
func expandPerms(view policyview.Interface, classID int, permIDs []int, flags policyview.RuleFlags) []int {
	universe := view.ClassPerms(classID)
	if flags.has(policyview.PermStar) {
		return sortInts(append([]int(nil), universe...))
	}
	listed := sortInts(append([]int(nil), permIDs...))
	if flags.has(policyview.PermTilda) {
		return subtractTypes(universe, listed)
	}
	return listed
}

func subtractTypes(universe, listed []int) []int {
	excl := make(map[int]bool, len(listed))
	for _, id := range listed {
		excl[id] = true
	}
	out := make([]int, 0, len(universe))
	for _, id := range universe {
		if !excl[id] {
			out = append(out, id)
		}
	}
	return out
}

// ExpandSrc, ExpandTgt and ExpandPerms re-export the rule-expansion
// helpers for callers outside this package that need to walk raw AV
// rules themselves instead of canonical index nodes -- the information-
// flow graph builder is one, since it needs each rule's original
// PERM_TILDA flag (already folded away once a node exists) to decide
// whether to invert the permission-map direction.
func ExpandSrc(view policyview.Interface, set policyview.TaSet, flags policyview.RuleFlags) []int {
	return expandSrc(view, set, flags)
}

func ExpandTgt(view policyview.Interface, set policyview.TaSet, flags policyview.RuleFlags, src int) []int {
	return expandTgt(view, set, flags, src)
}

func ExpandPerms(view policyview.Interface, classID int, permIDs []int, flags policyview.RuleFlags) []int {
	return expandPerms(view, classID, permIDs, flags)
}

func sortInts(xs []int) []int {
	// small-n insertion sort: rule-level sets are tiny compared to the
	// sorted rule-lists DTA builds over whole types, so a stdlib sort
	// would be overkill ceremony for the common 1-10 element case.
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
	return xs
}
