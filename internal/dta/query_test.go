package dta

import (
	"testing"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
	"github.com/cici0602/sepolicy-engine/internal/ruleindex"
)

func TestForwardTransitionsFindsBothBranches(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ForwardTransitions(ids["init_t"], QueryOptions{})
	if len(trs) != 2 {
		t.Fatalf("expected 2 forward transitions (getty_t valid, sshd_exec_t dead-end), got %d: %+v", len(trs), trs)
	}

	var sawValid, sawInvalid bool
	for _, tr := range trs {
		if tr.EndType == ids["getty_t"] && tr.Valid {
			sawValid = true
		}
		if tr.EndType == ids["sshd_exec_t"] && !tr.Valid {
			sawInvalid = true
		}
	}
	if !sawValid {
		t.Fatal("expected a valid transition to getty_t")
	}
	if !sawInvalid {
		t.Fatal("expected an invalid transition to sshd_exec_t")
	}
}

func TestForwardTransitionsValidOnlyFilter(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ForwardTransitions(ids["init_t"], QueryOptions{Filters: []Filter{FilterValidOnly()}})
	if len(trs) != 1 {
		t.Fatalf("expected 1 valid transition after filtering, got %d", len(trs))
	}
	if trs[0].EndType != ids["getty_t"] {
		t.Fatalf("expected getty_t, got %d", trs[0].EndType)
	}
}

func TestReverseTransitionsMatchForward(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ReverseTransitions(ids["getty_t"], QueryOptions{})
	if len(trs) != 1 {
		t.Fatalf("expected 1 reverse transition into getty_t, got %d", len(trs))
	}
	if trs[0].StartType != ids["init_t"] || !trs[0].Valid {
		t.Fatalf("unexpected reverse transition: %+v", trs[0])
	}
}

func TestReverseTransitionsDeadEndIsInvalid(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	trs := tbl.ReverseTransitions(ids["sshd_exec_t"], QueryOptions{})
	if len(trs) != 1 || trs[0].Valid {
		t.Fatalf("expected exactly one invalid reverse transition into sshd_exec_t, got %+v", trs)
	}
}

func TestReverseTransitionsUnreferencedEndTypeIsEmpty(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	trs := tbl.ReverseTransitions(ids["init_t"], QueryOptions{})
	if len(trs) != 0 {
		t.Fatalf("expected no reverse transitions into a type nothing ever proc_trans's to, got %v", trs)
	}
}

func TestVerifyUnknownStartType(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	tr := tbl.Verify(9999, -1, ids["getty_t"])
	if tr.Valid {
		t.Fatal("unknown start type must never verify as valid")
	}
}

func TestFilterByStartAndEndTypes(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ForwardTransitions(ids["init_t"], QueryOptions{
		Filters: []Filter{FilterByStartTypes(ids["init_t"]), FilterByEndTypes(ids["getty_t"])},
	})
	if len(trs) != 1 || trs[0].EndType != ids["getty_t"] {
		t.Fatalf("expected exactly the getty_t transition, got %+v", trs)
	}
}

// newMultiEntrypointFixture gives getty_t two candidate entrypoint file
// types for the same start/end pair: good_exec_t (fully wired) and
// bad_exec_t (execute allowed, but no entrypoint rule at all). Verify
// must judge exactly the entrypoint it's asked about rather than
// reporting the pair valid because some other entrypoint works.
func newMultiEntrypointFixture(version int) (*policyview.View, map[string]int, *ruleindex.Index) {
	v := policyview.New(version)
	ids := map[string]int{}
	ids["init_t"] = v.AddType("init_t")
	ids["getty_t"] = v.AddType("getty_t")
	ids["good_exec_t"] = v.AddType("good_exec_t")
	ids["bad_exec_t"] = v.AddType("bad_exec_t")

	transP := v.AddPermission("transition", -1)
	ids["process"] = v.AddClass("process", -1, transP)

	execP := v.AddPermission("execute", -1)
	entryP := v.AddPermission("entrypoint", -1)
	ids["file"] = v.AddClass("file", -1, execP, entryP)

	noCond := policyview.CondRef{ExprID: -1}

	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["init_t"]), policyview.Types(ids["getty_t"]),
		[]int{ids["process"]}, []int{transP}, 0, noCond)
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["init_t"]), policyview.Types(ids["good_exec_t"]),
		[]int{ids["file"]}, []int{execP}, 0, noCond)
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["getty_t"]), policyview.Types(ids["good_exec_t"]),
		[]int{ids["file"]}, []int{entryP}, 0, noCond)
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["init_t"]), policyview.Types(ids["bad_exec_t"]),
		[]int{ids["file"]}, []int{execP}, 0, noCond)
	v.AddTERule(policyview.RuleTypeTransition, policyview.Types(ids["init_t"]), policyview.Types(ids["good_exec_t"]),
		[]int{ids["process"]}, ids["getty_t"], 0, noCond)

	idx := ruleindex.Build(v, ruleindex.BuildOptions{})
	return v, ids, idx
}

func TestVerifyChecksExactEntrypointNotAnyValidOne(t *testing.T) {
	v, ids, idx := newMultiEntrypointFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	good := tbl.Verify(ids["init_t"], ids["good_exec_t"], ids["getty_t"])
	if !good.Valid {
		t.Fatalf("expected good_exec_t entrypoint to verify valid, got %+v", good)
	}

	bad := tbl.Verify(ids["init_t"], ids["bad_exec_t"], ids["getty_t"])
	if bad.Valid {
		t.Fatalf("bad_exec_t has no entrypoint rule; verifying it must not borrow good_exec_t's validity, got %+v", bad)
	}
	if bad.Missing&Entrypoint == 0 {
		t.Fatalf("expected Entrypoint bit set for bad_exec_t, got %d", bad.Missing)
	}
}

// newOrphanTypeTransFixture has a type_transition rule with no matching
// allow ...:process transition rule at all (spec.md section 4.2, step 1).
func newOrphanTypeTransFixture(version int) (*policyview.View, map[string]int, *ruleindex.Index) {
	v := policyview.New(version)
	ids := map[string]int{}
	ids["init_t"] = v.AddType("init_t")
	ids["getty_t"] = v.AddType("getty_t")
	ids["orphan_exec_t"] = v.AddType("orphan_exec_t")

	transP := v.AddPermission("transition", -1)
	ids["process"] = v.AddClass("process", -1, transP)

	execP := v.AddPermission("execute", -1)
	entryP := v.AddPermission("entrypoint", -1)
	ids["file"] = v.AddClass("file", -1, execP, entryP)

	noCond := policyview.CondRef{ExprID: -1}

	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["init_t"]), policyview.Types(ids["orphan_exec_t"]),
		[]int{ids["file"]}, []int{execP}, 0, noCond)
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["getty_t"]), policyview.Types(ids["orphan_exec_t"]),
		[]int{ids["file"]}, []int{entryP}, 0, noCond)
	v.AddTERule(policyview.RuleTypeTransition, policyview.Types(ids["init_t"]), policyview.Types(ids["orphan_exec_t"]),
		[]int{ids["process"]}, ids["getty_t"], 0, noCond)

	idx := ruleindex.Build(v, ruleindex.BuildOptions{})
	return v, ids, idx
}

func TestForwardTransitionsSurfacesTypeTransWithoutProcTrans(t *testing.T) {
	v, ids, idx := newOrphanTypeTransFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ForwardTransitions(ids["init_t"], QueryOptions{})
	if len(trs) != 1 {
		t.Fatalf("expected exactly 1 candidate from the orphan type_transition, got %d: %+v", len(trs), trs)
	}
	tr := trs[0]
	if tr.Valid {
		t.Fatalf("candidate with no proc_trans rule must not verify valid, got %+v", tr)
	}
	if tr.Missing&ProcTrans == 0 {
		t.Fatalf("expected ProcTrans bit set, got %d", tr.Missing)
	}
	if tr.EntrypointType != ids["orphan_exec_t"] || tr.EndType != ids["getty_t"] {
		t.Fatalf("unexpected candidate shape: %+v", tr)
	}
}

func TestReverseTransitionsSurfacesTypeTransWithoutProcTrans(t *testing.T) {
	v, ids, idx := newOrphanTypeTransFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ReverseTransitions(ids["getty_t"], QueryOptions{})
	if len(trs) != 1 {
		t.Fatalf("expected the type_transition-only candidate to surface in reverse too, got %d: %+v", len(trs), trs)
	}
	if trs[0].Valid || trs[0].StartType != ids["init_t"] {
		t.Fatalf("unexpected reverse candidate: %+v", trs[0])
	}
}

func TestForwardTransitionsSkipsSelfTransition(t *testing.T) {
	v := policyview.New(30)
	initT := v.AddType("init_t")

	transP := v.AddPermission("transition", -1)
	process := v.AddClass("process", -1, transP)
	execP := v.AddPermission("execute", -1)
	v.AddClass("file", -1, execP) // BuildTable requires a recognized executable-file class to exist
	noCond := policyview.CondRef{ExprID: -1}
	v.AddAVRule(policyview.RuleAllow, policyview.Types(initT), policyview.Types(initT), []int{process}, []int{transP}, 0, noCond)

	idx := ruleindex.Build(v, ruleindex.BuildOptions{})
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	trs := tbl.ForwardTransitions(initT, QueryOptions{})
	if len(trs) != 0 {
		t.Fatalf("a self proc_trans rule is not a transition, expected 0 candidates, got %+v", trs)
	}
}

func TestForwardTransitionsCompositionAcrossReset(t *testing.T) {
	v, ids, idx := newFixture(30)
	tbl, err := BuildTable(v, idx, stubEvaluator{}, Options{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	first := tbl.ForwardTransitions(ids["init_t"], QueryOptions{})
	if len(first) != 2 {
		t.Fatalf("expected 2 transitions on the first call, got %d", len(first))
	}

	again := tbl.ForwardTransitions(ids["init_t"], QueryOptions{})
	if len(again) != 0 {
		t.Fatalf("a second un-reset call must only return newly-discovered transitions, got %d", len(again))
	}

	tbl.Reset()
	third := tbl.ForwardTransitions(ids["init_t"], QueryOptions{})
	if len(third) != 2 {
		t.Fatalf("expected 2 transitions again after Reset, got %d", len(third))
	}
}
