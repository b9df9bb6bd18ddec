package ifa

import (
	"testing"

	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

type stubEvaluator struct{}

func (stubEvaluator) Eval(expr policyview.CondExpr, state interface {
	Bool(id int) (policyview.Bool, bool)
}) bool {
	return false
}

func newFlowFixture(t *testing.T) (*policyview.View, map[string]int) {
	t.Helper()
	v := policyview.New(30)
	ids := map[string]int{}
	ids["a"] = v.AddType("a")
	ids["b"] = v.AddType("b")
	obj := v.AddType("shared_t")
	ids["shared_t"] = obj

	readP := v.AddPermission("read", -1)
	writeP := v.AddPermission("write", -1)
	ids["file"] = v.AddClass("file", -1, readP, writeP)
	ids["read"], ids["write"] = readP, writeP

	noCond := policyview.CondRef{ExprID: -1}
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["a"]), policyview.Types(obj), []int{ids["file"]}, []int{writeP}, 0, noCond)
	v.AddAVRule(policyview.RuleAllow, policyview.Types(ids["b"]), policyview.Types(obj), []int{ids["file"]}, []int{readP}, 0, noCond)

	pm := policyview.NewPermMap()
	if err := pm.Set(ids["file"], readP, policyview.DirRead, 3); err != nil {
		t.Fatalf("pm.Set read: %v", err)
	}
	if err := pm.Set(ids["file"], writeP, policyview.DirWrite, 4); err != nil {
		t.Fatalf("pm.Set write: %v", err)
	}
	v.SetPermissionMap(pm)

	return v, ids
}

func TestBuildGraphRequiresPermissionMap(t *testing.T) {
	v := policyview.New(30)
	_, err := BuildGraph(v, stubEvaluator{}, BuildOptions{})
	if err == nil {
		t.Fatal("expected error without a permission map")
	}
}

func TestBuildGraphWriteAndReadEdges(t *testing.T) {
	v, ids := newFlowFixture(t)
	g, err := BuildGraph(v, stubEvaluator{}, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	srcA := NodeRef{Kind: Source, Type: ids["a"], Class: -1}
	tgtShared := NodeRef{Kind: Target, Type: ids["shared_t"], Class: ids["file"]}
	srcB := NodeRef{Kind: Source, Type: ids["b"], Class: -1}

	out := g.OutEdges(srcA)
	if len(out) != 1 || out[0].To != tgtShared || out[0].Length != 4 {
		t.Fatalf("expected a->shared_t write edge length 4, got %+v", out)
	}

	foundRead := false
	for _, e := range g.OutEdges(tgtShared) {
		if e.To == srcB && e.Length == 3 {
			foundRead = true
		}
	}
	if !foundRead {
		t.Fatalf("expected shared_t->b read edge length 3, got %+v", g.OutEdges(tgtShared))
	}
}

func TestBuildGraphPermTildaInvertsDirection(t *testing.T) {
	v := policyview.New(30)
	a := v.AddType("a")
	obj := v.AddType("shared_t")
	readP := v.AddPermission("read", -1)
	writeP := v.AddPermission("write", -1)
	fileClass := v.AddClass("file", -1, readP, writeP)

	noCond := policyview.CondRef{ExprID: -1}
	v.AddAVRule(policyview.RuleAllow, policyview.Types(a), policyview.Types(obj), []int{fileClass}, []int{writeP}, policyview.PermTilda, noCond)

	pm := policyview.NewPermMap()
	if err := pm.Set(fileClass, readP, policyview.DirRead, 5); err != nil {
		t.Fatalf("pm.Set: %v", err)
	}
	v.SetPermissionMap(pm)

	g, err := BuildGraph(v, stubEvaluator{}, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	srcA := NodeRef{Kind: Source, Type: a, Class: -1}
	tgtShared := NodeRef{Kind: Target, Type: obj, Class: fileClass}

	// ~{write} on file expands to {read}. Without PERM_TILDA, DirRead
	// would produce tgt->src. Inverted, it becomes DirWrite, producing
	// src->tgt instead.
	if out := g.OutEdges(srcA); len(out) != 1 || out[0].To != tgtShared {
		t.Fatalf("expected inverted edge a->shared_t, got %+v", out)
	}
	if out := g.OutEdges(tgtShared); len(out) != 0 {
		t.Fatalf("expected no shared_t->a edge after inversion, got %+v", out)
	}
}

func TestBuildGraphMergesDuplicateEdgesByShorterLength(t *testing.T) {
	v := policyview.New(30)
	a := v.AddType("a")
	obj := v.AddType("shared_t")
	writeP := v.AddPermission("write", -1)
	fileClass := v.AddClass("file", -1, writeP)

	noCond := policyview.CondRef{ExprID: -1}
	r1 := v.AddAVRule(policyview.RuleAllow, policyview.Types(a), policyview.Types(obj), []int{fileClass}, []int{writeP}, 0, noCond)
	r2 := v.AddAVRule(policyview.RuleAllow, policyview.Types(a), policyview.Types(obj), []int{fileClass}, []int{writeP}, 0, noCond)

	pm := policyview.NewPermMap()
	if err := pm.Set(fileClass, writeP, policyview.DirWrite, 7); err != nil {
		t.Fatalf("pm.Set: %v", err)
	}
	v.SetPermissionMap(pm)

	g, err := BuildGraph(v, stubEvaluator{}, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	srcA := NodeRef{Kind: Source, Type: a, Class: -1}
	out := g.OutEdges(srcA)
	if len(out) != 1 {
		t.Fatalf("expected the two rules to merge into one edge, got %+v", out)
	}
	if len(out[0].RuleIDs) != 2 || out[0].RuleIDs[0] != r1 || out[0].RuleIDs[1] != r2 {
		t.Fatalf("expected both rule ids unioned, got %+v (rules %d, %d)", out[0].RuleIDs, r1, r2)
	}
}

func TestBuildGraphExcludesType(t *testing.T) {
	v, ids := newFlowFixture(t)
	g, err := BuildGraph(v, stubEvaluator{}, BuildOptions{ExcludeTypes: []int{ids["b"]}})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	tgtShared := NodeRef{Kind: Target, Type: ids["shared_t"], Class: ids["file"]}
	for _, e := range g.OutEdges(tgtShared) {
		if e.To.Type == ids["b"] {
			t.Fatalf("excluded type b should never appear as an edge endpoint, got %+v", e)
		}
	}
}
