package ifa

import "testing"

// buildSpecExampleGraph wires the shortest-path example from spec.md
// section 4.3: types a, b, c with a direct edge a->c of length 10 and a
// two-hop path a->b->c totaling length 5 (2+3). The shortest path to c
// must go through b, not take the longer direct edge.
func buildSpecExampleGraph(a, b, c int) *Graph {
	g := newGraph()
	na := NodeRef{Kind: Source, Type: a, Class: -1}
	nb := NodeRef{Kind: Source, Type: b, Class: -1}
	nc := NodeRef{Kind: Source, Type: c, Class: -1}
	g.addEdge(na, nb, 2, 1)
	g.addEdge(nb, nc, 3, 2)
	g.addEdge(na, nc, 10, 3)
	return g
}

func TestTransitivePrefersShorterMultiHopPath(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	paths := Transitive(g, a, DirOut, TransitiveFilters{})

	var toC *FlowPath
	for i := range paths {
		if paths[i].End == c {
			toC = &paths[i]
		}
	}
	if toC == nil {
		t.Fatalf("expected a path ending at c, got %+v", paths)
	}
	if toC.Length != 5 {
		t.Fatalf("expected shortest path to c to have length 5 (via b), got %d", toC.Length)
	}
	if len(toC.Hops) != 2 || toC.Hops[0].Type != b || toC.Hops[1].Type != c {
		t.Fatalf("expected path a->b->c, got hops %+v", toC.Hops)
	}
}

func TestTransitiveReportsIntermediateType(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	paths := Transitive(g, a, DirOut, TransitiveFilters{})

	var toB *FlowPath
	for i := range paths {
		if paths[i].End == b {
			toB = &paths[i]
		}
	}
	if toB == nil || toB.Length != 2 {
		t.Fatalf("expected a direct path a->b length 2, got %+v", paths)
	}
}

func TestTransitiveDirInWalksReverse(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	paths := Transitive(g, c, DirIn, TransitiveFilters{})

	var fromA *FlowPath
	for i := range paths {
		if paths[i].End == a {
			fromA = &paths[i]
		}
	}
	if fromA == nil || fromA.Length != 5 {
		t.Fatalf("expected reverse shortest path from c back to a of length 5, got %+v", paths)
	}
}

func TestTransitiveEndTypesFilter(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	paths := Transitive(g, a, DirOut, TransitiveFilters{EndTypes: []int{c}})
	if len(paths) != 1 || paths[0].End != c {
		t.Fatalf("expected only the path ending at c, got %+v", paths)
	}
}

func TestTransitiveMinWeightPrunesAllPaths(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	// max_len = 11 - min_weight; min_weight=10 => max_len=1, below even
	// the shortest single edge (length 2), so no paths survive.
	paths := Transitive(g, a, DirOut, TransitiveFilters{MinWeight: 10})
	if len(paths) != 0 {
		t.Fatalf("expected min_weight=10 to prune every edge, got %+v", paths)
	}
}

func TestTransitivePanicsOnInvalidDirection(t *testing.T) {
	const a, b, c = 1, 2, 3
	g := buildSpecExampleGraph(a, b, c)

	defer func() {
		if recover() == nil {
			t.Fatal("expected Transitive to panic for DirBoth/DirEither")
		}
	}()
	Transitive(g, a, DirBoth, TransitiveFilters{})
}
