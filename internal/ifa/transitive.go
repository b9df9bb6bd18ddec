package ifa

import "sort"

// color mirrors the WHITE/GREY/BLACK/RED node states spec.md section
// 4.3 names for the D'Esopo-Pape label-correcting algorithm. Only the
// RED ("currently in queue") vs not distinction is load-bearing for the
// push-front/push-back node-selection rule; WHITE/GREY/BLACK record
// which nodes were never, once, or finally visited, for parity with the
// spec's description.
type color int

const (
	white color = iota
	grey
	black
	red
)

// TransitiveFilters narrows a Transitive query.
type TransitiveFilters struct {
	// EndTypes, if non-empty, restricts reported paths to these end
	// types.
	EndTypes []int
	MinWeight int
}

func (f TransitiveFilters) maxLen() int {
	if f.MinWeight <= 0 {
		return 11 - 1
	}
	return 11 - f.MinWeight
}

func (f TransitiveFilters) endAllowed(t int) bool {
	if len(f.EndTypes) == 0 {
		return true
	}
	for _, e := range f.EndTypes {
		if e == t {
			return true
		}
	}
	return false
}

// FlowHop is one edge traversed by a transitive path.
type FlowHop struct {
	Type    int
	Class   int // -1 when this hop is a Source node
	RuleIDs []int
}

// FlowPath is a reconstructed multi-hop flow (spec.md section 4.3,
// "Transitive flow").
type FlowPath struct {
	End    int
	Length int
	Hops   []FlowHop // in traversal order, starting type excluded
}

// Transitive runs the label-correcting shortest-path search from every
// node representing startType (spec.md section 4.3, "Transitive
// shortest path"). dir must be DirIn or DirOut; any other value panics.
// Engine.TransitiveFlows checks dir first and returns an InvalidInput
// error instead.
func Transitive(g *Graph, startType int, dir Dir, filters TransitiveFilters) []FlowPath {
	if dir != DirIn && dir != DirOut {
		panic("ifa: Transitive requires DirIn or DirOut")
	}
	maxLen := filters.maxLen()

	dist := make(map[NodeRef]int)
	parent := make(map[NodeRef]NodeRef)
	hasParent := make(map[NodeRef]bool)
	everQueued := make(map[NodeRef]bool)
	colors := make(map[NodeRef]color)

	var queue []NodeRef
	pushBack := func(n NodeRef) { queue = append(queue, n) }
	pushFront := func(n NodeRef) { queue = append([]NodeRef{n}, queue...) }

	for _, n := range g.NodesForType(startType) {
		dist[n] = 0
		colors[n] = red
		everQueued[n] = true
		pushBack(n)
	}

	neighbors := func(n NodeRef) []Edge {
		if dir == DirOut {
			return g.OutEdges(n)
		}
		return g.InEdges(n)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		colors[u] = grey

		for _, e := range neighbors(u) {
			if e.Length > maxLen {
				continue
			}
			v := e.To
			nd := dist[u] + e.Length
			cur, known := dist[v]
			if !known || nd < cur {
				dist[v] = nd
				parent[v] = u
				hasParent[v] = true
				if colors[v] != red {
					if !everQueued[v] {
						pushBack(v)
					} else {
						pushFront(v)
					}
					everQueued[v] = true
					colors[v] = red
				}
			}
		}
	}
	for n := range dist {
		if colors[n] != red {
			colors[n] = black
		}
	}

	bestForType := make(map[int]NodeRef)
	for n, d := range dist {
		if n.Type == startType {
			continue
		}
		if !filters.endAllowed(n.Type) {
			continue
		}
		cur, ok := bestForType[n.Type]
		if !ok || d < dist[cur] {
			bestForType[n.Type] = n
		}
	}

	out := make([]FlowPath, 0, len(bestForType))
	for t, n := range bestForType {
		hops := reconstructPath(g, n, parent, hasParent, dir)
		out = append(out, FlowPath{End: t, Length: dist[n], Hops: hops})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Length != out[j].Length {
			return out[i].Length < out[j].Length
		}
		return out[i].End < out[j].End
	})
	return out
}

func reconstructPath(g *Graph, end NodeRef, parent map[NodeRef]NodeRef, hasParent map[NodeRef]bool, dir Dir) []FlowHop {
	var chain []NodeRef
	cur := end
	for {
		chain = append(chain, cur)
		if !hasParent[cur] {
			break
		}
		cur = parent[cur]
	}
	// chain is end->...->start; reverse to start->...->end.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	hops := make([]FlowHop, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		from, to := chain[i-1], chain[i]
		var ruleIDs []int
		// The traversal walked along in-edges when dir == DirIn, so the
		// actual graph edge runs to -> from in that case.
		if dir == DirOut {
			if e, ok := g.out[from][to]; ok {
				ruleIDs = e.RuleIDs
			}
		} else {
			if e, ok := g.out[to][from]; ok {
				ruleIDs = e.RuleIDs
			}
		}
		hops = append(hops, FlowHop{Type: to.Type, Class: to.Class, RuleIDs: ruleIDs})
	}
	return hops
}
