// Package ifa implements information-flow analysis (spec.md section
// 4.3): a directed weighted graph built over source-type and per-class
// target-type nodes, with direct-flow, label-correcting shortest-path,
// and randomized multi-path queries.
package ifa

import (
	"log/slog"

	"github.com/cici0602/sepolicy-engine/internal/diag"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
	"github.com/cici0602/sepolicy-engine/internal/ruleindex"
)

// NodeKind distinguishes a plain source-type node from a (type, class)
// target node (spec.md section 4.3, "Graph construction").
type NodeKind int

const (
	Source NodeKind = iota
	Target
)

// NodeRef identifies one information-flow graph node.
type NodeRef struct {
	Kind  NodeKind
	Type  int
	Class int // -1 for Source nodes
}

// Edge is one directed, weighted graph edge. Length is the minimum
// permissible weight contributed by any rule merged into this edge;
// RuleIDs accumulates every contributing rule (spec.md section 4.3:
// "Duplicate edges merge by keeping the shorter length; rule provenance
// unions").
type Edge struct {
	To      NodeRef
	Length  int
	RuleIDs []int
}

// Graph is the built information-flow graph.
type Graph struct {
	out map[NodeRef]map[NodeRef]*Edge
	in  map[NodeRef]map[NodeRef]*Edge

	nodesByType map[int][]NodeRef
}

func newGraph() *Graph {
	return &Graph{
		out:         make(map[NodeRef]map[NodeRef]*Edge),
		in:          make(map[NodeRef]map[NodeRef]*Edge),
		nodesByType: make(map[int][]NodeRef),
	}
}

func (g *Graph) registerNode(n NodeRef) {
	for _, existing := range g.nodesByType[n.Type] {
		if existing == n {
			return
		}
	}
	g.nodesByType[n.Type] = append(g.nodesByType[n.Type], n)
}

// NodesForType returns every node representation (source and target,
// across every class) for a type (spec.md section 4.3, "Collect all
// nodes for start_type").
func (g *Graph) NodesForType(t int) []NodeRef {
	return append([]NodeRef(nil), g.nodesByType[t]...)
}

// OutEdges returns every outgoing edge from n.
func (g *Graph) OutEdges(n NodeRef) []Edge {
	return flattenEdges(g.out[n])
}

// InEdges returns every incoming edge into n. Unlike the shared *Edge
// stored in g.in, To here is rewritten to the predecessor node reached
// by walking the edge backward, since out and in index the same
// pointer and its To field always holds the forward destination.
func (g *Graph) InEdges(n NodeRef) []Edge {
	m := g.in[n]
	out := make([]Edge, 0, len(m))
	for from, e := range m {
		out = append(out, Edge{To: from, Length: e.Length, RuleIDs: e.RuleIDs})
	}
	return out
}

func flattenEdges(m map[NodeRef]*Edge) []Edge {
	out := make([]Edge, 0, len(m))
	for _, e := range m {
		out = append(out, *e)
	}
	return out
}

func (g *Graph) addEdge(from, to NodeRef, length int, ruleID int) {
	g.registerNode(from)
	g.registerNode(to)

	if g.out[from] == nil {
		g.out[from] = make(map[NodeRef]*Edge)
	}
	e, ok := g.out[from][to]
	if !ok {
		e = &Edge{To: to, Length: length}
		g.out[from][to] = e
		if g.in[to] == nil {
			g.in[to] = make(map[NodeRef]*Edge)
		}
		g.in[to][from] = e
	}
	if length < e.Length {
		e.Length = length
	}
	e.RuleIDs = unionSortedInt(e.RuleIDs, ruleID)
}

func unionSortedInt(xs []int, v int) []int {
	i := 0
	for i < len(xs) && xs[i] < v {
		i++
	}
	if i < len(xs) && xs[i] == v {
		return xs
	}
	xs = append(xs, 0)
	copy(xs[i+1:], xs[i:])
	xs[i] = v
	return xs
}

// BuildOptions configures BuildGraph.
type BuildOptions struct {
	// ExcludeTypes lists type ids never considered as src or tgt
	// (spec.md section 4.3: "skip any types in the query's
	// type-exclusion list"). Despite the name this is a build-time
	// option: the graph is rebuilt whenever the caller's exclusion set
	// changes, the same way the rule index is rebuilt on policy edits.
	ExcludeTypes []int
	Callback     diag.Callback
	Logger       *slog.Logger
}

// BuildGraph constructs the information-flow graph from every enabled
// allow rule in view (spec.md section 4.3, "Graph construction"). It
// requires a loaded permission map.
func BuildGraph(view policyview.Interface, ev ruleindex.Evaluator, opts BuildOptions) (*Graph, error) {
	permMap, ok := view.PermissionMap()
	if !ok {
		return nil, diag.New(diag.MissingPermissionMap, "information-flow graph requires a loaded permission map")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	excl := make(map[int]bool, len(opts.ExcludeTypes))
	for _, t := range opts.ExcludeTypes {
		excl[t] = true
	}

	g := newGraph()

	for _, r := range view.AVRules() {
		if r.Kind != policyview.RuleAllow {
			continue
		}
		if !ruleindex.EnabledCond(view, ev, r.Cond) {
			continue
		}
		srcTypes := ruleindex.ExpandSrc(view, r.Src, r.Flags)
		for _, classID := range r.Classes {
			perms := ruleindex.ExpandPerms(view, classID, r.Perms, r.Flags)
			for _, src := range srcTypes {
				if src == policyview.SelfType || excl[src] {
					continue
				}
				tgtTypes := ruleindex.ExpandTgt(view, r.Tgt, r.Flags, src)
				for _, tgt := range tgtTypes {
					if tgt == policyview.SelfType || excl[tgt] {
						continue
					}
					addRuleEdges(g, view, permMap, opts.Callback, logger, r, classID, src, tgt, perms)
				}
			}
		}
	}

	return g, nil
}

func addRuleEdges(g *Graph, view policyview.Interface, permMap policyview.PermMap, cb diag.Callback, logger *slog.Logger,
	r policyview.AVRule, classID, src, tgt int, perms []int) {
	srcNode := NodeRef{Kind: Source, Type: src, Class: -1}
	tgtNode := NodeRef{Kind: Target, Type: tgt, Class: classID}

	for _, permID := range perms {
		entry, ok := permMap.Lookup(classID, permID)
		if !ok {
			diag.Emit(cb, diag.Warning{Kind: diag.UnmappedPermission, Message: "permission has no weight/direction mapping; excluded from information-flow graph"})
			continue
		}
		dir := entry.Direction
		if r.Flags&policyview.PermTilda != 0 {
			dir = dir.Invert()
		}
		if dir.HasRead() {
			g.addEdge(tgtNode, srcNode, entry.Weight, r.ID)
		}
		if dir.HasWrite() {
			g.addEdge(srcNode, tgtNode, entry.Weight, r.ID)
		}
	}
}
