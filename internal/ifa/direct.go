package ifa

import "sort"

// Dir selects which edge direction(s) a direct-flow query inspects
// (spec.md section 4.3: "dir ∈ {IN, OUT, BOTH, EITHER}").
type Dir int

const (
	DirIn Dir = iota
	DirOut
	DirBoth
	DirEither
)

// ClassFlow is the per-class contribution to one (start, end) flow.
type ClassFlow struct {
	ClassID int
	Length  int
	RuleIDs []int
}

// IFlow is one reported flow between two types (spec.md section 4.3,
// "Output: list of iflow records, one per (start, end) pair, carrying
// per-class rule-id lists").
type IFlow struct {
	Start   int
	End     int
	ByClass []ClassFlow
}

// DirectFilters narrows a Direct query (spec.md section 4.3, "Errors"
// and graph-construction pruning rules).
type DirectFilters struct {
	// EndTypes, if non-empty, restricts results to these end types.
	EndTypes []int
	// MinWeight prunes edges with length > (11 - MinWeight); 0 means
	// no pruning (equivalent to MinWeight=1).
	MinWeight int
}

func (f DirectFilters) maxLen() int {
	if f.MinWeight <= 0 {
		return 11 - 1
	}
	return 11 - f.MinWeight
}

func (f DirectFilters) endAllowed(t int) bool {
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

// Direct runs a direct-flow query from startType (spec.md section 4.3,
// "Direct flows").
func Direct(g *Graph, startType int, dir Dir, filters DirectFilters) []IFlow {
	nodes := g.NodesForType(startType)
	maxLen := filters.maxLen()

	switch dir {
	case DirIn:
		return withStart(collectFlows(g, nodes, filters, maxLen, true), startType)
	case DirOut:
		return withStart(collectFlows(g, nodes, filters, maxLen, false), startType)
	case DirEither:
		in := collectFlows(g, nodes, filters, maxLen, true)
		out := collectFlows(g, nodes, filters, maxLen, false)
		return withStart(mergeFlows(in, out), startType)
	case DirBoth:
		in := indexByEnd(collectFlows(g, nodes, filters, maxLen, true))
		out := indexByEnd(collectFlows(g, nodes, filters, maxLen, false))
		var both []IFlow
		for end, inFlow := range in {
			if outFlow, ok := out[end]; ok {
				both = append(both, IFlow{Start: startType, End: end, ByClass: mergeClassFlows(inFlow.ByClass, outFlow.ByClass)})
			}
		}
		sort.Slice(both, func(i, j int) bool { return both[i].End < both[j].End })
		return both
	}
	return nil
}

func collectFlows(g *Graph, nodes []NodeRef, filters DirectFilters, maxLen int, incoming bool) []IFlow {
	byEnd := make(map[int][]ClassFlow)
	for _, n := range nodes {
		var edges []Edge
		if incoming {
			edges = g.InEdges(n)
		} else {
			edges = g.OutEdges(n)
		}
		for _, e := range edges {
			if e.Length > maxLen {
				continue
			}
			neighbor := e.To
			if !filters.endAllowed(neighbor.Type) {
				continue
			}
			classID := n.Class
			if classID < 0 {
				classID = neighbor.Class
			}
			byEnd[neighbor.Type] = appendClassFlow(byEnd[neighbor.Type], ClassFlow{ClassID: classID, Length: e.Length, RuleIDs: e.RuleIDs})
		}
	}

	out := make([]IFlow, 0, len(byEnd))
	for end, classes := range byEnd {
		out = append(out, IFlow{End: end, ByClass: classes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].End < out[j].End })
	return out
}

func appendClassFlow(classes []ClassFlow, cf ClassFlow) []ClassFlow {
	for i, existing := range classes {
		if existing.ClassID == cf.ClassID {
			if cf.Length < classes[i].Length {
				classes[i].Length = cf.Length
			}
			classes[i].RuleIDs = unionSortedIntSlices(classes[i].RuleIDs, cf.RuleIDs)
			return classes
		}
	}
	return append(classes, cf)
}

func unionSortedIntSlices(a, b []int) []int {
	for _, v := range b {
		a = unionSortedInt(a, v)
	}
	return a
}

func mergeClassFlows(a, b []ClassFlow) []ClassFlow {
	out := append([]ClassFlow(nil), a...)
	for _, cf := range b {
		out = appendClassFlow(out, cf)
	}
	return out
}

func mergeFlows(a, b []IFlow) []IFlow {
	byEnd := make(map[int]IFlow, len(a)+len(b))
	for _, f := range a {
		byEnd[f.End] = f
	}
	for _, f := range b {
		if existing, ok := byEnd[f.End]; ok {
			existing.ByClass = mergeClassFlows(existing.ByClass, f.ByClass)
			byEnd[f.End] = existing
		} else {
			byEnd[f.End] = f
		}
	}
	out := make([]IFlow, 0, len(byEnd))
	for _, f := range byEnd {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].End < out[j].End })
	return out
}

func withStart(flows []IFlow, start int) []IFlow {
	for i := range flows {
		flows[i].Start = start
	}
	return flows
}

func indexByEnd(flows []IFlow) map[int]IFlow {
	m := make(map[int]IFlow, len(flows))
	for _, f := range flows {
		m[f.End] = f
	}
	return m
}
