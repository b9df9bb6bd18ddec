package ifa

import (
	"math/rand"

	"github.com/google/uuid"
)

// PathIterator carries the state of one random-BFS multi-path search
// between a fixed start and end type (spec.md section 4.3, "Random-BFS
// multi-path"). It owns its own copy of node colorings so multiple
// iterators over the same graph never interfere (spec.md section 5).
type PathIterator struct {
	// ID tags this search for logging and metrics correlation across
	// repeated find_more calls; a caller juggling several concurrent
	// queries (e.g. one per open CLI/API session) tells them apart by
	// this rather than by pointer identity.
	ID        uuid.UUID
	g         *Graph
	startType int
	endType   int
	dir       Dir
	maxLen    int
	rng       *rand.Rand

	starts   []NodeRef
	startCur int
	seen     map[string]bool
	aborted  bool
}

// NewPathIterator begins a new random-BFS search. seed should come from
// wall time per spec.md section 4.3 ("srand(time(NULL))"); callers pass
// it in explicitly since this package never seeds from the clock itself.
func NewPathIterator(g *Graph, startType, endType int, dir Dir, minWeight int, seed int64) *PathIterator {
	maxLen := 11 - 1
	if minWeight > 0 {
		maxLen = 11 - minWeight
	}
	return &PathIterator{
		ID:        uuid.New(),
		g:         g,
		startType: startType,
		endType:   endType,
		dir:       dir,
		maxLen:    maxLen,
		rng:       rand.New(rand.NewSource(seed)),
		starts:    g.NodesForType(startType),
		seen:      make(map[string]bool),
	}
}

// Abort marks the iterator as exhausted; subsequent Next calls return
// nil immediately.
func (it *PathIterator) Abort() { it.aborted = true }

// Next runs one outer-loop iteration (one start-node BFS pass) and
// returns every newly discovered, previously unseen path to endType.
// It returns nil once the iterator is aborted or the start-node list is
// empty.
func (it *PathIterator) Next() []FlowPath {
	if it.aborted || len(it.starts) == 0 {
		return nil
	}
	start := it.starts[it.startCur]
	it.startCur = (it.startCur + 1) % len(it.starts)

	return it.bfsFrom(start)
}

func (it *PathIterator) neighbors(n NodeRef) []Edge {
	var edges []Edge
	if it.dir == DirOut {
		edges = it.g.OutEdges(n)
	} else {
		edges = it.g.InEdges(n)
	}
	var filtered []Edge
	for _, e := range edges {
		if e.Length <= it.maxLen {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func (it *PathIterator) bfsFrom(start NodeRef) []FlowPath {
	parent := map[NodeRef]NodeRef{}
	hasParent := map[NodeRef]bool{}
	visited := map[NodeRef]bool{start: true}
	queue := []NodeRef{start}

	var found []FlowPath

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		edges := it.neighbors(u)
		order := it.rng.Perm(len(edges))
		for _, idx := range order {
			e := edges[idx]
			v := e.To
			if visited[v] {
				continue
			}
			visited[v] = true
			parent[v] = u
			hasParent[v] = true
			queue = append(queue, v)

			if v.Type == it.endType {
				hops := reconstructPath(it.g, v, parent, hasParent, it.dir)
				key := pathKey(start, hops)
				if !it.seen[key] {
					it.seen[key] = true
					found = append(found, FlowPath{End: v.Type, Hops: hops, Length: sumLengths(it.g, start, hops, it.dir)})
				}
			}
		}
	}
	return found
}

func pathKey(start NodeRef, hops []FlowHop) string {
	s := start.Type
	key := itoa(s) + ":" + itoa(int(start.Kind)) + ":" + itoa(start.Class)
	for _, h := range hops {
		key += "|" + itoa(h.Type) + "," + itoa(h.Class)
	}
	return key
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func sumLengths(g *Graph, start NodeRef, hops []FlowHop, dir Dir) int {
	total := 0
	from := start
	for _, h := range hops {
		to := NodeRef{Type: h.Type, Class: h.Class}
		if h.Class < 0 {
			to.Kind = Source
		} else {
			to.Kind = Target
		}
		var e *Edge
		if dir == DirOut {
			e = g.out[from][to]
		} else {
			e = g.out[to][from]
		}
		if e != nil {
			total += e.Length
		}
		from = to
	}
	return total
}
