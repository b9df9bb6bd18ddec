package ruleindex

import (
	"log/slog"

	"github.com/cici0602/sepolicy-engine/internal/diag"
	"github.com/cici0602/sepolicy-engine/internal/policyview"
)

// Index is the canonical semantic rule index described in spec.md
// section 4.1. It owns its bucket array exclusively and only borrows the
// policy view read-only for the duration of a build or query (spec.md
// section 5).
type Index struct {
	numBuckets int
	buckets    []*Node

	srcIdx *typeIndex
	tgtIdx *typeIndex

	numNodes int
}

// NewIndex creates an empty Index with the given bucket count (use
// HashBuckets for the spec default).
func NewIndex(numBuckets int) *Index {
	if numBuckets <= 0 {
		numBuckets = HashBuckets
	}
	return &Index{
		numBuckets: numBuckets,
		buckets:    make([]*Node, numBuckets),
	}
}

// chainNodesForKey returns every existing node in key's bucket chain
// whose Key equals key (ignoring Cond). It does not insert anything;
// insertNode adds a new node at its ordered position.
func (idx *Index) chainNodesForKey(key Key) []*Node {
	h := bucketHash(key, idx.numBuckets)
	var out []*Node
	for cur := idx.buckets[h]; cur != nil; cur = cur.next {
		if cur.Key.equal(key) {
			out = append(out, cur)
		}
	}
	return out
}

func (idx *Index) insertNode(n *Node) {
	h := bucketHash(n.Key, idx.numBuckets)
	var prev *Node
	cur := idx.buckets[h]
	for cur != nil && cur.Key.less(n.Key) {
		prev = cur
		cur = cur.next
	}
	n.next = cur
	if prev != nil {
		prev.next = n
	} else {
		idx.buckets[h] = n
	}
	idx.numNodes++
	idx.srcIdx = nil // invalidate lazily-built secondary indices
	idx.tgtIdx = nil
}

// Insert creates or returns the node for key under the given conditional
// annotation for AV rule kinds (spec.md section 4.1 rule 6): a
// non-conditional insert always coalesces with any existing
// non-conditional node for the same key; a conditional insert coalesces
// with an existing node sharing the exact same (expr, branch), creates a
// new co-existing node when it is the opposite branch of an already
// present same-expression node, and otherwise unions into the first
// existing conditional node for the key (permission sets are safe to
// union; unlike TE default types there is no "which one wins" question).
func (idx *Index) Insert(key Key, cond policyview.CondRef) *Node {
	existing := idx.chainNodesForKey(key)

	if !cond.Conditional() {
		for _, n := range existing {
			if !n.Cond.Conditional() {
				return n
			}
		}
		n := &Node{Key: key, Cond: cond}
		idx.insertNode(n)
		return n
	}

	var condNodes []*Node
	for _, n := range existing {
		if n.Cond.Conditional() {
			if n.Cond.ExprID == cond.ExprID && n.Cond.Branch == cond.Branch {
				return n
			}
			condNodes = append(condNodes, n)
		}
	}
	switch len(condNodes) {
	case 0:
		n := &Node{Key: key, Cond: cond}
		idx.insertNode(n)
		return n
	case 1:
		if condNodes[0].Cond.ExprID == cond.ExprID && condNodes[0].Cond.Branch != cond.Branch {
			n := &Node{Key: key, Cond: cond}
			idx.insertNode(n)
			return n
		}
		return condNodes[0]
	default:
		return condNodes[0]
	}
}

// InsertTE enforces the TE-specific "at most two same-keyed nodes" rule
// (spec.md section 4.1 rule 5): one non-conditional node, or two
// conditional nodes iff they share the same conditional expression in
// opposite branches. Any other duplicate is flagged via cb and the
// caller's new rule is dropped (the existing node is returned unchanged,
// and ok is false so the caller knows not to overwrite its default type).
func (idx *Index) InsertTE(key Key, cond policyview.CondRef, cb diag.Callback, logger *slog.Logger) (node *Node, ok bool) {
	existing := idx.chainNodesForKey(key)

	if !cond.Conditional() {
		for _, n := range existing {
			if !n.Cond.Conditional() {
				return n, true // rule 7: later insert wins via SetDefault
			}
		}
		if len(existing) > 0 {
			diag.Emit(cb, diag.Warning{
				Kind:    diag.ConflictingConditionalRule,
				Message: "non-conditional type rule conflicts with existing conditional rule(s) for the same key; later rule dropped",
			})
			if logger != nil {
				logger.Warn("dropping conflicting type rule", "key", key)
			}
			return existing[0], false
		}
		n := &Node{Key: key, Cond: cond}
		idx.insertNode(n)
		return n, true
	}

	var condNodes []*Node
	for _, n := range existing {
		if n.Cond.Conditional() {
			if n.Cond.ExprID == cond.ExprID && n.Cond.Branch == cond.Branch {
				return n, true
			}
			condNodes = append(condNodes, n)
		} else {
			condNodes = append(condNodes, n) // a non-cond node also blocks a clean pair
		}
	}
	switch {
	case len(condNodes) == 0:
		n := &Node{Key: key, Cond: cond}
		idx.insertNode(n)
		return n, true
	case len(condNodes) == 1 && condNodes[0].Cond.Conditional() && condNodes[0].Cond.ExprID == cond.ExprID && condNodes[0].Cond.Branch != cond.Branch:
		n := &Node{Key: key, Cond: cond}
		idx.insertNode(n)
		return n, true
	default:
		diag.Emit(cb, diag.Warning{
			Kind:    diag.ConflictingConditionalRule,
			Message: "conditional type rule conflicts with existing rule(s) for the same key (different expression or same branch); later rule dropped",
		})
		if logger != nil {
			logger.Warn("dropping conflicting type rule", "key", key)
		}
		return condNodes[0], false
	}
}

// FindFirst returns the first node matching key (any conditional
// variant), or nil.
func (idx *Index) FindFirst(key Key) *Node {
	h := bucketHash(key, idx.numBuckets)
	for cur := idx.buckets[h]; cur != nil; cur = cur.next {
		if cur.Key.equal(key) {
			return cur
		}
		if key.less(cur.Key) {
			return nil
		}
	}
	return nil
}

// FindNext returns the next node sharing node's key (its other
// conditional variant), or nil.
func (idx *Index) FindNext(node *Node) *Node {
	for cur := node.next; cur != nil; cur = cur.next {
		if cur.Key.equal(node.Key) {
			return cur
		}
		if node.Key.less(cur.Key) {
			return nil
		}
	}
	return nil
}

// AddDatum dedup-inserts a permission id into an AV node.
func (idx *Index) AddDatum(n *Node, permID int) {
	n.addPerm(permID)
}

// SetDefault replaces a TE node's default type.
func (idx *Index) SetDefault(n *Node, typeID int) {
	n.setDefault(typeID)
}

// AddRuleProvenance records that ruleID (with the given hint bits)
// contributed to node.
func (idx *Index) AddRuleProvenance(n *Node, ruleID int, hint uint8) {
	n.addProvenance(ruleID, hint)
}

// ensureSecondaryIndices lazily builds the src/tgt type secondary
// indices on first query (spec.md section 4.1: "built lazily on first
// query").
func (idx *Index) ensureSecondaryIndices() {
	if idx.srcIdx != nil && idx.tgtIdx != nil {
		return
	}
	src := newTypeIndex()
	tgt := newTypeIndex()
	for _, head := range idx.buckets {
		for cur := head; cur != nil; cur = cur.next {
			src.add(cur.Key.Src, cur)
			tgt.add(cur.Key.Tgt, cur)
		}
	}
	idx.srcIdx = src
	idx.tgtIdx = tgt
}

// IndexBySrcType returns every node where t occurs in the source
// position.
func (idx *Index) IndexBySrcType(t int) []*Node {
	idx.ensureSecondaryIndices()
	return idx.srcIdx.get(t)
}

// IndexByTgtType returns every node where t occurs in the target
// position.
func (idx *Index) IndexByTgtType(t int) []*Node {
	idx.ensureSecondaryIndices()
	return idx.tgtIdx.get(t)
}

// Enabled derives a node's enabled flag (spec.md section 4.1): true if
// non-conditional, otherwise the result of evaluating its conditional
// expression against the current boolean state and comparing to the
// node's branch.
func Enabled(view policyview.Interface, ev Evaluator, n *Node) bool {
	return EnabledCond(view, ev, n.Cond)
}

// EnabledCond is the same derivation Enabled performs, exposed for
// callers (such as the information-flow graph builder) that walk raw
// rules directly instead of canonical index nodes.
func EnabledCond(view policyview.Interface, ev Evaluator, cond policyview.CondRef) bool {
	if !cond.Conditional() {
		return true
	}
	expr, ok := view.CondExpr(cond.ExprID)
	if !ok {
		return false
	}
	want := cond.Branch == policyview.BranchTrue
	return ev.Eval(expr, view) == want
}

// Evaluator is the minimal cond-evaluation contract Enabled needs,
// satisfied by *cond.Evaluator without creating an import cycle between
// ruleindex and cond.
type Evaluator interface {
	Eval(expr policyview.CondExpr, state interface {
		Bool(id int) (policyview.Bool, bool)
	}) bool
}

// Stats summarizes bucket load, mirroring the avh_eval diagnostics in
// original_source/libapol/semantic/avhash.c (spec.md section 4, "
// Supplemented features").
type Stats struct {
	NumBuckets     int
	NumBucketsUsed int
	NumEntries     int
	MaxBucketDepth int
}

// Stats computes bucket-load statistics over the index.
func (idx *Index) Stats() Stats {
	s := Stats{NumBuckets: idx.numBuckets}
	for _, head := range idx.buckets {
		if head == nil {
			continue
		}
		s.NumBucketsUsed++
		depth := 0
		for cur := head; cur != nil; cur = cur.next {
			depth++
		}
		s.NumEntries += depth
		if depth > s.MaxBucketDepth {
			s.MaxBucketDepth = depth
		}
	}
	return s
}

// NumNodes returns the total number of nodes in the index.
func (idx *Index) NumNodes() int { return idx.numNodes }
