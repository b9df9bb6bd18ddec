package ruleindex

import "github.com/cici0602/sepolicy-engine/internal/policyview"

// RuleProvenance records one originating source rule contributing to a
// node, plus a hint bitfield the caller may use for its own bookkeeping
// (spec.md section 4.1 operation "add_rule_provenance").
type RuleProvenance struct {
	RuleID int
	Hint   uint8
}

// Node is the canonical rule-index entry for one (kind, src, tgt, class)
// key, possibly one of up to two conditional variants of that key
// (spec.md section 3, "Rule Index node").
type Node struct {
	Key Key

	// perms holds the deduplicated permission id set for AV kinds.
	// Stored as a slice (sorted) plus a membership set for O(1)
	// add_datum dedup checks.
	perms    []int
	permSet  map[int]bool

	// defaultType holds the single default type id for TE kinds.
	defaultType int
	hasDefault  bool

	Cond policyview.CondRef

	provenance []RuleProvenance

	next *Node // bucket chain link, ordered as described in key.go
}

// Perms returns the node's permission set (AV kinds only), in ascending
// id order.
func (n *Node) Perms() []int {
	return append([]int(nil), n.perms...)
}

// DefaultType returns the node's single default type (TE kinds only) and
// whether one has been set.
func (n *Node) DefaultType() (int, bool) {
	return n.defaultType, n.hasDefault
}

// Provenance returns the ordered list of source rules that contributed to
// this node.
func (n *Node) Provenance() []RuleProvenance {
	return append([]RuleProvenance(nil), n.provenance...)
}

// addPerm dedup-inserts a permission id (spec.md section 4.1 rule 6).
func (n *Node) addPerm(permID int) {
	if n.permSet == nil {
		n.permSet = make(map[int]bool)
	}
	if n.permSet[permID] {
		return
	}
	n.permSet[permID] = true
	n.perms = append(n.perms, permID)
	sortInts(n.perms)
}

// setDefault replaces the node's default type (spec.md section 4.1 rule
// 7: "If two source rules disagree on the default, the later one wins").
func (n *Node) setDefault(typeID int) {
	n.defaultType = typeID
	n.hasDefault = true
}

func (n *Node) addProvenance(ruleID int, hint uint8) {
	n.provenance = append(n.provenance, RuleProvenance{RuleID: ruleID, Hint: hint})
}
