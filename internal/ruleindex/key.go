// Package ruleindex implements the canonical semantic rule index (spec.md
// section 4.1): every rule in a policy view is expanded into its
// (rule_kind, src, tgt, class) keys and merged into a deduplicated,
// conditional-aware hash, so DTA and information-flow queries can look up
// rule presence in O(1)/O(log n) instead of scanning the raw rule lists.
package ruleindex

import "github.com/cici0602/sepolicy-engine/internal/policyview"

// Key identifies a single canonical rule-index bucket entry.
type Key struct {
	Kind  policyview.RuleKind
	Src   int
	Tgt   int
	Class int
}

// less implements the bucket ordering from spec.md section 4.1: "sorted
// first by src, then tgt, then class, then rule_kind".
func (k Key) less(o Key) bool {
	if k.Src != o.Src {
		return k.Src < o.Src
	}
	if k.Tgt != o.Tgt {
		return k.Tgt < o.Tgt
	}
	if k.Class != o.Class {
		return k.Class < o.Class
	}
	return k.Kind < o.Kind
}

func (k Key) equal(o Key) bool {
	return k.Src == o.Src && k.Tgt == o.Tgt && k.Class == o.Class && k.Kind == o.Kind
}

// HashBuckets is the default bucket count for the primary hash table
// (spec.md section 6 constant: "Default hash bucket count 2^15").
const HashBuckets = 1 << 15

// bucketHash is the spec-mandated arithmetic hash (section 4.1):
// "Hash = (cls + tgt*4 + src*512) mod 2^15". This exact formula is a
// testable property in its own right (bucket layout must be
// bit-identical across two builds of the same policy, spec.md section
// 8), so it is not delegated to a library hash function.
func bucketHash(k Key, numBuckets int) int {
	h := k.Class + k.Tgt*4 + k.Src*512
	h %= numBuckets
	if h < 0 {
		h += numBuckets
	}
	return h
}
