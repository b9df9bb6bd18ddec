package ruleindex

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// typeIndexBuckets is the bucket count for the lazily-built
// index_by_src_type/index_by_tgt_type secondary maps. These answer a
// different access pattern than the primary hash (enumerate every node
// touching a given type, not look up an exact key), so collision quality
// under a real hash matters more here than replicating the primary
// formula's arithmetic (spec.md section 4.1: "built lazily on first
// query").
const typeIndexBuckets = 4096

// typeIndex maps a type id to the set of *Node values referencing it in
// a particular position (source or target), hashed with xxhash into a
// fixed bucket array rather than a plain Go map so bucket distribution
// is explicit. Index.Stats reports only the primary hash buckets, not
// these.
type typeIndex struct {
	buckets [][]typeIndexEntry
	built   bool
}

type typeIndexEntry struct {
	typeID int
	nodes  []*Node
}

func newTypeIndex() *typeIndex {
	return &typeIndex{buckets: make([][]typeIndexEntry, typeIndexBuckets)}
}

func hashTypeID(id int) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(id)))
	return int(xxhash.Sum64(buf[:]) % typeIndexBuckets)
}

func (t *typeIndex) add(typeID int, n *Node) {
	h := hashTypeID(typeID)
	bucket := t.buckets[h]
	for i := range bucket {
		if bucket[i].typeID == typeID {
			bucket[i].nodes = append(bucket[i].nodes, n)
			t.buckets[h] = bucket
			return
		}
	}
	t.buckets[h] = append(bucket, typeIndexEntry{typeID: typeID, nodes: []*Node{n}})
}

func (t *typeIndex) get(typeID int) []*Node {
	h := hashTypeID(typeID)
	for _, e := range t.buckets[h] {
		if e.typeID == typeID {
			return e.nodes
		}
	}
	return nil
}
