package btree

import (
	"github.com/tuannm99/ixdb/internal/bx"
	"github.com/tuannm99/ixdb/internal/storage"
)

// nodePage is a thin accessor over a non-leaf node's raw bytes: entry
// count, level flag, n keys, and n+1 child page numbers, matching
// spec.md §3's non-leaf layout.
type nodePage struct {
	pg *storage.Page
}

const (
	nodeOffEntries = 0
	nodeOffLevel   = 2
	nodeOffKeys    = nodeHeaderSize
)

func nodeOffChildren() int { return nodeOffKeys + NodeOccupancy*keySize }

func (n nodePage) entries() int {
	return int(bx.U16(n.pg.Buf[nodeOffEntries : nodeOffEntries+2]))
}

func (n nodePage) setEntries(v int) {
	bx.PutU16(n.pg.Buf[nodeOffEntries:nodeOffEntries+2], uint16(v))
}

// level is 1 when this node's children are leaves, 0 when they are
// non-leaves.
func (n nodePage) level() int {
	return int(bx.U16(n.pg.Buf[nodeOffLevel : nodeOffLevel+2]))
}

func (n nodePage) setLevel(v int) {
	bx.PutU16(n.pg.Buf[nodeOffLevel:nodeOffLevel+2], uint16(v))
}

func (n nodePage) key(i int) Key {
	off := nodeOffKeys + i*keySize
	return int32(bx.U32(n.pg.Buf[off : off+4]))
}

func (n nodePage) setKey(i int, k Key) {
	off := nodeOffKeys + i*keySize
	bx.PutU32(n.pg.Buf[off:off+4], uint32(k))
}

func (n nodePage) child(i int) storage.PageID {
	off := nodeOffChildren() + i*childSize
	return bx.U32(n.pg.Buf[off : off+4])
}

func (n nodePage) setChild(i int, pid storage.PageID) {
	off := nodeOffChildren() + i*childSize
	bx.PutU32(n.pg.Buf[off:off+4], pid)
}

func (n nodePage) full() bool {
	return n.entries() >= NodeOccupancy
}

// findChildIndex returns the index of the first key strictly greater
// than k, or entries() if none — the slot whose child pointer routes
// descent for k, per spec.md's searchNodes/searchKey rule (equal keys
// route right, to children[i+1]).
func (n nodePage) findChildIndex(k Key) int {
	cnt := n.entries()
	i := 0
	for i < cnt && n.key(i) <= k {
		i++
	}
	return i
}

// insertAt shifts keys right from i and children right from i+1, then
// installs newKey at i and newChild at i+1. Caller must have verified
// free capacity.
func (n nodePage) insertAt(i int, newKey Key, newChild storage.PageID) {
	cnt := n.entries()
	for j := cnt; j > i; j-- {
		n.setKey(j, n.key(j-1))
	}
	for j := cnt + 1; j > i+1; j-- {
		n.setChild(j, n.child(j-1))
	}
	n.setKey(i, newKey)
	n.setChild(i+1, newChild)
	n.setEntries(cnt + 1)
}
