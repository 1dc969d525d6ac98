package btree

import (
	"github.com/tuannm99/ixdb/internal/bx"
	"github.com/tuannm99/ixdb/internal/storage"
)

// leafPage is a thin accessor over a leaf node's raw bytes: entry count,
// parallel keys/rids arrays, and a right-sibling page number, matching
// spec.md §3's leaf layout exactly.
type leafPage struct {
	pg *storage.Page
}

const (
	leafOffEntries = 0
	leafOffRightSib = 2
	leafOffKeys    = leafHeaderSize
)

func leafOffRids() int { return leafOffKeys + LeafOccupancy*keySize }

func (l leafPage) entries() int {
	return int(bx.U16(l.pg.Buf[leafOffEntries : leafOffEntries+2]))
}

func (l leafPage) setEntries(n int) {
	bx.PutU16(l.pg.Buf[leafOffEntries:leafOffEntries+2], uint16(n))
}

func (l leafPage) rightSib() storage.PageID {
	return bx.U32(l.pg.Buf[leafOffRightSib : leafOffRightSib+4])
}

func (l leafPage) setRightSib(pid storage.PageID) {
	bx.PutU32(l.pg.Buf[leafOffRightSib:leafOffRightSib+4], pid)
}

func (l leafPage) key(i int) Key {
	off := leafOffKeys + i*keySize
	return int32(bx.U32(l.pg.Buf[off : off+4]))
}

func (l leafPage) setKey(i int, k Key) {
	off := leafOffKeys + i*keySize
	bx.PutU32(l.pg.Buf[off:off+4], uint32(k))
}

func (l leafPage) rid(i int) RecordID {
	off := leafOffRids() + i*ridSize
	return RecordID{
		PageNo: bx.U32(l.pg.Buf[off : off+4]),
		SlotNo: bx.U32(l.pg.Buf[off+4 : off+8]),
	}
}

func (l leafPage) setRid(i int, r RecordID) {
	off := leafOffRids() + i*ridSize
	bx.PutU32(l.pg.Buf[off:off+4], r.PageNo)
	bx.PutU32(l.pg.Buf[off+4:off+8], r.SlotNo)
}

// reset clears a freshly allocated page into an empty leaf.
func (l leafPage) reset() {
	l.setEntries(0)
	l.setRightSib(InvalidPageID)
}

// findInsertIndex returns the first index whose key is strictly greater
// than k — the sorted insertion point spec.md §4.2.3 prescribes, with
// ties (equal keys) placing the new entry after existing equals.
func (l leafPage) findInsertIndex(k Key) int {
	n := l.entries()
	i := 0
	for i < n && l.key(i) <= k {
		i++
	}
	return i
}

// insertAt shifts entries right starting at i and installs (k, rid) at i.
// Caller must have already verified free capacity.
func (l leafPage) insertAt(i int, k Key, rid RecordID) {
	n := l.entries()
	for j := n; j > i; j-- {
		l.setKey(j, l.key(j-1))
		l.setRid(j, l.rid(j-1))
	}
	l.setKey(i, k)
	l.setRid(i, rid)
	l.setEntries(n + 1)
}

// full reports whether the leaf has reached LeafOccupancy.
func (l leafPage) full() bool {
	return l.entries() >= LeafOccupancy
}
