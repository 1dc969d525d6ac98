package btree

import "github.com/tuannm99/ixdb/internal/storage"

// Page layouts, fixed at compile time so a leaf or non-leaf record always
// fits within one storage.PageSize page (spec.md §6).
const (
	keySize   = 4 // int32
	ridSize   = 8 // RecordID{PageNo uint32, SlotNo uint32}
	childSize = 4 // storage.PageID

	leafHeaderSize = 6 // entries(2) + rightSibPageNo(4)
	nodeHeaderSize = 4 // entries(2) + level(2)

	metaNameSize = 64
	metaPageSize = metaNameSize + 4 + 1 + 4 + 1 // name + offset + attrType + rootPageNum + isRootLeaf
)

// LEAF_OCCUPANCY: the largest N such that the header plus N parallel
// (key, rid) pairs fits in one page.
const LeafOccupancy = (storage.PageSize - leafHeaderSize) / (keySize + ridSize)

// NODE_OCCUPANCY: the largest N such that header + N keys + (N+1)
// children fits in one page.
const NodeOccupancy = (storage.PageSize - nodeHeaderSize - childSize) / (keySize + childSize)

// metaPage must fit within one page; a layout change that breaks this
// fails the build rather than corrupting data silently at runtime.
var _ [storage.PageSize - metaPageSize]struct{}
