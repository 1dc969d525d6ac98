package bufferpool

import (
	"fmt"
	"hash/fnv"

	"github.com/tuannm99/ixdb/internal/storage"
)

// pageKey identifies a buffered page by (file, pageNo). File identity is
// the underlying concrete type's pointer equality — two handles to the
// same open file are distinct keys unless the caller shares one handle,
// per spec.md §9's open question on bufDescTable[i].file comparison, which
// this repo resolves as identity.
type pageKey struct {
	file   storage.File
	pageNo storage.PageID
}

func (k pageKey) digest() string {
	return fmt.Sprintf("%p#%d", k.file, k.pageNo)
}

// htState is the occupancy state of one hashTable slot.
type htState uint8

const (
	htEmpty htState = iota
	htOccupied
	htTombstone
)

type htEntry struct {
	state htState
	key   pageKey
	frame int
}

// hashTable is an open-addressing (file, pageNo) -> frame-index map, sized
// per spec.md §4.1: approximately 1.2x the frame count, rounded to an odd
// number, so probe sequences avoid the even-length cycles that degrade
// linear probing.
type hashTable struct {
	buckets []htEntry
}

func sizeForCapacity(numFrames int) int {
	n := int(float64(numFrames) * 1.2)
	n &^= 1 // round down to even
	return n + 1
}

func newHashTable(numFrames int) *hashTable {
	size := sizeForCapacity(numFrames)
	if size < 1 {
		size = 1
	}
	return &hashTable{buckets: make([]htEntry, size)}
}

func (h *hashTable) indexFor(k pageKey) int {
	hf := fnv.New64a()
	_, _ = hf.Write([]byte(k.digest()))
	return int(hf.Sum64() % uint64(len(h.buckets)))
}

// lookup returns the frame index for k, or (0, false) on a miss — the
// miss path internal callers (readPage, allocBuf) treat as the spec's
// "HashNotFound" control-flow signal, lifted here to a sum-typed return
// rather than a raised error.
func (h *hashTable) lookup(k pageKey) (int, bool) {
	n := len(h.buckets)
	start := h.indexFor(k)
	for i := range n {
		idx := (start + i) % n
		e := &h.buckets[idx]
		switch e.state {
		case htEmpty:
			return 0, false
		case htOccupied:
			if e.key == k {
				return e.frame, true
			}
		case htTombstone:
			// keep probing
		}
	}
	return 0, false
}

func (h *hashTable) insert(k pageKey, frame int) {
	n := len(h.buckets)
	start := h.indexFor(k)
	firstTombstone := -1
	for i := range n {
		idx := (start + i) % n
		e := &h.buckets[idx]
		switch e.state {
		case htEmpty:
			dst := idx
			if firstTombstone != -1 {
				dst = firstTombstone
			}
			h.buckets[dst] = htEntry{state: htOccupied, key: k, frame: frame}
			return
		case htTombstone:
			if firstTombstone == -1 {
				firstTombstone = idx
			}
		case htOccupied:
			if e.key == k {
				e.frame = frame
				return
			}
		}
	}
	// Table is at capacity (should not happen given the 1.2x sizing and the
	// 1:1 relationship between buffered pages and frames); overwrite the
	// first tombstone found, or no-op if none.
	if firstTombstone != -1 {
		h.buckets[firstTombstone] = htEntry{state: htOccupied, key: k, frame: frame}
	}
}

func (h *hashTable) remove(k pageKey) {
	n := len(h.buckets)
	start := h.indexFor(k)
	for i := range n {
		idx := (start + i) % n
		e := &h.buckets[idx]
		switch e.state {
		case htEmpty:
			return
		case htOccupied:
			if e.key == k {
				e.state = htTombstone
				return
			}
		}
	}
}
