// Package relation is the external relation collaborator named in spec.md
// §1 as an out-of-scope black box: a disk-backed file of variable-length
// tuples, iterated during index construction to extract fixed-offset
// integer attributes. It is built on the same slotted-page layout the
// storage package defines for heap-style tuples (storage.Page's
// InsertTuple/ReadTuple), so both the buffer pool and the index see one
// consistent page format throughout the repo.
package relation

import (
	"errors"
	"io"

	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/storage"
)

// RecordID identifies a tuple within a relation file by page number and
// slot index. This is the record identifier the B+-tree index stores
// alongside each key.
type RecordID struct {
	PageNo storage.PageID
	SlotNo uint32
}

// ErrEndOfFile mirrors spec.md §7's EndOfFile kind: raised by the scanner
// at the end of input and always caught by the build loop, never surfaced
// past it.
var ErrEndOfFile = io.EOF

// Writer appends tuples to a relation file through the
// buffer pool, allocating new pages as each fills.
type Writer struct {
	file storage.File
	bp   *bufferpool.Pool

	curPageNo storage.PageID
	curPage   *storage.Page
}

// NewWriter opens a fresh append cursor. If the file already has pages,
// appending resumes on the last one.
func NewWriter(file storage.File, bp *bufferpool.Pool) (*Writer, error) {
	w := &Writer{file: file, bp: bp}
	if file.NumPages() > 0 {
		last := storage.PageID(file.NumPages())
		page, err := bp.ReadPage(file, last)
		if err != nil {
			return nil, err
		}
		w.curPageNo, w.curPage = last, page
	} else {
		if err := w.allocPage(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) allocPage() error {
	pageNo, page, err := w.bp.AllocPage(w.file)
	if err != nil {
		return err
	}
	w.curPageNo, w.curPage = pageNo, page
	return nil
}

// Append writes tup to the relation, allocating a new page if the
// current one has no room, and returns the tuple's RecordID.
func (w *Writer) Append(tup []byte) (RecordID, error) {
	slot, err := w.curPage.InsertTuple(tup)
	if errors.Is(err, storage.ErrNoSpace) {
		if err := w.bp.UnpinPage(w.file, w.curPageNo, true); err != nil {
			return RecordID{}, err
		}
		if err := w.allocPage(); err != nil {
			return RecordID{}, err
		}
		slot, err = w.curPage.InsertTuple(tup)
		if err != nil {
			return RecordID{}, err
		}
	} else if err != nil {
		return RecordID{}, err
	}
	return RecordID{PageNo: w.curPageNo, SlotNo: uint32(slot)}, nil
}

// Close unpins the writer's current page, marking it dirty.
func (w *Writer) Close() error {
	if w.curPage == nil {
		return nil
	}
	return w.bp.UnpinPage(w.file, w.curPageNo, true)
}

// Scanner iterates every live tuple of a relation file in ascending
// (pageNo, slotNo) order, the access pattern index construction uses to
// extract keys.
type Scanner struct {
	file storage.File
	bp   *bufferpool.Pool

	pageNo  storage.PageID
	slot    int
	page    *storage.Page
	started bool
}

// NewScanner opens a scan cursor positioned before the first tuple.
func NewScanner(file storage.File, bp *bufferpool.Pool) *Scanner {
	return &Scanner{file: file, bp: bp, pageNo: 1}
}

// Next returns the next live tuple's RecordID and bytes, or ErrEndOfFile
// once every page has been exhausted.
func (s *Scanner) Next() (RecordID, []byte, error) {
	for {
		if s.page == nil {
			if s.pageNo > storage.PageID(s.file.NumPages()) {
				return RecordID{}, nil, ErrEndOfFile
			}
			page, err := s.bp.ReadPage(s.file, s.pageNo)
			if err != nil {
				return RecordID{}, nil, err
			}
			s.page = page
			s.slot = 0
		}

		if s.slot >= s.page.NumSlots() {
			if err := s.bp.UnpinPage(s.file, s.pageNo, false); err != nil {
				return RecordID{}, nil, err
			}
			s.page = nil
			s.pageNo++
			continue
		}

		tup, err := s.page.ReadTuple(s.slot)
		rid := RecordID{PageNo: s.pageNo, SlotNo: uint32(s.slot)}
		s.slot++
		if errors.Is(err, storage.ErrBadSlot) {
			continue // deleted slot, skip
		}
		if err != nil {
			return RecordID{}, nil, err
		}
		return rid, tup, nil
	}
}

// Close releases the scanner's currently pinned page, if any.
func (s *Scanner) Close() error {
	if s.page == nil {
		return nil
	}
	return s.bp.UnpinPage(s.file, s.pageNo, false)
}
