// Package bufferpool implements a fixed-capacity page-frame cache with a
// clock-sweep replacement policy and explicit pin/unpin reference counting,
// following the teacher's bufferpool.Pool design (clock hand, Frame
// descriptors) generalized to the exact contract spec.md §4.1 prescribes.
package bufferpool

import (
	"errors"
	"log/slog"

	"github.com/tuannm99/ixdb/internal/storage"
)

var (
	// ErrBufferExceeded is raised by allocBuf when every frame is pinned
	// and no candidate survives two clock revolutions.
	ErrBufferExceeded = errors.New("bufferpool: all frames pinned, buffer exceeded")

	// ErrPageNotPinned is raised by UnpinPage when the caller unpins a page
	// whose pin count is already zero.
	ErrPageNotPinned = errors.New("bufferpool: page is not pinned")

	// ErrPagePinned is raised by FlushFile when a page of the target file
	// still has outstanding references.
	ErrPagePinned = errors.New("bufferpool: cannot flush, page is pinned")

	// ErrBadBuffer is raised by FlushFile when it finds an invalid frame
	// whose descriptor still names the target file — an internal
	// invariant violation, never a normal caller-facing condition.
	ErrBadBuffer = errors.New("bufferpool: invariant violation, invalid frame mapped")
)

// Frame is one slot of the pool, holding at most one page.
type Frame struct {
	valid  bool
	file   storage.File
	pageNo storage.PageID
	pinCnt int
	dirty  bool
	refbit bool

	buf *storage.Page
}

// Pool is a fixed-size buffer pool shared across any number of open Files.
// It is the sole owner of every in-memory page buffer it hands out;
// callers hold borrowed references valid strictly between ReadPage/AllocPage
// and the matching UnpinPage, per spec.md §5.
type Pool struct {
	frames    []Frame
	ht        *hashTable
	clockHand int
}

// New allocates a pool with the given number of frames. The clock hand
// starts at N-1 so the first sweep step lands on frame 0, per spec.md §4.1.
func New(numFrames int) *Pool {
	if numFrames <= 0 {
		numFrames = 1
	}
	return &Pool{
		frames:    make([]Frame, numFrames),
		ht:        newHashTable(numFrames),
		clockHand: numFrames - 1,
	}
}

// ReadPage pins and returns the page (file, pageNo), loading it from disk
// on a cache miss.
func (p *Pool) ReadPage(file storage.File, pageNo storage.PageID) (*storage.Page, error) {
	key := pageKey{file: file, pageNo: pageNo}

	if idx, ok := p.ht.lookup(key); ok {
		f := &p.frames[idx]
		f.refbit = true
		f.pinCnt++
		slog.Debug("bufferpool.ReadPage.hit", "file", file.Name(), "pageNo", pageNo, "pinCnt", f.pinCnt)
		return f.buf, nil
	}

	idx, err := p.allocBuf()
	if err != nil {
		return nil, err
	}

	page, err := file.ReadPage(pageNo)
	if err != nil {
		return nil, err
	}

	p.frames[idx] = Frame{
		valid:  true,
		file:   file,
		pageNo: pageNo,
		pinCnt: 1,
		dirty:  false,
		refbit: true,
		buf:    page,
	}
	p.ht.insert(key, idx)
	slog.Debug("bufferpool.ReadPage.miss", "file", file.Name(), "pageNo", pageNo, "frame", idx)
	return page, nil
}

// UnpinPage decrements the pin count for (file, pageNo). If the page is not
// currently buffered this is a documented silent no-op. dirty is additive:
// once latched it is only cleared by flush or eviction write-back.
func (p *Pool) UnpinPage(file storage.File, pageNo storage.PageID, dirty bool) error {
	key := pageKey{file: file, pageNo: pageNo}
	idx, ok := p.ht.lookup(key)
	if !ok {
		return nil
	}
	f := &p.frames[idx]
	if f.pinCnt == 0 {
		return ErrPageNotPinned
	}
	f.pinCnt--
	if dirty {
		f.dirty = true
	}
	slog.Debug("bufferpool.UnpinPage", "file", file.Name(), "pageNo", pageNo, "pinCnt", f.pinCnt, "dirty", f.dirty)
	return nil
}

// AllocPage asks file to allocate a brand-new page, installs it pinned in
// the pool, and returns it for the caller to populate.
func (p *Pool) AllocPage(file storage.File) (storage.PageID, *storage.Page, error) {
	pageNo, page, err := file.AllocatePage()
	if err != nil {
		return storage.InvalidPageID, nil, err
	}

	idx, err := p.allocBuf()
	if err != nil {
		return storage.InvalidPageID, nil, err
	}

	key := pageKey{file: file, pageNo: pageNo}
	p.frames[idx] = Frame{
		valid:  true,
		file:   file,
		pageNo: pageNo,
		pinCnt: 1,
		dirty:  false,
		refbit: true,
		buf:    page,
	}
	p.ht.insert(key, idx)
	slog.Debug("bufferpool.AllocPage", "file", file.Name(), "pageNo", pageNo, "frame", idx)
	return pageNo, page, nil
}

// FlushFile writes back every dirty frame belonging to file and releases
// all of its frames. It fails if any page of file is still pinned.
func (p *Pool) FlushFile(file storage.File) error {
	for i := range p.frames {
		f := &p.frames[i]
		if f.file != file {
			continue
		}
		if !f.valid {
			return ErrBadBuffer
		}
		if f.pinCnt > 0 {
			return ErrPagePinned
		}
	}

	for i := range p.frames {
		f := &p.frames[i]
		if f.file != file || !f.valid {
			continue
		}
		if f.dirty {
			if err := file.WritePage(f.buf); err != nil {
				return err
			}
			f.dirty = false
		}
		p.ht.remove(pageKey{file: f.file, pageNo: f.pageNo})
		*f = Frame{}
	}
	slog.Debug("bufferpool.FlushFile", "file", file.Name())
	return nil
}

// DisposePage discards a buffered page (if any) without writing it back and
// asks file to delete it.
func (p *Pool) DisposePage(file storage.File, pageNo storage.PageID) error {
	key := pageKey{file: file, pageNo: pageNo}
	if idx, ok := p.ht.lookup(key); ok {
		p.ht.remove(key)
		p.frames[idx] = Frame{}
	}
	return file.DeletePage(pageNo)
}

// allocBuf runs the clock-sweep replacement policy: each step advances the
// hand by one (mod N) then inspects the frame there. A full revolution
// clears refbits that may let the second revolution find a victim, so
// exhaustion is only reported after two full revolutions return to the
// starting position with no candidate (spec.md §4.1).
func (p *Pool) allocBuf() (int, error) {
	n := len(p.frames)
	steps := 0
	maxSteps := 2 * n

	for steps < maxSteps {
		p.clockHand = (p.clockHand + 1) % n
		steps++
		f := &p.frames[p.clockHand]

		if !f.valid {
			return p.clockHand, nil
		}
		if f.refbit {
			f.refbit = false
			continue
		}
		if f.pinCnt != 0 {
			continue
		}

		// Eviction target.
		if f.dirty {
			if err := f.file.WritePage(f.buf); err != nil {
				return 0, err
			}
		}
		p.ht.remove(pageKey{file: f.file, pageNo: f.pageNo})
		idx := p.clockHand
		*f = Frame{}
		return idx, nil
	}

	return 0, ErrBufferExceeded
}

// NumFrames reports the pool's fixed capacity.
func (p *Pool) NumFrames() int { return len(p.frames) }

// PinCount returns the current pin count for (file, pageNo), or 0 if the
// page is not buffered. Exposed for tests and operational introspection.
func (p *Pool) PinCount(file storage.File, pageNo storage.PageID) int {
	idx, ok := p.ht.lookup(pageKey{file: file, pageNo: pageNo})
	if !ok {
		return 0
	}
	return p.frames[idx].pinCnt
}

// Resident reports whether (file, pageNo) is currently buffered.
func (p *Pool) Resident(file storage.File, pageNo storage.PageID) bool {
	_, ok := p.ht.lookup(pageKey{file: file, pageNo: pageNo})
	return ok
}

// Occupied reports how many frames currently hold a page.
func (p *Pool) Occupied() int {
	n := 0
	for i := range p.frames {
		if p.frames[i].valid {
			n++
		}
	}
	return n
}
