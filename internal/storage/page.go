package storage

import (
	"github.com/tuannm99/ixdb/internal/bx"
)

// Page is a fixed-size in-memory buffer backing one on-disk page.
//
// Layout:
//
//	+------------------+ 0
//	| flags (2)        |
//	| pageID (4)        |
//	| lower (2)        | <-- slot array end
//	| upper (2)        | <-- tuple data start (grows down)
//	+------------------+ HeaderSize
//	| Slot array       | grows down from HeaderSize
//	|  ...             |
//	+------------------+ <-- lower
//	|   free space     |
//	+------------------+ <-- upper
//	|  Tuple data      | grows up from end of buffer
//	+------------------+ PageSize
//
// Pages carry no type tag: callers (bufferpool, btree, relation) interpret
// the bytes structurally depending on which page number they hold.
type Page struct {
	Buf []byte
}

// NewPage wraps buf (which must be PageSize bytes) as a freshly reset page
// with the given id.
func NewPage(buf []byte, pageID uint32) *Page {
	p := &Page{Buf: buf}
	p.Reset(pageID)
	return p
}

// Reset zeroes the page and reinitializes its header for pageID. NewPage
// calls it for brand-new allocations.
func (p *Page) Reset(pageID uint32) {
	clear(p.Buf)
	bx.PutU16(p.Buf[0:2], 0) // flags, unused
	bx.PutU32(p.Buf[2:6], pageID)
	p.setLower(HeaderSize)
	p.setUpper(PageSize)
}

func (p *Page) PageID() uint32 {
	return bx.U32(p.Buf[2:6])
}

func (p *Page) lower() int { return int(bx.U16(p.Buf[6:8])) }
func (p *Page) setLower(v int) { bx.PutU16(p.Buf[6:8], uint16(v)) }
func (p *Page) upper() int { return int(bx.U16(p.Buf[8:10])) }
func (p *Page) setUpper(v int) { bx.PutU16(p.Buf[8:10], uint16(v)) }

// FreeSpace reports bytes available between the slot array and the tuple
// data region.
func (p *Page) FreeSpace() int {
	return p.upper() - p.lower()
}

// NumSlots reports how many slot-array entries exist (including ones that
// have since been marked deleted/moved).
func (p *Page) NumSlots() int {
	return (p.lower() - HeaderSize) / SlotSize
}

func (p *Page) slotOffset(i int) int {
	return HeaderSize + i*SlotSize
}

func (p *Page) getSlot(i int) (offset, length int, flags uint16) {
	o := p.slotOffset(i)
	return int(bx.U16(p.Buf[o : o+2])),
		int(bx.U16(p.Buf[o+2 : o+4])),
		bx.U16(p.Buf[o+4 : o+6])
}

func (p *Page) putSlot(i, offset, length int, flags uint16) {
	o := p.slotOffset(i)
	bx.PutU16(p.Buf[o:o+2], uint16(offset))
	bx.PutU16(p.Buf[o+2:o+4], uint16(length))
	bx.PutU16(p.Buf[o+4:o+6], flags)
}

// InsertTuple appends a variable-length tuple at the end of the slot array
// and returns its slot index. Used by the relation scanner/writer for
// heap-style records; the B+-tree node layouts below do not use slots at
// all, since their entries are fixed-width arrays per spec.
func (p *Page) InsertTuple(tup []byte) (int, error) {
	need := len(tup) + SlotSize
	if p.FreeSpace() < need {
		return 0, ErrNoSpace
	}
	u := p.upper() - len(tup)
	copy(p.Buf[u:], tup)
	p.setUpper(u)

	slot := p.NumSlots()
	p.putSlot(slot, u, len(tup), SlotFlagNormal)
	p.setLower(p.lower() + SlotSize)
	return slot, nil
}

// ReadTuple returns the live tuple bytes at slot, or ErrBadSlot if the slot
// is out of range or has been deleted.
func (p *Page) ReadTuple(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.NumSlots() {
		return nil, ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags == SlotFlagDeleted {
		return nil, ErrBadSlot
	}
	return p.Buf[offset : offset+length], nil
}

// DeleteTuple marks a slot as dead. The backing bytes are not reclaimed.
func (p *Page) DeleteTuple(slot int) error {
	if slot < 0 || slot >= p.NumSlots() {
		return ErrBadSlot
	}
	p.putSlot(slot, 0, 0, SlotFlagDeleted)
	return nil
}
