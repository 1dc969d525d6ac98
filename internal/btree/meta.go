package btree

import (
	"bytes"

	"github.com/tuannm99/ixdb/internal/bx"
	"github.com/tuannm99/ixdb/internal/storage"
)

// metaPage is a thin accessor over page 1 of an index file: relation
// name, key byte offset, attribute type, current root page number, and
// whether that root is a leaf. Laid out starting at byte 0 of the page
// buffer, independent of the storage package's slotted-page header —
// B+-tree pages, including this one, interpret their bytes directly.
type metaPage struct {
	pg *storage.Page
}

const (
	metaOffName       = 0
	metaOffAttrOffset = metaOffName + metaNameSize
	metaOffAttrType   = metaOffAttrOffset + 4
	metaOffRootPage   = metaOffAttrType + 1
	metaOffIsRootLeaf = metaOffRootPage + 4
)

func (m metaPage) relationName() string {
	raw := m.pg.Buf[metaOffName : metaOffName+metaNameSize]
	n := bytes.IndexByte(raw, 0)
	if n < 0 {
		n = len(raw)
	}
	return string(raw[:n])
}

func (m metaPage) setRelationName(name string) {
	dst := m.pg.Buf[metaOffName : metaOffName+metaNameSize]
	clear(dst)
	copy(dst, name)
}

func (m metaPage) attrByteOffset() int32 {
	return int32(bx.U32(m.pg.Buf[metaOffAttrOffset : metaOffAttrOffset+4]))
}

func (m metaPage) setAttrByteOffset(v int32) {
	bx.PutU32(m.pg.Buf[metaOffAttrOffset:metaOffAttrOffset+4], uint32(v))
}

func (m metaPage) attrType() AttrType {
	return AttrType(m.pg.Buf[metaOffAttrType])
}

func (m metaPage) setAttrType(t AttrType) {
	m.pg.Buf[metaOffAttrType] = byte(t)
}

func (m metaPage) rootPageNum() storage.PageID {
	return bx.U32(m.pg.Buf[metaOffRootPage : metaOffRootPage+4])
}

func (m metaPage) setRootPageNum(pid storage.PageID) {
	bx.PutU32(m.pg.Buf[metaOffRootPage:metaOffRootPage+4], pid)
}

func (m metaPage) isRootLeaf() bool {
	return m.pg.Buf[metaOffIsRootLeaf] != 0
}

func (m metaPage) setIsRootLeaf(v bool) {
	if v {
		m.pg.Buf[metaOffIsRootLeaf] = 1
	} else {
		m.pg.Buf[metaOffIsRootLeaf] = 0
	}
}
