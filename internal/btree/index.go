// Package btree implements a persistent, single-threaded B+-tree index of
// fixed-width integer keys to external record identifiers, built entirely
// through the bufferpool package's paged interface: every node read,
// write, split, and root promotion is a sequence of pin/mutate/unpin
// calls whose correctness depends on the buffer pool's contracts.
package btree

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/bx"
	"github.com/tuannm99/ixdb/internal/relation"
	"github.com/tuannm99/ixdb/internal/storage"
)

// metaPageNum is the page number the metadata page occupies. Every index
// file's very first AllocatePage call — made by New, before anything else
// touches the file — claims page 1, so this holds without needing to
// persist the metadata PageId separately (spec.md §9).
const metaPageNum storage.PageID = 1

// Index is a persistent B+-tree over one (relationName, attrByteOffset)
// attribute of an external relation file.
type Index struct {
	file storage.File
	bp   *bufferpool.Pool

	relationName   string
	attrByteOffset int32
	attrType       AttrType

	rootPageNum storage.PageID
	isRootLeaf  bool

	// scan state, one scan active at a time (spec.md §4.2.4 / §5).
	scanExecuting bool
	lowOp, highOp Op
	lowVal        Key
	highVal       Key
	curPageNum    storage.PageID
	curPage       *storage.Page
	nextEntry     int
}

// IndexFileName forms "{relationName}.{attrByteOffset}" per spec.md §6.
func IndexFileName(relationName string, attrByteOffset int32) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// New opens the index file "{relationName}.{attrByteOffset}", creating
// and building it from relationFile if it does not already exist, or
// validating and reopening it if it does (spec.md §4.2.1).
func New(dir string, relationName string, attrByteOffset int32, attrType AttrType, bp *bufferpool.Pool, relationFile storage.File) (*Index, error) {
	path := dir + "/" + IndexFileName(relationName, attrByteOffset)
	fresh := !storage.Exists(path)

	f, err := storage.OpenDiskFile(path)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		file:           f,
		bp:             bp,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
	}

	if fresh {
		if err := idx.create(relationFile); err != nil {
			return nil, err
		}
		slog.Info("btree.New.created", "file", path)
		return idx, nil
	}

	if err := idx.openExisting(); err != nil {
		return nil, err
	}
	slog.Info("btree.New.opened", "file", path)
	return idx, nil
}

// create allocates the metadata page and an empty root leaf, then bulk
// loads the index by scanning relationFile and calling InsertEntry for
// every record's key at attrByteOffset.
func (idx *Index) create(relationFile storage.File) error {
	if _, _, err := idx.bp.AllocPage(idx.file); err != nil { // metadata page, page 1
		return err
	}
	if err := idx.bp.UnpinPage(idx.file, metaPageNum, false); err != nil {
		return err
	}

	rootPid, rootPage, err := idx.bp.AllocPage(idx.file)
	if err != nil {
		return err
	}
	leafPage{rootPage}.reset()
	idx.rootPageNum = rootPid
	idx.isRootLeaf = true
	if err := idx.bp.UnpinPage(idx.file, rootPid, true); err != nil {
		return err
	}

	if err := idx.buildFromRelation(relationFile); err != nil {
		return err
	}

	meta, err := idx.bp.ReadPage(idx.file, metaPageNum)
	if err != nil {
		return err
	}
	m := metaPage{meta}
	m.setRelationName(idx.relationName)
	m.setAttrByteOffset(idx.attrByteOffset)
	m.setAttrType(idx.attrType)
	m.setRootPageNum(idx.rootPageNum)
	m.setIsRootLeaf(idx.isRootLeaf)
	return idx.bp.UnpinPage(idx.file, metaPageNum, true)
}

// buildFromRelation scans relationFile's tuples, extracting the integer
// key at attrByteOffset from each, and inserts every (key, rid) pair.
func (idx *Index) buildFromRelation(relationFile storage.File) error {
	scanner := relation.NewScanner(relationFile, idx.bp)
	defer scanner.Close()

	for {
		rid, tup, err := scanner.Next()
		if err == relation.ErrEndOfFile {
			return nil
		}
		if err != nil {
			return err
		}
		key := decodeKeyAt(tup, int(idx.attrByteOffset))
		if err := idx.InsertEntry(key, rid); err != nil {
			return err
		}
	}
}

func decodeKeyAt(tup []byte, offset int) Key {
	return int32(bx.U32(tup[offset : offset+4]))
}

// openExisting reads the metadata page of a pre-existing index file and
// validates it against the constructor's arguments.
func (idx *Index) openExisting() error {
	meta, err := idx.bp.ReadPage(idx.file, metaPageNum)
	if err != nil {
		return err
	}
	m := metaPage{meta}

	if m.relationName() != idx.relationName ||
		m.attrByteOffset() != idx.attrByteOffset ||
		m.attrType() != idx.attrType {
		_ = idx.bp.UnpinPage(idx.file, metaPageNum, false)
		return ErrBadIndexInfo
	}

	idx.rootPageNum = m.rootPageNum()
	idx.isRootLeaf = m.isRootLeaf()
	return idx.bp.UnpinPage(idx.file, metaPageNum, false)
}

// Flush writes back every dirty page of the index file without closing
// the underlying file handle, for periodic checkpointing.
func (idx *Index) Flush() error {
	return idx.bp.FlushFile(idx.file)
}

// Close flushes the index file through the buffer pool and releases the
// file handle. Any active scan is considered terminated.
func (idx *Index) Close() error {
	if idx.scanExecuting {
		if err := idx.EndScan(); err != nil {
			return err
		}
	}
	if err := idx.bp.FlushFile(idx.file); err != nil {
		return err
	}
	return idx.file.Close()
}
