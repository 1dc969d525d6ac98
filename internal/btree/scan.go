package btree

import (
	"errors"

	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/storage"
)

func satisfiesLow(k Key, lowVal Key, lowOp Op) bool {
	if lowOp == GTE {
		return k >= lowVal
	}
	return k > lowVal // GT
}

func violatesHigh(k Key, highVal Key, highOp Op) bool {
	if k > highVal {
		return true
	}
	return k == highVal && highOp == LT
}

// StartScan begins a range scan over [lowVal highVal] per spec.md §4.2.4.
// If a scan is already active it is terminated first, as if EndScan had
// been called.
func (idx *Index) StartScan(lowVal Key, lowOp Op, highVal Key, highOp Op) error {
	if !isLowOp(lowOp) || !isHighOp(highOp) {
		return ErrBadOpcodes
	}
	if lowVal > highVal {
		return ErrBadScanrange
	}
	if idx.scanExecuting {
		if err := idx.EndScan(); err != nil {
			return err
		}
	}

	idx.scanExecuting = true
	idx.lowOp, idx.highOp = lowOp, highOp
	idx.lowVal, idx.highVal = lowVal, highVal

	var leafPid = idx.rootPageNum
	if !idx.isRootLeaf {
		pid, err := idx.searchKey(idx.rootPageNum, lowVal)
		if err != nil {
			idx.scanExecuting = false
			return err
		}
		leafPid = pid
	}

	page, err := idx.bp.ReadPage(idx.file, leafPid)
	if err != nil {
		idx.scanExecuting = false
		return err
	}
	idx.curPageNum, idx.curPage = leafPid, page

	entryIdx := -1
	for leafCount := 0; leafCount < 2; leafCount++ {
		l := leafPage{idx.curPage}
		for i := 0; i < l.entries(); i++ {
			if satisfiesLow(l.key(i), lowVal, lowOp) {
				entryIdx = i
				break
			}
		}
		if entryIdx != -1 || leafCount == 1 {
			break
		}
		rs := l.rightSib()
		if rs == InvalidPageID {
			break
		}
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil {
			return err
		}
		next, err := idx.bp.ReadPage(idx.file, rs)
		if err != nil {
			return err
		}
		idx.curPageNum, idx.curPage = rs, next
	}

	if entryIdx == -1 {
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil {
			return err
		}
		idx.resetScanState()
		return ErrNoSuchKeyFound
	}

	if violatesHigh(leafPage{idx.curPage}.key(entryIdx), highVal, highOp) {
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil {
			return err
		}
		idx.resetScanState()
		return ErrNoSuchKeyFound
	}

	idx.nextEntry = entryIdx
	return nil
}

// searchKey descends non-leaf nodes routing on key, returning the leaf
// that may contain it (spec.md §4.2.4).
func (idx *Index) searchKey(startPid storage.PageID, key Key) (storage.PageID, error) {
	curPid := startPid
	for {
		page, err := idx.bp.ReadPage(idx.file, curPid)
		if err != nil {
			return InvalidPageID, err
		}
		n := nodePage{page}
		i := n.findChildIndex(key)
		childPid := n.child(i)
		level := n.level()
		if err := idx.bp.UnpinPage(idx.file, curPid, false); err != nil {
			return InvalidPageID, err
		}
		if level == 1 {
			return childPid, nil
		}
		curPid = childPid
	}
}

// ScanNext returns the next record id in ascending key order.
func (idx *Index) ScanNext() (RecordID, error) {
	if !idx.scanExecuting {
		return RecordID{}, ErrScanNotInitialized
	}
	if idx.nextEntry == -1 {
		return RecordID{}, ErrIndexScanCompleted
	}

	l := leafPage{idx.curPage}
	k := l.key(idx.nextEntry)
	if violatesHigh(k, idx.highVal, idx.highOp) {
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil {
			return RecordID{}, err
		}
		idx.nextEntry = -1
		idx.curPageNum, idx.curPage = InvalidPageID, nil
		return RecordID{}, ErrIndexScanCompleted
	}

	rid := l.rid(idx.nextEntry)
	idx.nextEntry++

	if idx.nextEntry >= l.entries() {
		rs := l.rightSib()
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil {
			return RecordID{}, err
		}
		if rs == InvalidPageID {
			idx.nextEntry = -1
			idx.curPageNum, idx.curPage = InvalidPageID, nil
		} else {
			page, err := idx.bp.ReadPage(idx.file, rs)
			if err != nil {
				return RecordID{}, err
			}
			idx.curPageNum, idx.curPage = rs, page
			idx.nextEntry = 0
		}
	}

	return rid, nil
}

// EndScan terminates the active scan, releasing its pinned leaf.
func (idx *Index) EndScan() error {
	if !idx.scanExecuting {
		return ErrScanNotInitialized
	}
	if idx.curPageNum != InvalidPageID {
		if err := idx.bp.UnpinPage(idx.file, idx.curPageNum, false); err != nil && !errors.Is(err, bufferpool.ErrPageNotPinned) {
			return err
		}
	}
	idx.resetScanState()
	return nil
}

func (idx *Index) resetScanState() {
	idx.scanExecuting = false
	idx.nextEntry = -1
	idx.curPageNum = InvalidPageID
	idx.curPage = nil
}
