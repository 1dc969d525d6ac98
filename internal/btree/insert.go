package btree

import "github.com/tuannm99/ixdb/internal/storage"

// InsertEntry inserts (key, rid) into the tree, dispatching by root kind
// per spec.md §4.2.3.
func (idx *Index) InsertEntry(key Key, rid RecordID) error {
	if idx.isRootLeaf {
		return idx.insertIntoLeaf(idx.rootPageNum, key, rid, nil)
	}
	leafPid, path, err := idx.searchNodes(key)
	if err != nil {
		return err
	}
	return idx.insertIntoLeaf(leafPid, key, rid, path)
}

// searchNodes descends from the root to the leaf that may contain key,
// pushing each visited non-leaf's page id onto path before descending
// further. This is the iterative, explicit-path-stack reformulation
// spec.md §9 prefers over tree recursion.
func (idx *Index) searchNodes(key Key) (leafPid storage.PageID, path []storage.PageID, err error) {
	curPid := idx.rootPageNum

	for {
		page, err := idx.bp.ReadPage(idx.file, curPid)
		if err != nil {
			return InvalidPageID, nil, err
		}
		n := nodePage{page}
		i := n.findChildIndex(key)
		childPid := n.child(i)
		level := n.level()

		path = append(path, curPid)
		if err := idx.bp.UnpinPage(idx.file, curPid, false); err != nil {
			return InvalidPageID, nil, err
		}

		if level == 1 {
			return childPid, path, nil
		}
		curPid = childPid
	}
}

// insertIntoLeaf installs (key, rid) into the leaf at leafPid if it has
// room, else splits it. path is the stack of ancestor non-leaf page ids
// recorded by searchNodes, consumed by splitLeaf's propagation.
func (idx *Index) insertIntoLeaf(leafPid storage.PageID, key Key, rid RecordID, path []storage.PageID) error {
	page, err := idx.bp.ReadPage(idx.file, leafPid)
	if err != nil {
		return err
	}
	l := leafPage{page}

	if !l.full() {
		i := l.findInsertIndex(key)
		l.insertAt(i, key, rid)
		return idx.bp.UnpinPage(idx.file, leafPid, true)
	}

	if err := idx.bp.UnpinPage(idx.file, leafPid, false); err != nil {
		return err
	}
	return idx.splitLeaf(leafPid, key, rid, path)
}

// splitLeaf implements spec.md §4.2.3's leaf split, including the
// even/odd threshold policy that keeps both sides at or above
// floor(LeafOccupancy/2) entries after the new key is inserted.
func (idx *Index) splitLeaf(leafPid storage.PageID, newKey Key, rid RecordID, path []storage.PageID) error {
	rightPid, rightBuf, err := idx.bp.AllocPage(idx.file)
	if err != nil {
		return err
	}
	leafPage{rightBuf}.reset()
	if err := idx.bp.UnpinPage(idx.file, rightPid, true); err != nil {
		return err
	}

	leftBuf, err := idx.bp.ReadPage(idx.file, leafPid)
	if err != nil {
		return err
	}
	left := leafPage{leftBuf}

	c := LeafOccupancy
	var thresh int
	var newGoesLeft bool
	if c%2 == 0 {
		if left.key(c/2-1) > newKey {
			newGoesLeft, thresh = true, c/2-1
		} else {
			newGoesLeft, thresh = false, c/2
		}
	} else {
		if left.key(c/2) > newKey {
			newGoesLeft, thresh = true, c/2
		} else {
			newGoesLeft, thresh = false, c/2+1
		}
	}

	rightBuf, err = idx.bp.ReadPage(idx.file, rightPid)
	if err != nil {
		return err
	}
	right := leafPage{rightBuf}

	moved := left.entries() - thresh
	for j := 0; j < moved; j++ {
		right.setKey(j, left.key(thresh+j))
		right.setRid(j, left.rid(thresh+j))
	}
	right.setEntries(moved)
	left.setEntries(thresh)

	right.setRightSib(left.rightSib())
	left.setRightSib(rightPid)

	if err := idx.bp.UnpinPage(idx.file, leafPid, true); err != nil {
		return err
	}
	if err := idx.bp.UnpinPage(idx.file, rightPid, true); err != nil {
		return err
	}

	targetPid := leafPid
	if !newGoesLeft {
		targetPid = rightPid
	}
	if err := idx.insertIntoLeaf(targetPid, newKey, rid, path); err != nil {
		return err
	}

	rp, err := idx.bp.ReadPage(idx.file, rightPid)
	if err != nil {
		return err
	}
	pushUp := leafPage{rp}.key(0)
	if err := idx.bp.UnpinPage(idx.file, rightPid, false); err != nil {
		return err
	}

	if len(path) == 0 {
		return idx.newRoot(1, pushUp, leafPid, rightPid)
	}
	parentPid := path[len(path)-1]
	return idx.insertIntoNode(parentPid, pushUp, rightPid, path[:len(path)-1])
}

// insertIntoNode installs (newKey, newRightId) into the non-leaf at
// nodePid if it has room, else splits it.
func (idx *Index) insertIntoNode(nodePid storage.PageID, newKey Key, newRightId storage.PageID, path []storage.PageID) error {
	page, err := idx.bp.ReadPage(idx.file, nodePid)
	if err != nil {
		return err
	}
	n := nodePage{page}

	if !n.full() {
		i := n.findChildIndex(newKey)
		n.insertAt(i, newKey, newRightId)
		return idx.bp.UnpinPage(idx.file, nodePid, true)
	}

	if err := idx.bp.UnpinPage(idx.file, nodePid, false); err != nil {
		return err
	}
	return idx.splitNode(nodePid, newKey, newRightId, path)
}

// splitNode implements spec.md §4.2.3's non-leaf split: move the upper
// half of keys/children to a new node, insert the pending entry on
// whichever side it belongs, then push the new node's minimum key up to
// the parent (dropping it from the new node, since it is now implied by
// the separator rather than stored twice).
func (idx *Index) splitNode(nodePid storage.PageID, newKey Key, newRightId storage.PageID, path []storage.PageID) error {
	origBuf, err := idx.bp.ReadPage(idx.file, nodePid)
	if err != nil {
		return err
	}
	orig := nodePage{origBuf}
	level := orig.level()

	m := NodeOccupancy
	var thresh int
	var newGoesLeft bool
	if orig.key(m/2-1) > newKey {
		newGoesLeft, thresh = true, m/2-1
	} else {
		newGoesLeft, thresh = false, m/2
	}

	newPid, newBuf, err := idx.bp.AllocPage(idx.file)
	if err != nil {
		return err
	}
	newNode := nodePage{newBuf}
	newNode.setLevel(level)
	newNode.setEntries(0)

	cnt := orig.entries()
	moved := cnt - thresh
	for j := 0; j < moved; j++ {
		newNode.setKey(j, orig.key(thresh+j))
	}
	for j := 0; j <= moved; j++ {
		newNode.setChild(j, orig.child(thresh+j))
	}
	newNode.setEntries(moved)
	orig.setEntries(thresh)

	if err := idx.bp.UnpinPage(idx.file, nodePid, true); err != nil {
		return err
	}
	if err := idx.bp.UnpinPage(idx.file, newPid, true); err != nil {
		return err
	}

	targetPid := nodePid
	if !newGoesLeft {
		targetPid = newPid
	}
	if err := idx.insertIntoNode(targetPid, newKey, newRightId, path); err != nil {
		return err
	}

	np, err := idx.bp.ReadPage(idx.file, newPid)
	if err != nil {
		return err
	}
	nn := nodePage{np}
	pushUp := nn.key(0)
	nCnt := nn.entries()
	for j := 0; j < nCnt-1; j++ {
		nn.setKey(j, nn.key(j+1))
	}
	for j := 0; j < nCnt; j++ {
		nn.setChild(j, nn.child(j+1))
	}
	nn.setEntries(nCnt - 1)
	if err := idx.bp.UnpinPage(idx.file, newPid, true); err != nil {
		return err
	}

	if len(path) == 0 {
		return idx.newRoot(0, pushUp, nodePid, newPid)
	}
	parentPid := path[len(path)-1]
	return idx.insertIntoNode(parentPid, pushUp, newPid, path[:len(path)-1])
}

// newRoot allocates a new non-leaf root with one key and two children,
// and updates the in-memory root pointer.
func (idx *Index) newRoot(level int, key Key, leftPid, rightPid storage.PageID) error {
	pid, page, err := idx.bp.AllocPage(idx.file)
	if err != nil {
		return err
	}
	n := nodePage{page}
	n.setEntries(1)
	n.setLevel(level)
	n.setKey(0, key)
	n.setChild(0, leftPid)
	n.setChild(1, rightPid)

	idx.rootPageNum = pid
	idx.isRootLeaf = false
	return idx.bp.UnpinPage(idx.file, pid, true)
}
