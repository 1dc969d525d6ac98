package btree

import (
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/ixdb/internal/bufferpool"
	"github.com/tuannm99/ixdb/internal/relation"
	"github.com/tuannm99/ixdb/internal/storage"
)

// buildRelation writes one 4-byte tuple per key (the key itself, at byte
// offset 0) into a fresh relation file and returns it plus its recorded
// RecordIDs in insertion order.
func buildRelation(t *testing.T, dir string, keys []int32) (storage.File, *bufferpool.Pool, []relation.RecordID) {
	t.Helper()
	relFile, err := storage.OpenDiskFile(filepath.Join(dir, "rel.dat"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = relFile.Close() })

	pool := bufferpool.New(8)
	w, err := relation.NewWriter(relFile, pool)
	require.NoError(t, err)

	rids := make([]relation.RecordID, 0, len(keys))
	for _, k := range keys {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(k))
		rid, err := w.Append(buf)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, w.Close())
	return relFile, pool, rids
}

func scanAll(t *testing.T, idx *Index, lowVal Key, lowOp Op, highVal Key, highOp Op) []RecordID {
	t.Helper()
	err := idx.StartScan(lowVal, lowOp, highVal, highOp)
	if err == ErrNoSuchKeyFound {
		return nil
	}
	require.NoError(t, err)

	var out []RecordID
	for {
		rid, err := idx.ScanNext()
		if err == ErrIndexScanCompleted {
			break
		}
		require.NoError(t, err)
		out = append(out, rid)
	}
	require.NoError(t, idx.EndScan())
	return out
}

// Scenario 1: empty index, four manual inserts, full-range scan returns
// ascending key order.
func TestIndex_ScenarioOneManualInserts(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)

	idx, err := New(dir, "r1", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	for _, k := range []int32{5, 3, 8, 1} {
		require.NoError(t, idx.InsertEntry(k, RecordID{PageNo: 1, SlotNo: uint32(k)}))
	}

	rids := scanAll(t, idx, 0, GTE, 100, LT)
	require.Len(t, rids, 4)
	var keys []uint32
	for _, r := range rids {
		keys = append(keys, r.SlotNo)
	}
	require.Equal(t, []uint32{1, 3, 5, 8}, keys)
}

// Scenario 2: sequential bulk build 0..9999, bounded scan returns exactly
// the three entries in range.
func TestIndex_ScenarioTwoSequentialBuild(t *testing.T) {
	dir := t.TempDir()
	keys := make([]int32, 10000)
	for i := range keys {
		keys[i] = int32(i)
	}
	relFile, pool, expectedRids := buildRelation(t, dir, keys)

	idx, err := New(dir, "r2", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	rids := scanAll(t, idx, 4999, GT, 5002, LTE)
	require.Equal(t, expectedRids[5000:5003], rids)
}

// Scenario 3: random-order bulk build 0..9999, full scan emits exactly
// 10000 entries in ascending key order.
func TestIndex_ScenarioThreeRandomBuild(t *testing.T) {
	dir := t.TempDir()
	keys := make([]int32, 10000)
	for i := range keys {
		keys[i] = int32(i)
	}
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	relFile, pool, relRids := buildRelation(t, dir, keys)
	keyOf := make(map[RecordID]int32, len(keys))
	for i, r := range relRids {
		keyOf[r] = keys[i]
	}

	idx, err := New(dir, "r3", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	err = idx.StartScan(0, GTE, 9999, LTE)
	require.NoError(t, err)

	var last int32 = -1
	count := 0
	for {
		rid, err := idx.ScanNext()
		if err == ErrIndexScanCompleted {
			break
		}
		require.NoError(t, err)
		k, ok := keyOf[rid]
		require.True(t, ok)
		require.Greater(t, k, last)
		last = k
		count++
	}
	require.NoError(t, idx.EndScan())
	require.Equal(t, 10000, count)
}

// Scenario 6: reopening an existing index file with mismatched metadata
// fails with ErrBadIndexInfo. The index filename is itself derived from
// relationName and attrByteOffset (spec.md §6), so the only way to
// revisit the same file with a mismatch is to vary attrType instead.
func TestIndex_ScenarioSixBadIndexInfo(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, []int32{1, 2, 3})

	idx, err := New(dir, "r6", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = New(dir, "r6", 0, AttrInt64, pool, relFile)
	require.ErrorIs(t, err, ErrBadIndexInfo)
}

func TestIndex_StartScan_BadOpcodes(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)
	idx, err := New(dir, "r7", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	require.ErrorIs(t, idx.StartScan(0, LT, 10, LTE), ErrBadOpcodes)
	require.ErrorIs(t, idx.StartScan(0, GTE, 10, GT), ErrBadOpcodes)
}

func TestIndex_StartScan_BadScanrange(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)
	idx, err := New(dir, "r8", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	require.ErrorIs(t, idx.StartScan(10, GTE, 0, LTE), ErrBadScanrange)
}

func TestIndex_ScanNext_NotInitialized(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)
	idx, err := New(dir, "r9", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	_, err = idx.ScanNext()
	require.ErrorIs(t, err, ErrScanNotInitialized)
	require.ErrorIs(t, idx.EndScan(), ErrScanNotInitialized)
}

// Exactly filling a leaf with no overflow leaves entries == LeafOccupancy.
func TestIndex_Boundary_ExactLeafFill(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)
	idx, err := New(dir, "r10", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	for i := 0; i < LeafOccupancy; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), RecordID{PageNo: 1, SlotNo: uint32(i)}))
	}
	require.True(t, idx.isRootLeaf)

	page, err := pool.ReadPage(idx.file, idx.rootPageNum)
	require.NoError(t, err)
	require.Equal(t, LeafOccupancy, leafPage{page}.entries())
	require.NoError(t, pool.UnpinPage(idx.file, idx.rootPageNum, false))
}

// The insertion that overflows a leaf produces two leaves each with at
// least floor(LeafOccupancy/2) entries, and promotes a non-leaf root.
func TestIndex_Boundary_LeafOverflowSplits(t *testing.T) {
	dir := t.TempDir()
	relFile, pool, _ := buildRelation(t, dir, nil)
	idx, err := New(dir, "r11", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	for i := 0; i <= LeafOccupancy; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), RecordID{PageNo: 1, SlotNo: uint32(i)}))
	}

	require.False(t, idx.isRootLeaf)
	rids := scanAll(t, idx, 0, GTE, int32(LeafOccupancy), LTE)
	require.Len(t, rids, LeafOccupancy+1)
}

// Pin/unpin conservation: every frame is unpinned once a top-level
// operation or a completed scan returns.
func TestIndex_PinUnpinConservation(t *testing.T) {
	dir := t.TempDir()
	keys := []int32{5, 3, 8, 1, 9, 2}
	relFile, pool, _ := buildRelation(t, dir, keys)

	idx, err := New(dir, "r12", 0, AttrInt32, pool, relFile)
	require.NoError(t, err)

	require.NoError(t, idx.InsertEntry(42, RecordID{PageNo: 1, SlotNo: 42}))
	_ = scanAll(t, idx, 0, GTE, 100, LT)

	for pid := storage.PageID(1); pid <= idx.file.NumPages(); pid++ {
		require.Equal(t, 0, pool.PinCount(idx.file, pid))
	}
}
