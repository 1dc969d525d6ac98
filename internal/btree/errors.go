package btree

import "errors"

var (
	// ErrBadOpcodes is raised by StartScan when an operator isn't in the
	// allowed set (low must be GT/GTE, high must be LT/LTE).
	ErrBadOpcodes = errors.New("btree: invalid scan operator")

	// ErrBadScanrange is raised by StartScan when lowVal > highVal.
	ErrBadScanrange = errors.New("btree: low bound exceeds high bound")

	// ErrNoSuchKeyFound is raised by StartScan when no entry satisfies the
	// requested bounds.
	ErrNoSuchKeyFound = errors.New("btree: no entry satisfies scan bounds")

	// ErrScanNotInitialized is raised by ScanNext/EndScan when no scan is
	// active.
	ErrScanNotInitialized = errors.New("btree: no active scan")

	// ErrIndexScanCompleted is raised by ScanNext once the scan is
	// exhausted.
	ErrIndexScanCompleted = errors.New("btree: scan already completed")

	// ErrBadIndexInfo is raised by New when a pre-existing index file's
	// metadata does not match the requested relation name, key offset, or
	// attribute type.
	ErrBadIndexInfo = errors.New("btree: index file metadata does not match requested parameters")
)
