package btree

import (
	"github.com/tuannm99/ixdb/internal/relation"
	"github.com/tuannm99/ixdb/internal/storage"
)

// Key is the fixed-width integer key type this index supports. spec.md
// rules out variable-length keys entirely; int32 matches the "typical
// tuning uses integer keys and 8-byte record identifiers" note in §6.
type Key = int32

// RecordID is the record identifier stored alongside each key, owned by
// the relation package since it identifies a tuple in that external file.
type RecordID = relation.RecordID

// AttrType tags the attribute type recorded in the metadata page. Only
// AttrInt32 is meaningful today; the tag exists so a mismatched reopen is
// detected rather than silently misinterpreting stored keys.
type AttrType uint8

const (
	AttrInt32 AttrType = 1
	// AttrInt64 is never produced by this spec's build path (only int32
	// keys are supported); it exists so a metadata mismatch on attrType
	// alone — distinct from relationName/attrByteOffset, which are also
	// baked into the index filename itself — is reachable and testable.
	AttrInt64 AttrType = 2
)

// Op is a range-scan bound operator.
type Op uint8

const (
	LT Op = iota
	LTE
	GT
	GTE
)

func (o Op) String() string {
	switch o {
	case LT:
		return "LT"
	case LTE:
		return "LTE"
	case GT:
		return "GT"
	case GTE:
		return "GTE"
	default:
		return "?"
	}
}

func isLowOp(o Op) bool  { return o == GT || o == GTE }
func isHighOp(o Op) bool { return o == LT || o == LTE }

// InvalidPageID re-exports storage's reserved page id for readability in
// btree code.
const InvalidPageID = storage.InvalidPageID
