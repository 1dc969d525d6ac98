package bx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLittleEndianReadWrite verifies that PutU16/U32 and U16/U32
// correctly round-trip values using little-endian encoding.
func TestLittleEndianReadWrite(t *testing.T) {
	// ---- U16 ----
	{
		b := make([]byte, 2)
		var v uint16 = 0x1234 // 4660 decimal

		// write v -> b (little-endian)
		PutU16(b, v)

		// in LE, least-significant byte goes first
		assert.Equal(t, []byte{0x34, 0x12}, b)
		// read back
		assert.Equal(t, v, U16(b))
	}

	// ---- U32 ----
	{
		b := make([]byte, 4)
		var v uint32 = 0x01020304

		PutU32(b, v)
		// LE: 04 03 02 01
		assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
		assert.Equal(t, v, U32(b))
	}
}

// TestExampleFromComment is basically your original example,
// kept as a simple sanity check for U16 + PutU16.
func TestExampleFromComment(t *testing.T) {
	b := make([]byte, 2)
	sampleNum := uint16(14) // 0x000E

	PutU16(b, sampleNum)

	// LE: 0x0E, 0x00
	assert.Equal(t, []byte{0x0e, 0x00}, b)
	assert.Equal(t, sampleNum, U16(b))
}
