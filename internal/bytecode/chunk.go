package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

const initialCapacity = 64

// Chunk is a growable byte buffer holding a stream of opcodes
// interleaved with their operand payloads (spec §3). Capacity doubles
// starting at 64 bytes on first growth, mirroring the reference
// implementation's write_byte.
type Chunk struct {
	// ID uniquely tags one compilation. It has no bearing on the
	// executed semantics; it exists so a host running many chunks
	// concurrently (see internal/batch) can attribute a runtime
	// diagnostic to the chunk that produced it.
	ID uuid.UUID

	code     []byte
	capacity int
}

// NewChunk returns an empty chunk with a fresh build id.
func NewChunk() *Chunk {
	return &Chunk{ID: uuid.New()}
}

// Code returns the accumulated instruction bytes.
func (c *Chunk) Code() []byte { return c.code }

// Count returns the number of bytes written so far.
func (c *Chunk) Count() int { return len(c.code) }

func (c *Chunk) grow(n int) {
	need := len(c.code) + n
	if need <= c.capacity {
		return
	}
	newCap := c.capacity
	if newCap == 0 {
		newCap = initialCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(c.code), newCap)
	copy(grown, c.code)
	c.code = grown
	c.capacity = newCap
}

// WriteOp appends a single opcode byte and returns its offset.
func (c *Chunk) WriteOp(op OpCode) int {
	c.grow(1)
	pos := len(c.code)
	c.code = append(c.code, byte(op))
	return pos
}

// WriteByte appends a single raw operand byte.
func (c *Chunk) WriteByte(b byte) int {
	c.grow(1)
	pos := len(c.code)
	c.code = append(c.code, b)
	return pos
}

// WriteDouble appends an 8-byte little-endian IEEE-754 double.
func (c *Chunk) WriteDouble(v float64) int {
	c.grow(8)
	pos := len(c.code)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	c.code = append(c.code, buf[:]...)
	return pos
}

// WriteInt32 appends a 4-byte little-endian signed integer and
// returns its offset — used both for real operands (Buy/Sell
// quantities) and for jump-offset placeholders that PatchInt32 fills
// in later.
func (c *Chunk) WriteInt32(v int32) int {
	c.grow(4)
	pos := len(c.code)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	c.code = append(c.code, buf[:]...)
	return pos
}

// PatchInt32 overwrites the 4-byte value at pos (a position returned
// by an earlier WriteInt32) with v. Used to back-patch a JumpIfFalse
// offset once the compiler knows how far to jump (spec §4.3, §9).
func (c *Chunk) PatchInt32(pos int, v int32) {
	binary.LittleEndian.PutUint32(c.code[pos:pos+4], uint32(v))
}

// ReadDouble decodes an 8-byte little-endian double at pos.
func ReadDouble(code []byte, pos int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(code[pos : pos+8]))
}

// ReadInt32 decodes a 4-byte little-endian signed integer at pos.
func ReadInt32(code []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(code[pos : pos+4]))
}
