package script

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBadInstruction is returned when an instruction header is malformed
	// or the instruction does not lie inside the program.
	ErrBadInstruction = errors.New("bad instruction")

	// ErrOperandOverrun is returned when a handler reads past the end of
	// its instruction.
	ErrOperandOverrun = errors.New("operand read past end of instruction")

	// ErrBadThreadTable is returned when a thread table entry points outside
	// the code section.
	ErrBadThreadTable = errors.New("thread table entry out of range")
)

// Program is the compiled script buffer of a scene. It is immutable once
// built and is shared by every thread that executes it; threads refer to
// code by arena index, never by pointer.
type Program struct {
	code    []byte
	threads []int // thread table: index -> code offset, -1 if absent
}

// NewProgram creates a program from raw code and a thread table.
// Entries of -1 mark unused thread slots.
func NewProgram(code []byte, threadTable []int) (*Program, error) {
	for i, ofs := range threadTable {
		if ofs == -1 {
			continue
		}
		if ofs < 0 || ofs >= len(code) {
			return nil, fmt.Errorf("%w: thread %d at %d (code is %d bytes)", ErrBadThreadTable, i, ofs, len(code))
		}
	}
	p := &Program{
		code:    append([]byte(nil), code...),
		threads: append([]int(nil), threadTable...),
	}
	return p, nil
}

// Len returns the size of the code section in bytes.
func (p *Program) Len() int {
	return len(p.code)
}

// CodeCount returns the number of thread table slots.
func (p *Program) CodeCount() int {
	return len(p.threads)
}

// ThreadCode returns the entry offset for a script thread id. Only the low
// 16 bits of the id index the thread table.
func (p *Program) ThreadCode(threadID uint32) (int, bool) {
	idx := int(threadID & 0xFFFF)
	if idx >= len(p.threads) || p.threads[idx] < 0 {
		return 0, false
	}
	return p.threads[idx], true
}

// InBounds reports whether ofs addresses a byte of the code section.
func (p *Program) InBounds(ofs int) bool {
	return ofs >= 0 && ofs < len(p.code)
}

// Bytes returns a copy of the code section.
func (p *Program) Bytes() []byte {
	return append([]byte(nil), p.code...)
}

// Instruction is one decoded instruction.
type Instruction struct {
	Header
	Offset   int    // Arena index of the header
	Operands []byte // Operand bytes, read-only view into the program
}

// End returns the arena index just past the instruction.
func (in Instruction) End() int {
	return in.Offset + in.Size
}

// OperandStart returns the arena index of the first operand byte.
func (in Instruction) OperandStart() int {
	return in.Offset + HeaderLen
}

// Decode decodes the instruction at ofs. The header and the full
// instruction length are validated against the code section.
func (p *Program) Decode(dec HeaderDecoder, ofs int) (Instruction, error) {
	if ofs < 0 || ofs+HeaderLen > len(p.code) {
		return Instruction{}, fmt.Errorf("%w: offset %d outside code (%d bytes)", ErrBadInstruction, ofs, len(p.code))
	}
	h := dec.Decode(p.code[ofs], p.code[ofs+1])
	if h.Size < HeaderLen {
		return Instruction{}, fmt.Errorf("%w: %s at %d has size %d", ErrBadInstruction, h.Op, ofs, h.Size)
	}
	end := ofs + h.Size
	if end > len(p.code) {
		return Instruction{}, fmt.Errorf("%w: %s at %d runs past end of code", ErrBadInstruction, h.Op, ofs)
	}
	return Instruction{
		Header:   h,
		Offset:   ofs,
		Operands: p.code[ofs+HeaderLen : end : end],
	}, nil
}

// OperandReader reads little-endian operands from one instruction.
// Reads past the end yield zero and record ErrOperandOverrun.
type OperandReader struct {
	buf []byte
	pos int
	err error
}

// NewOperandReader creates a reader over an instruction's operands.
func NewOperandReader(operands []byte) OperandReader {
	return OperandReader{buf: operands}
}

func (r *OperandReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at %d of %d", ErrOperandOverrun, n, r.pos, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip skips n padding bytes.
func (r *OperandReader) Skip(n int) {
	r.take(n)
}

// Int16 reads a signed 16-bit operand.
func (r *OperandReader) Int16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

// Uint32 reads an unsigned 32-bit operand.
func (r *OperandReader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Pos returns the number of operand bytes consumed.
func (r *OperandReader) Pos() int {
	return r.pos
}

// Err returns the first overrun error, if any.
func (r *OperandReader) Err() error {
	return r.err
}
