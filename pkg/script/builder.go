package script

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Builder assembles a Program instruction by instruction.
type Builder struct {
	dec     HeaderDecoder
	code    []byte
	threads []int
	err     error
}

// NewBuilder creates a builder emitting headers in the given dialect.
func NewBuilder(d Dialect) *Builder {
	return &Builder{
		dec:  NewHeaderDecoder(d),
		code: make([]byte, 0, 64),
	}
}

// Dialect returns the builder's header dialect.
func (b *Builder) Dialect() Dialect {
	return b.dec.Dialect()
}

// Offset returns the current end of the code section.
func (b *Builder) Offset() int {
	return len(b.code)
}

// BeginThread binds thread table slot index to the current offset.
func (b *Builder) BeginThread(index int) {
	if index < 0 || index > 0xFFFF {
		b.fail(fmt.Errorf("thread index %d out of range", index))
		return
	}
	for len(b.threads) <= index {
		b.threads = append(b.threads, -1)
	}
	b.threads[index] = len(b.code)
}

// Emit appends an instruction. values supplies one entry per non-padding
// operand, in layout order. Returns the offset of the instruction.
func (b *Builder) Emit(op Opcode, self bool, values ...int64) int {
	offset := len(b.code)
	info, ok := GetOpcodeInfo(op)
	if !ok {
		b.fail(fmt.Errorf("emit: no layout for opcode %d", byte(op)))
		return offset
	}
	if len(values) != info.Values() {
		b.fail(fmt.Errorf("emit %s: want %d operands, got %d", info.Name, info.Values(), len(values)))
		return offset
	}
	hdr, err := b.dec.Encode(Header{Op: op, Size: info.InstructionLen(), Self: self})
	if err != nil {
		b.fail(err)
		return offset
	}
	b.code = append(b.code, hdr[:]...)

	vi := 0
	for _, k := range info.Operands {
		switch k {
		case OperandSkip2:
			b.code = append(b.code, 0, 0)
		case OperandSkip4:
			b.code = append(b.code, 0, 0, 0, 0)
		case OperandInt16, OperandJump, OperandCode:
			v := values[vi]
			vi++
			if v < math.MinInt16 || v > math.MaxUint16 {
				b.fail(fmt.Errorf("emit %s: value %d does not fit 16 bits", info.Name, v))
				v = 0
			}
			b.code = binary.LittleEndian.AppendUint16(b.code, uint16(v))
		case OperandUint32:
			v := values[vi]
			vi++
			if v < math.MinInt32 || v > math.MaxUint32 {
				b.fail(fmt.Errorf("emit %s: value %d does not fit 32 bits", info.Name, v))
				v = 0
			}
			b.code = binary.LittleEndian.AppendUint32(b.code, uint32(v))
		}
	}
	return offset
}

// EmitRaw appends bytes verbatim. Used to build deliberately malformed code.
func (b *Builder) EmitRaw(bytes ...byte) int {
	offset := len(b.code)
	b.code = append(b.code, bytes...)
	return offset
}

// Program finishes the build.
func (b *Builder) Program() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewProgram(b.code, b.threads)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
