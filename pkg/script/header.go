package script

import (
	"errors"
	"fmt"
	"strings"
)

// HeaderLen is the width of every instruction header.
const HeaderLen = 2

// ErrHeaderRange is returned when an instruction cannot be encoded in a
// dialect's header.
var ErrHeaderRange = errors.New("instruction size does not fit header")

// Dialect selects one of the two instruction header layouts.
type Dialect int

const (
	// DialectPacked stores the instruction size in the upper seven bits of
	// the second header byte and the self-thread flag in bit 0.
	DialectPacked Dialect = iota

	// DialectSized uses the whole second header byte for the size. Every
	// instruction acts on behalf of the executing thread.
	DialectSized
)

// String returns the configuration name of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectPacked:
		return "packed"
	case DialectSized:
		return "sized"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect parses a dialect name as used in configuration files.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "packed", "bbdou":
		return DialectPacked, nil
	case "sized", "duckman":
		return DialectSized, nil
	}
	return 0, fmt.Errorf("unknown script dialect %q", name)
}

// Header is a decoded instruction header.
type Header struct {
	Op   Opcode
	Size int  // Full instruction length, header included
	Self bool // Instruction acts on behalf of the executing thread
}

// HeaderDecoder encodes and decodes instruction headers for one dialect.
// A decoder is chosen once per engine and never switched per instruction.
type HeaderDecoder interface {
	Dialect() Dialect
	Decode(b0, b1 byte) Header
	Encode(h Header) ([HeaderLen]byte, error)
}

// NewHeaderDecoder returns the decoder for a dialect.
func NewHeaderDecoder(d Dialect) HeaderDecoder {
	if d == DialectSized {
		return sizedHeader{}
	}
	return packedHeader{}
}

type packedHeader struct{}

func (packedHeader) Dialect() Dialect { return DialectPacked }

func (packedHeader) Decode(b0, b1 byte) Header {
	return Header{Op: Opcode(b0), Size: int(b1 >> 1), Self: b1&1 != 0}
}

func (packedHeader) Encode(h Header) ([HeaderLen]byte, error) {
	if h.Size < HeaderLen || h.Size > 0x7F {
		return [HeaderLen]byte{}, fmt.Errorf("%w: %s size %d", ErrHeaderRange, h.Op, h.Size)
	}
	b1 := byte(h.Size) << 1
	if h.Self {
		b1 |= 1
	}
	return [HeaderLen]byte{byte(h.Op), b1}, nil
}

type sizedHeader struct{}

func (sizedHeader) Dialect() Dialect { return DialectSized }

func (sizedHeader) Decode(b0, b1 byte) Header {
	return Header{Op: Opcode(b0), Size: int(b1), Self: true}
}

func (sizedHeader) Encode(h Header) ([HeaderLen]byte, error) {
	if h.Size < HeaderLen || h.Size > 0xFF {
		return [HeaderLen]byte{}, fmt.Errorf("%w: %s size %d", ErrHeaderRange, h.Op, h.Size)
	}
	return [HeaderLen]byte{byte(h.Op), byte(h.Size)}, nil
}
