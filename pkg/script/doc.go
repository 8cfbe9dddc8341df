// Package script holds the leaf pieces of the scene script interpreter:
// the operand stack, opcode numbering and operand layouts, the two
// instruction header dialects, the immutable Program buffer with its
// thread table, and a small assembler/disassembler pair for fixtures and
// tooling.
//
// # Instruction format
//
// Every instruction starts with a two-byte header: the opcode number and a
// packed byte whose meaning depends on the Dialect:
//
//   - DialectPacked: size = b1 >> 1, self-thread flag = b1 & 1
//   - DialectSized: size = b1, the self-thread flag is always set
//
// Size is the full instruction length, header included. Operands follow the
// header in little-endian order. Branch displacements (OperandJump) are
// relative to the end of the instruction; code pointers (OperandCode) are
// relative to the first operand byte.
//
// The interpreter advances by the instruction size unless a handler
// overwrites the displacement, which is how jumps and conditionals work.
package script
