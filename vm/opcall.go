package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/illusions/pkg/script"
)

// ErrUnknownOpcode is returned when an instruction has no handler.
var ErrUnknownOpcode = errors.New("unknown opcode")

// DispatchError is the fatal error of a script thread. It wraps
// ErrUnknownOpcode, script.ErrBadInstruction or script.ErrOperandOverrun.
type DispatchError struct {
	ThreadID ThreadID
	Offset   int
	Op       script.Opcode
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("thread %s at %04X (%s): %v", e.ThreadID, e.Offset, e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// OpCall is the decoded instruction handed to a handler. Handlers read
// operands through the embedded reader and may change DeltaOfs and Result.
type OpCall struct {
	script.OperandReader

	Op     script.Opcode
	Size   int
	Offset int // arena index of the header

	// ThreadID is the executing thread when the instruction's self flag is
	// set, 0 otherwise. Spawned threads use it as their caller.
	ThreadID ThreadID
	// CallerThreadID is always the executing thread.
	CallerThreadID ThreadID

	// DeltaOfs is added to the instruction pointer after the handler; it
	// starts at Size.
	DeltaOfs int
	Result   Status
}

// CodeOffset resolves a code operand, which is relative to the start of
// the operands.
func (c *OpCall) CodeOffset(rel int16) int {
	return c.Offset + script.HeaderLen + int(rel)
}

// ThreadIDOperand reads a u32 operand as a thread id.
func (c *OpCall) ThreadIDOperand() ThreadID {
	return ThreadID(c.Uint32())
}
