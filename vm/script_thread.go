package vm

import (
	"fmt"

	"github.com/chazu/illusions/pkg/script"
)

// ScriptThread interprets bytecode from the engine's program.
type ScriptThread struct {
	Thread
	ip   int
	args Args
}

func newScriptThread(e *Engine, id, callingID ThreadID, notifyFlags uint32, ip int, args Args) *ScriptThread {
	st := &ScriptThread{ip: ip, args: args}
	st.init(e, st, KindScript, id, callingID, notifyFlags)
	if caller := e.threads.FindThread(callingID); caller != nil {
		st.sceneID = caller.sceneID
	} else {
		st.sceneID = e.CurrentScene()
	}
	return st
}

// IP returns the arena index of the next instruction.
func (st *ScriptThread) IP() int {
	return st.ip
}

// Args returns the thread's argument words.
func (st *ScriptThread) Args() Args {
	return st.args
}

func (st *ScriptThread) onUpdate() (Status, error) {
	e := st.engine
	result := StatusRun
	for !st.terminated && result == StatusRun {
		in, err := e.program.Decode(e.decoder, st.ip)
		if err != nil {
			return StatusYield, &DispatchError{ThreadID: st.id, Offset: st.ip, Err: err}
		}
		call := OpCall{
			OperandReader:  script.NewOperandReader(in.Operands),
			Op:             in.Op,
			Size:           in.Size,
			Offset:         in.Offset,
			CallerThreadID: st.id,
			DeltaOfs:       in.Size,
			Result:         StatusRun,
		}
		if in.Self {
			call.ThreadID = st.id
		}
		if e.opts.Trace {
			logger().Debugf("[%s] %04X  %s", st.id, in.Offset, script.FormatInstruction(in))
		}
		if info, ok := script.GetOpcodeInfo(in.Op); ok && len(in.Operands) < info.OperandLen() {
			err := fmt.Errorf("%w: %s needs %d operand bytes, has %d",
				script.ErrOperandOverrun, in.Op, info.OperandLen(), len(in.Operands))
			return StatusYield, &DispatchError{ThreadID: st.id, Offset: in.Offset, Op: in.Op, Err: err}
		}
		if err := e.opcodes.Execute(st, &call); err != nil {
			return StatusYield, &DispatchError{ThreadID: st.id, Offset: in.Offset, Op: in.Op, Err: err}
		}
		if err := call.Err(); err != nil {
			return StatusYield, &DispatchError{ThreadID: st.id, Offset: in.Offset, Op: in.Op, Err: err}
		}
		st.ip += call.DeltaOfs
		result = call.Result
	}
	if st.terminated {
		return StatusTerminate, nil
	}
	return result, nil
}

func (st *ScriptThread) fillInfo(info *ThreadInfo) {
	info.IP = st.ip
}
