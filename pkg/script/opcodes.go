package script

import "fmt"

// Opcode is an instruction number. The dispatch table has one slot per
// possible byte value.
type Opcode byte

const (
	// ========================================================================
	// Thread control
	// ========================================================================

	OpSuspend       Opcode = 2  // Suspend until notified
	OpYield         Opcode = 3  // Give up the rest of this frame
	OpTerminate     Opcode = 4  // End the thread
	OpJump          Opcode = 5  // OpJump <skip:2> <offset:i16>
	OpStartThread   Opcode = 6  // OpStartThread <skip:2> <threadId:u32>
	OpRerun         Opcode = 7  // Request a same-frame re-walk and yield
	OpStartTemp     Opcode = 8  // OpStartTemp <code:i16>
	OpStartTimer    Opcode = 9  // OpStartTimer <abortable:i16> <duration:i16> <randMax:i16>
	OpNotifyTimers  Opcode = 10 // OpNotifyTimers <skip:2> <callerId:u32>
	OpSuspendTimers Opcode = 11 // OpSuspendTimers <skip:2> <callerId:u32>
	OpNotify        Opcode = 12 // OpNotify <skip:2> <threadId:u32>
	OpSuspendID     Opcode = 13 // OpSuspendID <skip:2> <threadId:u32>
	OpSetScene      Opcode = 14 // OpSetScene <skip:2> <sceneId:u32>
	OpEndTalk       Opcode = 15 // End all talk threads

	// ========================================================================
	// Resources and scenes
	// ========================================================================

	OpLoadRes      Opcode = 16 // OpLoadRes <skip:2> <resId:u32>
	OpUnloadRes    Opcode = 17 // OpUnloadRes <skip:2> <resId:u32>
	OpEnterScene   Opcode = 20 // OpEnterScene <skip:2> <sceneId:u32>
	OpChangeScene  Opcode = 25 // OpChangeScene <skip:2> <sceneId:u32> <threadId:u32>
	OpStartModal   Opcode = 26 // OpStartModal <skip:2> <sceneId:u32>
	OpExitModal    Opcode = 27 // Leave a modal scene
	OpEnterCloseUp Opcode = 30 // OpEnterCloseUp <skip:2> <sceneId:u32>
	OpExitCloseUp  Opcode = 31 // Leave a close-up scene

	// ========================================================================
	// Actors, camera, sound
	// ========================================================================

	OpPanCenter  Opcode = 32 // OpPanCenter <speed:i16> <objectId:u32>
	OpSetProp    Opcode = 45 // OpSetProp <value:i16> <propertyId:u32>
	OpStartSeq   Opcode = 49 // OpStartSeq <skip:2> <objectId:u32> <sequenceId:u32>
	OpStartTalk  Opcode = 56 // OpStartTalk <duration:i16> <objectId:u32> <talkId:u32> <seq1:u32> <seq2:u32>
	OpStartSound Opcode = 75 // OpStartSound <volume:i16> <pan:i16> <soundId:u32>
	OpStopSound  Opcode = 77 // OpStopSound <skip:2> <soundId:u32>
	OpSetCounter Opcode = 80 // OpSetCounter <index:i16> <value:i16>

	// ========================================================================
	// Stack and conditionals
	// ========================================================================

	OpPush0         Opcode = 87  // Push 0
	OpPushRand      Opcode = 88  // OpPushRand <max:i16>
	OpIfLte         Opcode = 89  // OpIfLte <skip:4> <rvalue:i16> <elseOffset:i16>
	OpJz            Opcode = 103 // OpJz <skip:2> <offset:i16>
	OpIsPrevScene   Opcode = 104 // OpIsPrevScene <skip:2> <sceneId:u32>
	OpIsCurScene    Opcode = 105 // OpIsCurScene <skip:2> <sceneId:u32>
	OpIsActiveScene Opcode = 106 // OpIsActiveScene <skip:2> <sceneId:u32>
	OpNot           Opcode = 107 // Logical not of top
	OpAnd           Opcode = 108 // Bitwise and of top two
	OpOr            Opcode = 109 // Bitwise or of top two
	OpGetProp       Opcode = 110 // OpGetProp <skip:2> <propertyId:u32>
	OpCmpCounter    Opcode = 111 // OpCmpCounter <index:i16> <compareOp:i16> <rvalue:i16>
	OpPop           Opcode = 146 // Discard top
	OpDup           Opcode = 147 // Duplicate top
	OpPushVal       Opcode = 148 // OpPushVal <value:i16>

	// ========================================================================
	// Supervision
	// ========================================================================

	OpStartAbortable Opcode = 168 // OpStartAbortable <skip:2> <code:i16> <handler:i16>
	OpKill           Opcode = 169 // OpKill <skip:2> <threadId:u32>
)

// OperandKind describes one operand field of an instruction.
type OperandKind uint8

const (
	// OperandSkip2 is two bytes of padding.
	OperandSkip2 OperandKind = iota + 1

	// OperandSkip4 is four bytes of padding.
	OperandSkip4

	// OperandInt16 is a signed 16-bit value.
	OperandInt16

	// OperandUint32 is an unsigned 32-bit value.
	OperandUint32

	// OperandJump is a signed 16-bit branch displacement, relative to the
	// end of the instruction.
	OperandJump

	// OperandCode is a signed 16-bit code pointer, relative to the first
	// operand byte of the instruction.
	OperandCode
)

// Size returns the encoded width of the operand in bytes.
func (k OperandKind) Size() int {
	switch k {
	case OperandSkip2, OperandInt16, OperandJump, OperandCode:
		return 2
	case OperandSkip4, OperandUint32:
		return 4
	default:
		return 0
	}
}

// IsPadding returns true for operands that carry no value.
func (k OperandKind) IsPadding() bool {
	return k == OperandSkip2 || k == OperandSkip4
}

// String returns a short name for the operand kind.
func (k OperandKind) String() string {
	switch k {
	case OperandSkip2:
		return "skip2"
	case OperandSkip4:
		return "skip4"
	case OperandInt16:
		return "i16"
	case OperandUint32:
		return "u32"
	case OperandJump:
		return "jump"
	case OperandCode:
		return "code"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// OpcodeInfo provides metadata about each opcode for assembly and listings.
type OpcodeInfo struct {
	Name     string        // Assembler mnemonic
	Operands []OperandKind // Operand layout following the header
}

// OperandLen returns the number of operand bytes.
func (i OpcodeInfo) OperandLen() int {
	n := 0
	for _, k := range i.Operands {
		n += k.Size()
	}
	return n
}

// InstructionLen returns the full instruction length including the header.
func (i OpcodeInfo) InstructionLen() int {
	return HeaderLen + i.OperandLen()
}

// Values returns the number of operands that carry a value.
func (i OpcodeInfo) Values() int {
	n := 0
	for _, k := range i.Operands {
		if !k.IsPadding() {
			n++
		}
	}
	return n
}

var (
	noOperands = []OperandKind{}
	idOperand  = []OperandKind{OperandSkip2, OperandUint32}
)

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Thread control
	OpSuspend:       {"suspend", noOperands},
	OpYield:         {"yield", noOperands},
	OpTerminate:     {"terminate", noOperands},
	OpJump:          {"jump", []OperandKind{OperandSkip2, OperandJump}},
	OpStartThread:   {"startthread", idOperand},
	OpRerun:         {"rerun", noOperands},
	OpStartTemp:     {"starttemp", []OperandKind{OperandCode}},
	OpStartTimer:    {"starttimer", []OperandKind{OperandInt16, OperandInt16, OperandInt16}},
	OpNotifyTimers:  {"notifytimers", idOperand},
	OpSuspendTimers: {"suspendtimers", idOperand},
	OpNotify:        {"notify", idOperand},
	OpSuspendID:     {"suspendid", idOperand},
	OpSetScene:      {"setscene", idOperand},
	OpEndTalk:       {"endtalk", noOperands},

	// Resources and scenes
	OpLoadRes:      {"loadres", idOperand},
	OpUnloadRes:    {"unloadres", idOperand},
	OpEnterScene:   {"enterscene", idOperand},
	OpChangeScene:  {"changescene", []OperandKind{OperandSkip2, OperandUint32, OperandUint32}},
	OpStartModal:   {"startmodal", idOperand},
	OpExitModal:    {"exitmodal", noOperands},
	OpEnterCloseUp: {"entercloseup", idOperand},
	OpExitCloseUp:  {"exitcloseup", noOperands},

	// Actors, camera, sound
	OpPanCenter:  {"pancenter", []OperandKind{OperandInt16, OperandUint32}},
	OpSetProp:    {"setprop", []OperandKind{OperandInt16, OperandUint32}},
	OpStartSeq:   {"startseq", []OperandKind{OperandSkip2, OperandUint32, OperandUint32}},
	OpStartTalk:  {"starttalk", []OperandKind{OperandInt16, OperandUint32, OperandUint32, OperandUint32, OperandUint32}},
	OpStartSound: {"startsound", []OperandKind{OperandInt16, OperandInt16, OperandUint32}},
	OpStopSound:  {"stopsound", idOperand},
	OpSetCounter: {"setcounter", []OperandKind{OperandInt16, OperandInt16}},

	// Stack and conditionals
	OpPush0:         {"push0", noOperands},
	OpPushRand:      {"pushrand", []OperandKind{OperandInt16}},
	OpIfLte:         {"iflte", []OperandKind{OperandSkip4, OperandInt16, OperandJump}},
	OpJz:            {"jz", []OperandKind{OperandSkip2, OperandJump}},
	OpIsPrevScene:   {"isprevscene", idOperand},
	OpIsCurScene:    {"iscurscene", idOperand},
	OpIsActiveScene: {"isactivescene", idOperand},
	OpNot:           {"not", noOperands},
	OpAnd:           {"and", noOperands},
	OpOr:            {"or", noOperands},
	OpGetProp:       {"getprop", idOperand},
	OpCmpCounter:    {"cmpcounter", []OperandKind{OperandInt16, OperandInt16, OperandInt16}},
	OpPop:           {"pop", noOperands},
	OpDup:           {"dup", noOperands},
	OpPushVal:       {"pushval", []OperandKind{OperandInt16}},

	// Supervision
	OpStartAbortable: {"startabortable", []OperandKind{OperandSkip2, OperandCode, OperandCode}},
	OpKill:           {"kill", idOperand},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// The second result is false if the opcode has no assembler definition.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// LookupOpcode returns the opcode for an assembler mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("op%d", byte(op))
}

// IsBranch returns true if the opcode may change the instruction pointer
// by more than its own length.
func (op Opcode) IsBranch() bool {
	return op == OpJump || op == OpJz || op == OpIfLte
}

// IsSpawn returns true if the opcode creates a new thread.
func (op Opcode) IsSpawn() bool {
	switch op {
	case OpStartThread, OpStartTemp, OpStartTimer, OpStartTalk, OpStartAbortable, OpChangeScene:
		return true
	}
	return false
}
