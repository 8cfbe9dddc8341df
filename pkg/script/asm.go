package script

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Assemble translates script assembly into a Program.
//
// Syntax, one statement per line:
//
//	; comment             (also "#")
//	.thread 0             bind thread table slot 0 to the next instruction
//	loop:                 define a label
//	pushrand 5            instruction with operands
//	jz loop               jump and code operands accept labels
//	nowait startthread 0x20001
//
// Instructions carry the self-thread flag unless prefixed with "nowait";
// spawned threads then have no calling thread to notify.
func Assemble(src string, d Dialect) (*Program, error) {
	stmts, err := parseAsm(src)
	if err != nil {
		return nil, err
	}

	// Pass 1: lay out offsets. Instruction sizes depend only on the opcode.
	labels := make(map[string]int)
	offset := 0
	for i := range stmts {
		st := &stmts[i]
		st.offset = offset
		if st.label != "" {
			if _, dup := labels[st.label]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", st.line, st.label)
			}
			labels[st.label] = offset
		}
		if st.isInstr {
			offset += st.info.InstructionLen()
		}
	}

	// Pass 2: resolve operands and emit.
	b := NewBuilder(d)
	for _, st := range stmts {
		if st.thread >= 0 {
			b.BeginThread(st.thread)
		}
		if !st.isInstr {
			continue
		}
		values := make([]int64, 0, len(st.args))
		ai := 0
		for _, k := range st.info.Operands {
			if k.IsPadding() {
				continue
			}
			arg := st.args[ai]
			ai++
			v, err := resolveOperand(arg, k, st, labels)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", st.line, st.info.Name, err)
			}
			values = append(values, v)
		}
		b.Emit(st.op, st.self, values...)
	}
	return b.Program()
}

// MustAssemble is like Assemble but panics on error. Intended for fixtures.
func MustAssemble(src string, d Dialect) *Program {
	p, err := Assemble(src, d)
	if err != nil {
		panic(fmt.Sprintf("script: assemble: %v", err))
	}
	return p
}

type asmStmt struct {
	line    int
	label   string
	thread  int
	isInstr bool
	op      Opcode
	info    OpcodeInfo
	self    bool
	args    []string
	offset  int
}

func parseAsm(src string) ([]asmStmt, error) {
	var stmts []asmStmt
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		st := asmStmt{line: lineNo, thread: -1}

		if i := strings.IndexByte(line, ':'); i >= 0 {
			st.label = strings.TrimSpace(line[:i])
			if !isIdent(st.label) {
				return nil, fmt.Errorf("line %d: bad label %q", lineNo, st.label)
			}
			line = strings.TrimSpace(line[i+1:])
		}

		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) == 0 {
			stmts = append(stmts, st)
			continue
		}

		if fields[0] == ".thread" {
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: .thread takes one argument", lineNo)
			}
			n, err := strconv.ParseInt(fields[1], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: .thread: %w", lineNo, err)
			}
			st.thread = int(n & 0xFFFF)
			stmts = append(stmts, st)
			continue
		}

		st.self = true
		if fields[0] == "nowait" {
			st.self = false
			fields = fields[1:]
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: nowait without instruction", lineNo)
			}
		}

		op, ok := LookupOpcode(strings.ToLower(fields[0]))
		if !ok {
			return nil, fmt.Errorf("line %d: unknown instruction %q", lineNo, fields[0])
		}
		info, _ := GetOpcodeInfo(op)
		st.isInstr = true
		st.op = op
		st.info = info
		st.args = fields[1:]
		if len(st.args) != info.Values() {
			return nil, fmt.Errorf("line %d: %s takes %d operands, got %d", lineNo, info.Name, info.Values(), len(st.args))
		}
		stmts = append(stmts, st)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return stmts, nil
}

func resolveOperand(arg string, k OperandKind, st asmStmt, labels map[string]int) (int64, error) {
	if n, err := strconv.ParseInt(arg, 0, 64); err == nil {
		return n, nil
	}
	if k != OperandJump && k != OperandCode {
		return 0, fmt.Errorf("bad %s operand %q", k, arg)
	}
	target, ok := labels[arg]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", arg)
	}
	if k == OperandJump {
		return int64(target - (st.offset + st.info.InstructionLen())), nil
	}
	return int64(target - (st.offset + HeaderLen)), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
