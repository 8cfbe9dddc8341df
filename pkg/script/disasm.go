package script

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble(d Dialect) string {
	return p.DisassembleWithName(d, "")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(d Dialect, name string) string {
	var sb strings.Builder
	dec := NewHeaderDecoder(d)

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Dialect: %s\n", d))
	sb.WriteString(fmt.Sprintf("; Code: %d bytes\n", len(p.code)))

	entries := make(map[int][]int)
	for idx, ofs := range p.threads {
		if ofs >= 0 {
			entries[ofs] = append(entries[ofs], idx)
		}
	}
	if len(entries) > 0 {
		sb.WriteString("; Threads:\n")
		offsets := make([]int, 0, len(entries))
		for ofs := range entries {
			offsets = append(offsets, ofs)
		}
		sort.Ints(offsets)
		for _, ofs := range offsets {
			for _, idx := range entries[ofs] {
				sb.WriteString(fmt.Sprintf(";   [%3d] %04X\n", idx, ofs))
			}
		}
	}
	sb.WriteString("\n")

	offset := 0
	for offset < len(p.code) {
		for _, idx := range entries[offset] {
			sb.WriteString(fmt.Sprintf(".thread %d\n", idx))
		}
		in, err := p.Decode(dec, offset)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%04X  <%v>\n", offset, err))
			break
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, FormatInstruction(in)))
		offset = in.End()
	}

	return sb.String()
}

// FormatInstruction renders one decoded instruction. Branch and code
// operands are shown with their absolute targets.
func FormatInstruction(in Instruction) string {
	var sb strings.Builder
	if !in.Self {
		sb.WriteString("nowait ")
	}
	sb.WriteString(in.Op.String())

	info, ok := GetOpcodeInfo(in.Op)
	if !ok {
		sb.WriteString(fmt.Sprintf(" ; %d operand bytes", len(in.Operands)))
		return sb.String()
	}

	r := NewOperandReader(in.Operands)
	var notes []string
	sep := " "
	for _, k := range info.Operands {
		switch k {
		case OperandSkip2:
			r.Skip(2)
			continue
		case OperandSkip4:
			r.Skip(4)
			continue
		case OperandInt16:
			sb.WriteString(fmt.Sprintf("%s%d", sep, r.Int16()))
		case OperandUint32:
			sb.WriteString(fmt.Sprintf("%s0x%X", sep, r.Uint32()))
		case OperandJump:
			v := r.Int16()
			sb.WriteString(fmt.Sprintf("%s%+d", sep, v))
			notes = append(notes, fmt.Sprintf("-> %04X", in.End()+int(v)))
		case OperandCode:
			v := r.Int16()
			sb.WriteString(fmt.Sprintf("%s%+d", sep, v))
			notes = append(notes, fmt.Sprintf("@ %04X", in.OperandStart()+int(v)))
		}
		sep = ", "
	}
	if err := r.Err(); err != nil {
		sb.WriteString(fmt.Sprintf(" <%v>", err))
	}
	if len(notes) > 0 {
		sb.WriteString(" ; ")
		sb.WriteString(strings.Join(notes, ", "))
	}
	return sb.String()
}
