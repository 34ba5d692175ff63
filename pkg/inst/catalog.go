package inst

import "fmt"

// Info holds static metadata for one (mnemonic, addressing mode) pairing.
type Info struct {
	Opcode  uint8 // raw encoding byte
	Cycles  int   // base clock cycles
	Penalty int   // worst-case extra cycles (page cross, branch taken)
	Bytes   int   // encoded length including the opcode byte
	valid   bool
}

// Catalog maps (Mnemonic, AddrMode) to its Info. Entries not present on the
// documented NMOS 6502 stay zero-valued; use Lookup to access safely.
var Catalog [MnemonicCount][AddrModeCount]Info

// ErrUnknownInstruction is returned for (mnemonic, mode) pairs that do not
// exist on the documented instruction set. Lookups never fall back to a
// default cost: a silent default would corrupt every downstream comparison.
var ErrUnknownInstruction = fmt.Errorf("inst: unknown instruction")

// Lookup returns catalog info for a (mnemonic, mode) pair.
func Lookup(mn Mnemonic, mode AddrMode) (Info, error) {
	if mn >= MnemonicCount || mode >= AddrModeCount {
		return Info{}, fmt.Errorf("%w: %s %s", ErrUnknownInstruction, mn, mode)
	}
	info := Catalog[mn][mode]
	if !info.valid {
		return Info{}, fmt.Errorf("%w: %s %s", ErrUnknownInstruction, mn, mode)
	}
	return info, nil
}

// Exists reports whether a (mnemonic, mode) pair is a documented instruction.
func Exists(mn Mnemonic, mode AddrMode) bool {
	return mn < MnemonicCount && mode < AddrModeCount && Catalog[mn][mode].valid
}

// Modes returns all addressing modes documented for a mnemonic.
func Modes(mn Mnemonic) []AddrMode {
	var modes []AddrMode
	for mode := AddrMode(0); mode < AddrModeCount; mode++ {
		if Catalog[mn][mode].valid {
			modes = append(modes, mode)
		}
	}
	return modes
}

// Disassemble returns assembly text for an instruction.
func Disassemble(in Instruction) string {
	mn := in.Mn.String()
	switch in.Mode {
	case Implied:
		return mn
	case Accumulator:
		return mn + " A"
	case Immediate:
		return fmt.Sprintf("%s #$%02X", mn, uint8(in.Operand.Val))
	case ZeroPage:
		return fmt.Sprintf("%s $%02X", mn, uint8(in.Operand.Val))
	case ZeroPageX:
		return fmt.Sprintf("%s $%02X,X", mn, uint8(in.Operand.Val))
	case ZeroPageY:
		return fmt.Sprintf("%s $%02X,Y", mn, uint8(in.Operand.Val))
	case Absolute:
		return fmt.Sprintf("%s $%04X", mn, in.Operand.Val)
	case AbsoluteX:
		return fmt.Sprintf("%s $%04X,X", mn, in.Operand.Val)
	case AbsoluteY:
		return fmt.Sprintf("%s $%04X,Y", mn, in.Operand.Val)
	case Indirect:
		return fmt.Sprintf("%s ($%04X)", mn, in.Operand.Val)
	case IndirectX:
		return fmt.Sprintf("%s ($%02X,X)", mn, uint8(in.Operand.Val))
	case IndirectY:
		return fmt.Sprintf("%s ($%02X),Y", mn, uint8(in.Operand.Val))
	case Relative:
		if in.Operand.Sym != "" {
			return mn + " " + in.Operand.Sym
		}
		return fmt.Sprintf("%s $%04X", mn, in.Operand.Val)
	}
	return mn + " ???"
}

// DisassembleSeq returns assembly text for a sequence, one instruction per
// line separator " : ".
func DisassembleSeq(seq []Instruction) string {
	s := ""
	for i := range seq {
		if i > 0 {
			s += " : "
		}
		s += Disassemble(seq[i])
	}
	return s
}

func def(mn Mnemonic, mode AddrMode, opcode uint8, cycles, penalty int) {
	Catalog[mn][mode] = Info{
		Opcode:  opcode,
		Cycles:  cycles,
		Penalty: penalty,
		Bytes:   ModeBytes(mode),
		valid:   true,
	}
}

func init() {
	// Read-modify-write and load timings follow the MOS datasheet. Penalty
	// is the worst-case data-dependent surcharge: +1 for page-crossing
	// indexed reads, +2 for a taken branch that crosses a page.

	// ADC
	def(ADC, Immediate, 0x69, 2, 0)
	def(ADC, ZeroPage, 0x65, 3, 0)
	def(ADC, ZeroPageX, 0x75, 4, 0)
	def(ADC, Absolute, 0x6D, 4, 0)
	def(ADC, AbsoluteX, 0x7D, 4, 1)
	def(ADC, AbsoluteY, 0x79, 4, 1)
	def(ADC, IndirectX, 0x61, 6, 0)
	def(ADC, IndirectY, 0x71, 5, 1)

	// AND
	def(AND, Immediate, 0x29, 2, 0)
	def(AND, ZeroPage, 0x25, 3, 0)
	def(AND, ZeroPageX, 0x35, 4, 0)
	def(AND, Absolute, 0x2D, 4, 0)
	def(AND, AbsoluteX, 0x3D, 4, 1)
	def(AND, AbsoluteY, 0x39, 4, 1)
	def(AND, IndirectX, 0x21, 6, 0)
	def(AND, IndirectY, 0x31, 5, 1)

	// ASL
	def(ASL, Accumulator, 0x0A, 2, 0)
	def(ASL, ZeroPage, 0x06, 5, 0)
	def(ASL, ZeroPageX, 0x16, 6, 0)
	def(ASL, Absolute, 0x0E, 6, 0)
	def(ASL, AbsoluteX, 0x1E, 7, 0)

	// Branches: 2 cycles not taken, +1 taken, +1 more on page cross.
	def(BCC, Relative, 0x90, 2, 2)
	def(BCS, Relative, 0xB0, 2, 2)
	def(BEQ, Relative, 0xF0, 2, 2)
	def(BMI, Relative, 0x30, 2, 2)
	def(BNE, Relative, 0xD0, 2, 2)
	def(BPL, Relative, 0x10, 2, 2)
	def(BVC, Relative, 0x50, 2, 2)
	def(BVS, Relative, 0x70, 2, 2)

	// BIT
	def(BIT, ZeroPage, 0x24, 3, 0)
	def(BIT, Absolute, 0x2C, 4, 0)

	// BRK
	def(BRK, Implied, 0x00, 7, 0)

	// Flag clears/sets
	def(CLC, Implied, 0x18, 2, 0)
	def(CLD, Implied, 0xD8, 2, 0)
	def(CLI, Implied, 0x58, 2, 0)
	def(CLV, Implied, 0xB8, 2, 0)
	def(SEC, Implied, 0x38, 2, 0)
	def(SED, Implied, 0xF8, 2, 0)
	def(SEI, Implied, 0x78, 2, 0)

	// CMP
	def(CMP, Immediate, 0xC9, 2, 0)
	def(CMP, ZeroPage, 0xC5, 3, 0)
	def(CMP, ZeroPageX, 0xD5, 4, 0)
	def(CMP, Absolute, 0xCD, 4, 0)
	def(CMP, AbsoluteX, 0xDD, 4, 1)
	def(CMP, AbsoluteY, 0xD9, 4, 1)
	def(CMP, IndirectX, 0xC1, 6, 0)
	def(CMP, IndirectY, 0xD1, 5, 1)

	// CPX / CPY
	def(CPX, Immediate, 0xE0, 2, 0)
	def(CPX, ZeroPage, 0xE4, 3, 0)
	def(CPX, Absolute, 0xEC, 4, 0)
	def(CPY, Immediate, 0xC0, 2, 0)
	def(CPY, ZeroPage, 0xC4, 3, 0)
	def(CPY, Absolute, 0xCC, 4, 0)

	// DEC / DEX / DEY
	def(DEC, ZeroPage, 0xC6, 5, 0)
	def(DEC, ZeroPageX, 0xD6, 6, 0)
	def(DEC, Absolute, 0xCE, 6, 0)
	def(DEC, AbsoluteX, 0xDE, 7, 0)
	def(DEX, Implied, 0xCA, 2, 0)
	def(DEY, Implied, 0x88, 2, 0)

	// EOR
	def(EOR, Immediate, 0x49, 2, 0)
	def(EOR, ZeroPage, 0x45, 3, 0)
	def(EOR, ZeroPageX, 0x55, 4, 0)
	def(EOR, Absolute, 0x4D, 4, 0)
	def(EOR, AbsoluteX, 0x5D, 4, 1)
	def(EOR, AbsoluteY, 0x59, 4, 1)
	def(EOR, IndirectX, 0x41, 6, 0)
	def(EOR, IndirectY, 0x51, 5, 1)

	// INC / INX / INY
	def(INC, ZeroPage, 0xE6, 5, 0)
	def(INC, ZeroPageX, 0xF6, 6, 0)
	def(INC, Absolute, 0xEE, 6, 0)
	def(INC, AbsoluteX, 0xFE, 7, 0)
	def(INX, Implied, 0xE8, 2, 0)
	def(INY, Implied, 0xC8, 2, 0)

	// JMP / JSR
	def(JMP, Absolute, 0x4C, 3, 0)
	def(JMP, Indirect, 0x6C, 5, 0)
	def(JSR, Absolute, 0x20, 6, 0)

	// LDA
	def(LDA, Immediate, 0xA9, 2, 0)
	def(LDA, ZeroPage, 0xA5, 3, 0)
	def(LDA, ZeroPageX, 0xB5, 4, 0)
	def(LDA, Absolute, 0xAD, 4, 0)
	def(LDA, AbsoluteX, 0xBD, 4, 1)
	def(LDA, AbsoluteY, 0xB9, 4, 1)
	def(LDA, IndirectX, 0xA1, 6, 0)
	def(LDA, IndirectY, 0xB1, 5, 1)

	// LDX
	def(LDX, Immediate, 0xA2, 2, 0)
	def(LDX, ZeroPage, 0xA6, 3, 0)
	def(LDX, ZeroPageY, 0xB6, 4, 0)
	def(LDX, Absolute, 0xAE, 4, 0)
	def(LDX, AbsoluteY, 0xBE, 4, 1)

	// LDY
	def(LDY, Immediate, 0xA0, 2, 0)
	def(LDY, ZeroPage, 0xA4, 3, 0)
	def(LDY, ZeroPageX, 0xB4, 4, 0)
	def(LDY, Absolute, 0xAC, 4, 0)
	def(LDY, AbsoluteX, 0xBC, 4, 1)

	// LSR
	def(LSR, Accumulator, 0x4A, 2, 0)
	def(LSR, ZeroPage, 0x46, 5, 0)
	def(LSR, ZeroPageX, 0x56, 6, 0)
	def(LSR, Absolute, 0x4E, 6, 0)
	def(LSR, AbsoluteX, 0x5E, 7, 0)

	// NOP
	def(NOP, Implied, 0xEA, 2, 0)

	// ORA
	def(ORA, Immediate, 0x09, 2, 0)
	def(ORA, ZeroPage, 0x05, 3, 0)
	def(ORA, ZeroPageX, 0x15, 4, 0)
	def(ORA, Absolute, 0x0D, 4, 0)
	def(ORA, AbsoluteX, 0x1D, 4, 1)
	def(ORA, AbsoluteY, 0x19, 4, 1)
	def(ORA, IndirectX, 0x01, 6, 0)
	def(ORA, IndirectY, 0x11, 5, 1)

	// Stack
	def(PHA, Implied, 0x48, 3, 0)
	def(PHP, Implied, 0x08, 3, 0)
	def(PLA, Implied, 0x68, 4, 0)
	def(PLP, Implied, 0x28, 4, 0)

	// ROL / ROR
	def(ROL, Accumulator, 0x2A, 2, 0)
	def(ROL, ZeroPage, 0x26, 5, 0)
	def(ROL, ZeroPageX, 0x36, 6, 0)
	def(ROL, Absolute, 0x2E, 6, 0)
	def(ROL, AbsoluteX, 0x3E, 7, 0)
	def(ROR, Accumulator, 0x6A, 2, 0)
	def(ROR, ZeroPage, 0x66, 5, 0)
	def(ROR, ZeroPageX, 0x76, 6, 0)
	def(ROR, Absolute, 0x6E, 6, 0)
	def(ROR, AbsoluteX, 0x7E, 7, 0)

	// Returns
	def(RTI, Implied, 0x40, 6, 0)
	def(RTS, Implied, 0x60, 6, 0)

	// SBC
	def(SBC, Immediate, 0xE9, 2, 0)
	def(SBC, ZeroPage, 0xE5, 3, 0)
	def(SBC, ZeroPageX, 0xF5, 4, 0)
	def(SBC, Absolute, 0xED, 4, 0)
	def(SBC, AbsoluteX, 0xFD, 4, 1)
	def(SBC, AbsoluteY, 0xF9, 4, 1)
	def(SBC, IndirectX, 0xE1, 6, 0)
	def(SBC, IndirectY, 0xF1, 5, 1)

	// Stores: no page-cross penalty, indexed stores always pay the cycle.
	def(STA, ZeroPage, 0x85, 3, 0)
	def(STA, ZeroPageX, 0x95, 4, 0)
	def(STA, Absolute, 0x8D, 4, 0)
	def(STA, AbsoluteX, 0x9D, 5, 0)
	def(STA, AbsoluteY, 0x99, 5, 0)
	def(STA, IndirectX, 0x81, 6, 0)
	def(STA, IndirectY, 0x91, 6, 0)
	def(STX, ZeroPage, 0x86, 3, 0)
	def(STX, ZeroPageY, 0x96, 4, 0)
	def(STX, Absolute, 0x8E, 4, 0)
	def(STY, ZeroPage, 0x84, 3, 0)
	def(STY, ZeroPageX, 0x94, 4, 0)
	def(STY, Absolute, 0x8C, 4, 0)

	// Transfers
	def(TAX, Implied, 0xAA, 2, 0)
	def(TAY, Implied, 0xA8, 2, 0)
	def(TSX, Implied, 0xBA, 2, 0)
	def(TXA, Implied, 0x8A, 2, 0)
	def(TXS, Implied, 0x9A, 2, 0)
	def(TYA, Implied, 0x98, 2, 0)
}
