package inst

// FlagMask selects a subset of the six status flags the optimizer models.
// The break pseudo-flag and the unused bit are not tracked.
type FlagMask uint8

const (
	FC FlagMask = 1 << iota // carry
	FZ                      // zero
	FI                      // interrupt disable
	FD                      // decimal
	FV                      // overflow
	FN                      // negative

	FlagsAll  = FC | FZ | FI | FD | FV | FN
	FlagsNZ   = FN | FZ
	FlagsNZC  = FN | FZ | FC
	FlagsNZCV = FN | FZ | FC | FV
)

// RegMask selects a subset of the machine registers.
type RegMask uint8

const (
	RA RegMask = 1 << iota // accumulator
	RX
	RY
	RSP // stack pointer
)

// FlagsWritten returns the flags an instruction may modify.
func FlagsWritten(in Instruction) FlagMask {
	switch in.Mn {
	case ADC, SBC:
		return FlagsNZCV
	case ASL, LSR, ROL, ROR, CMP, CPX, CPY:
		return FlagsNZC
	case AND, ORA, EOR, LDA, LDX, LDY, TAX, TAY, TXA, TYA, TSX, PLA,
		INX, INY, DEX, DEY, INC, DEC:
		return FlagsNZ
	case BIT:
		return FN | FV | FZ
	case CLC, SEC:
		return FC
	case CLI, SEI, BRK:
		return FI
	case CLD, SED:
		return FD
	case CLV:
		return FV
	case PLP, RTI:
		return FlagsAll
	}
	return 0
}

// FlagsRead returns the flags an instruction's result depends on.
func FlagsRead(in Instruction) FlagMask {
	switch in.Mn {
	case ADC, SBC:
		// Result depends on both the carry and the decimal mode.
		return FC | FD
	case ROL, ROR:
		return FC
	case BCC, BCS:
		return FC
	case BEQ, BNE:
		return FZ
	case BMI, BPL:
		return FN
	case BVC, BVS:
		return FV
	case PHP:
		return FlagsAll
	}
	return 0
}

// RegsWritten returns the registers an instruction modifies.
func RegsWritten(in Instruction) RegMask {
	switch in.Mn {
	case LDA, TXA, TYA, ADC, SBC, AND, ORA, EOR:
		return RA
	case PLA:
		return RA | RSP
	case ASL, LSR, ROL, ROR:
		if in.Mode == Accumulator {
			return RA
		}
		return 0
	case LDX, TAX, TSX, INX, DEX:
		return RX
	case LDY, TAY, INY, DEY:
		return RY
	case TXS:
		return RSP
	case PHA, PHP, PLP, JSR, RTS, RTI, BRK:
		return RSP
	}
	return 0
}

// RegsRead returns the registers an instruction reads, including index
// registers consumed by the addressing mode itself.
func RegsRead(in Instruction) RegMask {
	var r RegMask
	switch in.Mode {
	case ZeroPageX, AbsoluteX, IndirectX:
		r |= RX
	case ZeroPageY, AbsoluteY, IndirectY:
		r |= RY
	}
	switch in.Mn {
	case STA, CMP, TAX, TAY, ADC, SBC, AND, ORA, EOR, BIT:
		r |= RA
	case PHA:
		r |= RA | RSP
	case ASL, LSR, ROL, ROR:
		if in.Mode == Accumulator {
			r |= RA
		}
	case STX, CPX, TXA, TXS:
		r |= RX
	case STY, CPY, TYA:
		r |= RY
	case TSX, PLA, PLP, PHP, JSR, RTS, RTI, BRK:
		r |= RSP
	case INX, DEX:
		r |= RX
	case INY, DEY:
		r |= RY
	}
	return r
}

// ReadsMemory reports whether the instruction loads from its effective
// address. Read-modify-write instructions count as both read and write.
func ReadsMemory(in Instruction) bool {
	switch in.Mode {
	case Implied, Accumulator, Immediate, Relative:
		return false
	}
	switch in.Mn {
	case STA, STX, STY, JMP, JSR:
		return in.Mn == JMP && in.Mode == Indirect
	}
	return true
}

// WritesMemory reports whether the instruction stores to its effective
// address.
func WritesMemory(in Instruction) bool {
	switch in.Mn {
	case STA, STX, STY:
		return true
	case ASL, LSR, ROL, ROR, INC, DEC:
		return in.Mode != Accumulator
	}
	return false
}
