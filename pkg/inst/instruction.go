package inst

// Mnemonic identifies one documented NMOS 6502 instruction by name.
// We use our own enum instead of raw opcode bytes because one mnemonic
// spans several opcodes (one per addressing mode).
type Mnemonic uint8

// The 56 documented mnemonics, in alphabetical order.
const (
	ADC Mnemonic = iota
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRK
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JMP
	JSR
	LDA
	LDX
	LDY
	LSR
	NOP
	ORA
	PHA
	PHP
	PLA
	PLP
	ROL
	ROR
	RTI
	RTS
	SBC
	SEC
	SED
	SEI
	STA
	STX
	STY
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA

	MnemonicCount // sentinel
)

// AddrMode is the operand encoding scheme of an instruction.
type AddrMode uint8

const (
	Implied AddrMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect  // JMP (addr)
	IndirectX // (zp,X)
	IndirectY // (zp),Y
	Relative

	AddrModeCount // sentinel
)

var mnemonicNames = [MnemonicCount]string{
	"ADC", "AND", "ASL", "BCC", "BCS", "BEQ", "BIT", "BMI", "BNE", "BPL",
	"BRK", "BVC", "BVS", "CLC", "CLD", "CLI", "CLV", "CMP", "CPX", "CPY",
	"DEC", "DEX", "DEY", "EOR", "INC", "INX", "INY", "JMP", "JSR", "LDA",
	"LDX", "LDY", "LSR", "NOP", "ORA", "PHA", "PHP", "PLA", "PLP", "ROL",
	"ROR", "RTI", "RTS", "SBC", "SEC", "SED", "SEI", "STA", "STX", "STY",
	"TAX", "TAY", "TSX", "TXA", "TXS", "TYA",
}

var addrModeNames = [AddrModeCount]string{
	"implied", "accumulator", "immediate", "zeropage", "zeropage,X",
	"zeropage,Y", "absolute", "absolute,X", "absolute,Y", "indirect",
	"(indirect,X)", "(indirect),Y", "relative",
}

// String returns the assembly name of the mnemonic.
func (m Mnemonic) String() string {
	if m >= MnemonicCount {
		return "???"
	}
	return mnemonicNames[m]
}

// String returns a human-readable addressing mode name.
func (a AddrMode) String() string {
	if a >= AddrModeCount {
		return "???"
	}
	return addrModeNames[a]
}

// Operand is the operand of an instruction: an immediate value, an address,
// or a branch target. Sym, when non-empty, carries the symbolic name the
// code generator used (a label, or a named capture placeholder in patterns
// produced by the DSL pipeline); the numeric value is authoritative for
// matching.
type Operand struct {
	Val uint16
	Sym string
}

// Meta is optional per-instruction metadata attached by earlier phases or by
// annotation patterns. The zero value means "nothing known".
type Meta struct {
	EffAddr    uint16 // statically resolved effective address
	HasEffAddr bool
	Known      uint8 // operand byte value proven constant
	HasKnown   bool
}

// Instruction is one 6502 instruction as an immutable value. Rewrites build
// new Instruction values; nothing in the optimizer mutates one in place.
type Instruction struct {
	Mn      Mnemonic
	Mode    AddrMode
	Operand Operand
	Meta    Meta
}

// New builds an instruction with a numeric operand.
func New(mn Mnemonic, mode AddrMode, val uint16) Instruction {
	return Instruction{Mn: mn, Mode: mode, Operand: Operand{Val: val}}
}

// Imp builds an implied-mode instruction.
func Imp(mn Mnemonic) Instruction {
	return Instruction{Mn: mn, Mode: Implied}
}

// Imm builds an immediate-mode instruction.
func Imm(mn Mnemonic, v uint8) Instruction {
	return Instruction{Mn: mn, Mode: Immediate, Operand: Operand{Val: uint16(v)}}
}

// WithKnown returns a copy carrying a proven-constant operand value.
func (in Instruction) WithKnown(v uint8) Instruction {
	in.Meta.Known = v
	in.Meta.HasKnown = true
	return in
}

// SameOperand reports whether two instructions reference the same operand
// (numeric value and, when both are symbolic, the same symbol).
func (in Instruction) SameOperand(o Instruction) bool {
	if in.Operand.Val != o.Operand.Val {
		return false
	}
	if in.Operand.Sym != "" && o.Operand.Sym != "" {
		return in.Operand.Sym == o.Operand.Sym
	}
	return true
}

// IsBranch reports whether the mnemonic is a conditional branch.
func IsBranch(mn Mnemonic) bool {
	switch mn {
	case BCC, BCS, BEQ, BNE, BMI, BPL, BVC, BVS:
		return true
	}
	return false
}

// IsStore reports whether the mnemonic writes a register to memory.
func IsStore(mn Mnemonic) bool {
	return mn == STA || mn == STX || mn == STY
}

// IsTerminator reports whether the mnemonic ends a basic block.
func IsTerminator(mn Mnemonic) bool {
	switch mn {
	case JMP, RTS, RTI, BRK:
		return true
	}
	return IsBranch(mn)
}

// ModeBytes returns the total encoded length of an instruction using the
// given addressing mode, opcode byte included.
func ModeBytes(mode AddrMode) int {
	switch mode {
	case Implied, Accumulator:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 3
	default:
		return 2
	}
}
