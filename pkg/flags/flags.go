// Package flags abstractly interprets 6502 status-flag state over a basic
// block. Each flag is tracked as Set, Clear or Unknown; an abstract register
// file additionally tracks proven-constant A/X/Y values so that
// immediate-operand instructions can be evaluated precisely instead of
// collapsing to Unknown.
package flags

import "github.com/blendsdk/blend65-sub003/pkg/inst"

// Value is the abstract state of one status flag. The zero value is Unknown,
// so a zero State is the correct all-unknown block-entry state.
type Value uint8

const (
	Unknown Value = iota
	Clear
	Set
)

// String returns "unknown", "clear" or "set".
func (v Value) String() string {
	switch v {
	case Clear:
		return "clear"
	case Set:
		return "set"
	}
	return "unknown"
}

// FromBool converts a concrete flag bit to its abstract value.
func FromBool(b bool) Value {
	if b {
		return Set
	}
	return Clear
}

// State holds one abstract value per tracked status flag.
type State struct {
	C, Z, I, D, V, N Value
}

// Entry returns the block-entry state: every flag unknown.
func Entry() State {
	return State{}
}

// Get returns the abstract value of a single flag. mask must name exactly
// one flag.
func (s State) Get(mask inst.FlagMask) Value {
	switch mask {
	case inst.FC:
		return s.C
	case inst.FZ:
		return s.Z
	case inst.FI:
		return s.I
	case inst.FD:
		return s.D
	case inst.FV:
		return s.V
	case inst.FN:
		return s.N
	}
	return Unknown
}

func (s *State) put(mask inst.FlagMask, v Value) {
	if mask&inst.FC != 0 {
		s.C = v
	}
	if mask&inst.FZ != 0 {
		s.Z = v
	}
	if mask&inst.FI != 0 {
		s.I = v
	}
	if mask&inst.FD != 0 {
		s.D = v
	}
	if mask&inst.FV != 0 {
		s.V = v
	}
	if mask&inst.FN != 0 {
		s.N = v
	}
}

// Cell is an abstract register value: either a proven constant or unknown.
type Cell struct {
	Known bool
	Val   uint8
}

// Regs is the abstract register file. SP is never tracked.
type Regs struct {
	A, X, Y Cell
}

// Tracker carries abstract flag and register state across one basic block.
// Propagation is strictly forward and intra-block; the zero value is the
// assumed-unknown entry state.
type Tracker struct {
	Flags State
	Regs  Regs
}

// nz sets N and Z exactly from a concrete result byte.
func (t *Tracker) nz(v uint8) {
	t.Flags.Z = FromBool(v == 0)
	t.Flags.N = FromBool(v&0x80 != 0)
}

// operand returns the instruction's source byte when it is statically known:
// an immediate value, or memory content proven constant by earlier analysis.
func operand(in inst.Instruction) (uint8, bool) {
	if in.Mode == inst.Immediate {
		return uint8(in.Operand.Val), true
	}
	if in.Meta.HasKnown {
		return in.Meta.Known, true
	}
	return 0, false
}

// Step advances the abstract state across one instruction.
func (t *Tracker) Step(in inst.Instruction) {
	switch in.Mn {
	case inst.CLC:
		t.Flags.C = Clear
	case inst.SEC:
		t.Flags.C = Set
	case inst.CLI:
		t.Flags.I = Clear
	case inst.SEI:
		t.Flags.I = Set
	case inst.CLD:
		t.Flags.D = Clear
	case inst.SED:
		t.Flags.D = Set
	case inst.CLV:
		t.Flags.V = Clear

	case inst.LDA:
		t.load(&t.Regs.A, in)
	case inst.LDX:
		t.load(&t.Regs.X, in)
	case inst.LDY:
		t.load(&t.Regs.Y, in)

	case inst.TAX:
		t.transfer(&t.Regs.X, t.Regs.A)
	case inst.TAY:
		t.transfer(&t.Regs.Y, t.Regs.A)
	case inst.TXA:
		t.transfer(&t.Regs.A, t.Regs.X)
	case inst.TYA:
		t.transfer(&t.Regs.A, t.Regs.Y)
	case inst.TSX:
		t.Regs.X = Cell{}
		t.Flags.put(inst.FlagsNZ, Unknown)
	case inst.TXS:
		// no flags, no tracked registers

	case inst.INX:
		t.step8(&t.Regs.X, +1)
	case inst.DEX:
		t.step8(&t.Regs.X, -1)
	case inst.INY:
		t.step8(&t.Regs.Y, +1)
	case inst.DEY:
		t.step8(&t.Regs.Y, -1)

	case inst.INC, inst.DEC:
		t.Flags.put(inst.FlagsNZ, Unknown)

	case inst.AND:
		t.logic(in, func(a, m uint8) uint8 { return a & m })
	case inst.ORA:
		t.logic(in, func(a, m uint8) uint8 { return a | m })
	case inst.EOR:
		t.logic(in, func(a, m uint8) uint8 { return a ^ m })

	case inst.ADC:
		t.adc(in, false)
	case inst.SBC:
		t.adc(in, true)

	case inst.CMP:
		t.compare(t.Regs.A, in)
	case inst.CPX:
		t.compare(t.Regs.X, in)
	case inst.CPY:
		t.compare(t.Regs.Y, in)

	case inst.ASL, inst.LSR, inst.ROL, inst.ROR:
		t.shift(in)

	case inst.BIT:
		t.bit(in)

	case inst.PLA:
		t.Regs.A = Cell{}
		t.Flags.put(inst.FlagsNZ, Unknown)
	case inst.PLP, inst.RTI:
		// Restoring the whole flag register from a saved copy: the saved
		// value is not tracked, everything becomes unknown.
		t.Flags = State{}
	case inst.JSR, inst.BRK:
		// Control leaves the block's straight line; assume the callee
		// clobbers flags and registers.
		t.Flags = State{}
		t.Regs = Regs{}
	}
}

func (t *Tracker) load(dst *Cell, in inst.Instruction) {
	if v, ok := operand(in); ok {
		*dst = Cell{Known: true, Val: v}
		t.nz(v)
		return
	}
	*dst = Cell{}
	t.Flags.put(inst.FlagsNZ, Unknown)
}

func (t *Tracker) transfer(dst *Cell, src Cell) {
	*dst = src
	if src.Known {
		t.nz(src.Val)
	} else {
		t.Flags.put(inst.FlagsNZ, Unknown)
	}
}

func (t *Tracker) step8(c *Cell, delta int) {
	if c.Known {
		c.Val = uint8(int(c.Val) + delta)
		t.nz(c.Val)
		return
	}
	t.Flags.put(inst.FlagsNZ, Unknown)
}

func (t *Tracker) logic(in inst.Instruction, op func(a, m uint8) uint8) {
	m, mOK := operand(in)
	if t.Regs.A.Known && mOK {
		t.Regs.A.Val = op(t.Regs.A.Val, m)
		t.nz(t.Regs.A.Val)
		return
	}
	t.Regs.A = Cell{}
	t.Flags.put(inst.FlagsNZ, Unknown)
	if !mOK {
		return
	}
	// A is unknown but the mask is known; some results are still exact.
	switch in.Mn {
	case inst.AND:
		if m == 0 {
			t.Regs.A = Cell{Known: true}
			t.nz(0)
		} else if m&0x80 == 0 {
			t.Flags.N = Clear
		}
	case inst.ORA:
		if m&0x80 != 0 {
			t.Flags.N = Set
		}
		if m != 0 {
			t.Flags.Z = Clear
		}
	}
}

func (t *Tracker) adc(in inst.Instruction, subtract bool) {
	m, mOK := operand(in)
	exact := t.Regs.A.Known && mOK && t.Flags.C != Unknown && t.Flags.D == Clear
	if !exact {
		t.Regs.A = Cell{}
		t.Flags.put(inst.FlagsNZCV, Unknown)
		return
	}
	if subtract {
		m = ^m
	}
	carry := uint16(0)
	if t.Flags.C == Set {
		carry = 1
	}
	a := t.Regs.A.Val
	sum := uint16(a) + uint16(m) + carry
	res := uint8(sum)
	t.Flags.C = FromBool(sum > 0xFF)
	t.Flags.V = FromBool((a^res)&(m^res)&0x80 != 0)
	t.Regs.A = Cell{Known: true, Val: res}
	t.nz(res)
}

func (t *Tracker) compare(reg Cell, in inst.Instruction) {
	m, mOK := operand(in)
	if reg.Known && mOK {
		diff := reg.Val - m
		t.Flags.C = FromBool(reg.Val >= m)
		t.Flags.Z = FromBool(diff == 0)
		t.Flags.N = FromBool(diff&0x80 != 0)
		return
	}
	t.Flags.put(inst.FlagsNZC, Unknown)
}

func (t *Tracker) shift(in inst.Instruction) {
	if in.Mode != inst.Accumulator {
		t.Flags.put(inst.FlagsNZC, Unknown)
		if in.Mn == inst.LSR {
			t.Flags.N = Clear // LSR always shifts a zero into bit 7
		}
		return
	}
	a := t.Regs.A
	switch in.Mn {
	case inst.ASL:
		if a.Known {
			t.Flags.C = FromBool(a.Val&0x80 != 0)
			t.Regs.A = Cell{Known: true, Val: a.Val << 1}
			t.nz(t.Regs.A.Val)
			return
		}
	case inst.LSR:
		if a.Known {
			t.Flags.C = FromBool(a.Val&0x01 != 0)
			t.Regs.A = Cell{Known: true, Val: a.Val >> 1}
			t.nz(t.Regs.A.Val)
			return
		}
		t.Regs.A = Cell{}
		t.Flags.put(inst.FlagsNZC, Unknown)
		t.Flags.N = Clear
		return
	case inst.ROL:
		if a.Known && t.Flags.C != Unknown {
			res := a.Val << 1
			if t.Flags.C == Set {
				res |= 0x01
			}
			t.Flags.C = FromBool(a.Val&0x80 != 0)
			t.Regs.A = Cell{Known: true, Val: res}
			t.nz(res)
			return
		}
	case inst.ROR:
		if a.Known && t.Flags.C != Unknown {
			res := a.Val >> 1
			if t.Flags.C == Set {
				res |= 0x80
			}
			t.Flags.C = FromBool(a.Val&0x01 != 0)
			t.Regs.A = Cell{Known: true, Val: res}
			t.nz(res)
			return
		}
	}
	t.Regs.A = Cell{}
	t.Flags.put(inst.FlagsNZC, Unknown)
}

func (t *Tracker) bit(in inst.Instruction) {
	m, mOK := operand(in)
	if !mOK {
		t.Flags.put(inst.FN|inst.FV|inst.FZ, Unknown)
		return
	}
	// BIT copies operand bits 7/6 straight into N/V; this is what justifies
	// the "BIT clears V when the operand's bit 6 is proven zero" patterns.
	t.Flags.N = FromBool(m&0x80 != 0)
	t.Flags.V = FromBool(m&0x40 != 0)
	switch {
	case t.Regs.A.Known:
		t.Flags.Z = FromBool(t.Regs.A.Val&m == 0)
	case m == 0:
		t.Flags.Z = Set
	default:
		t.Flags.Z = Unknown
	}
}

// Before computes the abstract state at every program point of a block:
// result[i] is the state immediately before instrs[i], and result[len] is
// the state after the last instruction.
func Before(instrs []inst.Instruction) []Tracker {
	states := make([]Tracker, len(instrs)+1)
	var t Tracker
	for i := range instrs {
		states[i] = t
		t.Step(instrs[i])
	}
	states[len(instrs)] = t
	return states
}
