// Package sim is a concrete executor for the straight-line subset of the
// 6502 instruction set. It exists to cross-check the abstract interpreter:
// whatever the abstraction claims as proven must hold on every concrete run.
package sim

import (
	"errors"
	"fmt"

	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// Status register bit positions.
const (
	FlagC uint8 = 0x01
	FlagZ uint8 = 0x02
	FlagI uint8 = 0x04
	FlagD uint8 = 0x08
	FlagB uint8 = 0x10
	FlagU uint8 = 0x20 // always reads as set
	FlagV uint8 = 0x40
	FlagN uint8 = 0x80
)

// ErrUnsupported marks instructions outside the simulated subset: control
// flow, indirect addressing and decimal arithmetic.
var ErrUnsupported = errors.New("sim: instruction not simulated")

// State is the concrete machine state. Memory is sparse; untouched bytes
// read as zero.
type State struct {
	A, X, Y, SP uint8
	P           uint8
	Mem         map[uint16]uint8
}

// NewState returns a powered-up state: stack at the top, interrupts off.
func NewState() *State {
	return &State{SP: 0xFD, P: FlagU | FlagI, Mem: make(map[uint16]uint8)}
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := *s
	c.Mem = make(map[uint16]uint8, len(s.Mem))
	for k, v := range s.Mem {
		c.Mem[k] = v
	}
	return &c
}

// Flag reports a single status bit.
func (s *State) Flag(bit uint8) bool { return s.P&bit != 0 }

func (s *State) setFlag(bit uint8, on bool) {
	if on {
		s.P |= bit
	} else {
		s.P &^= bit
	}
}

func (s *State) setNZ(v uint8) {
	s.setFlag(FlagZ, v == 0)
	s.setFlag(FlagN, v&0x80 != 0)
}

func (s *State) read(addr uint16) uint8     { return s.Mem[addr] }
func (s *State) write(addr uint16, v uint8) { s.Mem[addr] = v }
func (s *State) push(v uint8)               { s.write(0x0100+uint16(s.SP), v); s.SP-- }
func (s *State) pull() uint8                { s.SP++; return s.read(0x0100 + uint16(s.SP)) }

// effAddr resolves the operand to a memory address for the direct and
// indexed modes. Indirect modes are outside the subset.
func (s *State) effAddr(in inst.Instruction) (uint16, error) {
	switch in.Mode {
	case inst.ZeroPage:
		return in.Operand.Val & 0xFF, nil
	case inst.ZeroPageX:
		return uint16(uint8(in.Operand.Val) + s.X), nil
	case inst.ZeroPageY:
		return uint16(uint8(in.Operand.Val) + s.Y), nil
	case inst.Absolute:
		return in.Operand.Val, nil
	case inst.AbsoluteX:
		return in.Operand.Val + uint16(s.X), nil
	case inst.AbsoluteY:
		return in.Operand.Val + uint16(s.Y), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, inst.Disassemble(in))
}

// operand fetches the value an arithmetic or load instruction consumes.
func (s *State) operand(in inst.Instruction) (uint8, error) {
	if in.Mode == inst.Immediate {
		return uint8(in.Operand.Val), nil
	}
	addr, err := s.effAddr(in)
	if err != nil {
		return 0, err
	}
	return s.read(addr), nil
}

// Exec runs one instruction, modifying the state in place.
func Exec(s *State, in inst.Instruction) error {
	switch in.Mn {
	case inst.NOP:
		return nil

	case inst.CLC:
		s.setFlag(FlagC, false)
	case inst.SEC:
		s.setFlag(FlagC, true)
	case inst.CLD:
		s.setFlag(FlagD, false)
	case inst.SED:
		s.setFlag(FlagD, true)
	case inst.CLI:
		s.setFlag(FlagI, false)
	case inst.SEI:
		s.setFlag(FlagI, true)
	case inst.CLV:
		s.setFlag(FlagV, false)

	case inst.LDA:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.A = v
		s.setNZ(v)
	case inst.LDX:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.X = v
		s.setNZ(v)
	case inst.LDY:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.Y = v
		s.setNZ(v)

	case inst.STA:
		return s.store(in, s.A)
	case inst.STX:
		return s.store(in, s.X)
	case inst.STY:
		return s.store(in, s.Y)

	case inst.TAX:
		s.X = s.A
		s.setNZ(s.X)
	case inst.TAY:
		s.Y = s.A
		s.setNZ(s.Y)
	case inst.TXA:
		s.A = s.X
		s.setNZ(s.A)
	case inst.TYA:
		s.A = s.Y
		s.setNZ(s.A)
	case inst.TSX:
		s.X = s.SP
		s.setNZ(s.X)
	case inst.TXS:
		s.SP = s.X

	case inst.AND:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.A &= v
		s.setNZ(s.A)
	case inst.ORA:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.A |= v
		s.setNZ(s.A)
	case inst.EOR:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.A ^= v
		s.setNZ(s.A)

	case inst.ADC:
		if s.Flag(FlagD) {
			return fmt.Errorf("%w: decimal ADC", ErrUnsupported)
		}
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.adc(v)
	case inst.SBC:
		if s.Flag(FlagD) {
			return fmt.Errorf("%w: decimal SBC", ErrUnsupported)
		}
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.adc(^v)

	case inst.CMP:
		return s.compare(in, s.A)
	case inst.CPX:
		return s.compare(in, s.X)
	case inst.CPY:
		return s.compare(in, s.Y)

	case inst.INX:
		s.X++
		s.setNZ(s.X)
	case inst.DEX:
		s.X--
		s.setNZ(s.X)
	case inst.INY:
		s.Y++
		s.setNZ(s.Y)
	case inst.DEY:
		s.Y--
		s.setNZ(s.Y)
	case inst.INC:
		return s.rmw(in, func(v uint8) uint8 { v++; s.setNZ(v); return v })
	case inst.DEC:
		return s.rmw(in, func(v uint8) uint8 { v--; s.setNZ(v); return v })

	case inst.ASL:
		return s.shift(in, func(v uint8) uint8 {
			s.setFlag(FlagC, v&0x80 != 0)
			v <<= 1
			s.setNZ(v)
			return v
		})
	case inst.LSR:
		return s.shift(in, func(v uint8) uint8 {
			s.setFlag(FlagC, v&0x01 != 0)
			v >>= 1
			s.setNZ(v)
			return v
		})
	case inst.ROL:
		return s.shift(in, func(v uint8) uint8 {
			carry := s.Flag(FlagC)
			s.setFlag(FlagC, v&0x80 != 0)
			v <<= 1
			if carry {
				v |= 0x01
			}
			s.setNZ(v)
			return v
		})
	case inst.ROR:
		return s.shift(in, func(v uint8) uint8 {
			carry := s.Flag(FlagC)
			s.setFlag(FlagC, v&0x01 != 0)
			v >>= 1
			if carry {
				v |= 0x80
			}
			s.setNZ(v)
			return v
		})

	case inst.BIT:
		v, err := s.operand(in)
		if err != nil {
			return err
		}
		s.setFlag(FlagN, v&0x80 != 0)
		s.setFlag(FlagV, v&0x40 != 0)
		s.setFlag(FlagZ, s.A&v == 0)

	case inst.PHA:
		s.push(s.A)
	case inst.PLA:
		s.A = s.pull()
		s.setNZ(s.A)
	case inst.PHP:
		s.push(s.P | FlagB | FlagU)
	case inst.PLP:
		s.P = s.pull()&^FlagB | FlagU

	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, inst.Disassemble(in))
	}
	return nil
}

// Run executes a straight-line sequence.
func Run(s *State, instrs []inst.Instruction) error {
	for _, in := range instrs {
		if err := Exec(s, in); err != nil {
			return err
		}
	}
	return nil
}

// adc implements binary add-with-carry; SBC routes through it with the
// operand complemented.
func (s *State) adc(v uint8) {
	carry := uint16(0)
	if s.Flag(FlagC) {
		carry = 1
	}
	sum := uint16(s.A) + uint16(v) + carry
	r := uint8(sum)
	s.setFlag(FlagC, sum > 0xFF)
	s.setFlag(FlagV, (s.A^r)&(v^r)&0x80 != 0)
	s.A = r
	s.setNZ(r)
}

func (s *State) compare(in inst.Instruction, reg uint8) error {
	v, err := s.operand(in)
	if err != nil {
		return err
	}
	s.setFlag(FlagC, reg >= v)
	s.setNZ(reg - v)
	return nil
}

func (s *State) store(in inst.Instruction, v uint8) error {
	addr, err := s.effAddr(in)
	if err != nil {
		return err
	}
	s.write(addr, v)
	return nil
}

func (s *State) rmw(in inst.Instruction, f func(uint8) uint8) error {
	addr, err := s.effAddr(in)
	if err != nil {
		return err
	}
	s.write(addr, f(s.read(addr)))
	return nil
}

func (s *State) shift(in inst.Instruction, f func(uint8) uint8) error {
	if in.Mode == inst.Accumulator {
		s.A = f(s.A)
		return nil
	}
	return s.rmw(in, f)
}
