package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// parseAssembly converts assembly text into instructions. Instructions are
// separated by newlines or ":"; ";" starts a comment.
func parseAssembly(text string) ([]inst.Instruction, error) {
	var seq []inst.Instruction
	for _, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, ";"); i >= 0 {
			line = line[:i]
		}
		for _, part := range strings.Split(line, ":") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			in, err := parseInstruction(part)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q: %w", part, err)
			}
			seq = append(seq, in)
		}
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("no instructions parsed")
	}
	return seq, nil
}

func parseMnemonic(s string) (inst.Mnemonic, bool) {
	for mn := inst.Mnemonic(0); mn < inst.MnemonicCount; mn++ {
		if strings.EqualFold(s, mn.String()) {
			return mn, true
		}
	}
	return 0, false
}

// parseValue accepts $-prefixed hex or plain decimal.
func parseValue(s string) (uint16, error) {
	base := 10
	if strings.HasPrefix(s, "$") {
		s = s[1:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func parseInstruction(text string) (inst.Instruction, error) {
	fields := strings.Fields(text)
	mn, ok := parseMnemonic(fields[0])
	if !ok {
		return inst.Instruction{}, fmt.Errorf("unknown mnemonic %q", fields[0])
	}
	operand := strings.Join(fields[1:], "")

	mode, op, err := parseOperand(mn, operand)
	if err != nil {
		return inst.Instruction{}, err
	}
	if _, err := inst.Lookup(mn, mode); err != nil {
		return inst.Instruction{}, err
	}
	return inst.Instruction{Mn: mn, Mode: mode, Operand: op}, nil
}

func parseOperand(mn inst.Mnemonic, s string) (inst.AddrMode, inst.Operand, error) {
	upper := strings.ToUpper(s)
	switch {
	case s == "":
		if inst.Exists(mn, inst.Implied) {
			return inst.Implied, inst.Operand{}, nil
		}
		return inst.Accumulator, inst.Operand{}, nil

	case upper == "A":
		return inst.Accumulator, inst.Operand{}, nil

	case strings.HasPrefix(s, "#"):
		v, err := parseValue(s[1:])
		if err != nil {
			return 0, inst.Operand{}, err
		}
		return inst.Immediate, inst.Operand{Val: v}, nil

	case strings.HasPrefix(s, "("):
		switch {
		case strings.HasSuffix(upper, ",X)"):
			v, err := parseValue(s[1 : len(s)-3])
			return inst.IndirectX, inst.Operand{Val: v}, err
		case strings.HasSuffix(upper, "),Y"):
			v, err := parseValue(s[1 : len(s)-3])
			return inst.IndirectY, inst.Operand{Val: v}, err
		case strings.HasSuffix(s, ")"):
			v, err := parseValue(s[1 : len(s)-1])
			return inst.Indirect, inst.Operand{Val: v}, err
		}
		return 0, inst.Operand{}, fmt.Errorf("malformed indirect operand %q", s)
	}

	// Branches take a target address or label.
	if inst.Exists(mn, inst.Relative) {
		if v, err := parseValue(s); err == nil {
			return inst.Relative, inst.Operand{Val: v}, nil
		}
		return inst.Relative, inst.Operand{Sym: s}, nil
	}

	switch {
	case strings.HasSuffix(upper, ",X"):
		v, err := parseValue(s[:len(s)-2])
		if err != nil {
			return 0, inst.Operand{}, err
		}
		if v <= 0xFF && inst.Exists(mn, inst.ZeroPageX) {
			return inst.ZeroPageX, inst.Operand{Val: v}, nil
		}
		return inst.AbsoluteX, inst.Operand{Val: v}, nil

	case strings.HasSuffix(upper, ",Y"):
		v, err := parseValue(s[:len(s)-2])
		if err != nil {
			return 0, inst.Operand{}, err
		}
		if v <= 0xFF && inst.Exists(mn, inst.ZeroPageY) {
			return inst.ZeroPageY, inst.Operand{Val: v}, nil
		}
		return inst.AbsoluteY, inst.Operand{Val: v}, nil
	}

	if v, err := parseValue(s); err == nil {
		if v <= 0xFF && inst.Exists(mn, inst.ZeroPage) {
			return inst.ZeroPage, inst.Operand{Val: v}, nil
		}
		return inst.Absolute, inst.Operand{Val: v}, nil
	}

	// Label operand: jumps and calls resolve symbolically.
	return inst.Absolute, inst.Operand{Sym: s}, nil
}
