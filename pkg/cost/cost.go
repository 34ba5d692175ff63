// Package cost computes cycle/byte costs of 6502 instruction sequences and
// decides whether a candidate rewrite is worth applying.
package cost

import (
	"math"

	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// Cost is the static cost of a single instruction.
type Cost struct {
	Cycles  int // base clock cycles
	Penalty int // worst-case data-dependent extra cycles
	Bytes   int
}

// Instruction returns the cost of one instruction, or an error for a
// (mnemonic, mode) pair absent from the documented instruction set.
func Instruction(in inst.Instruction) (Cost, error) {
	info, err := inst.Lookup(in.Mn, in.Mode)
	if err != nil {
		return Cost{}, err
	}
	return Cost{Cycles: info.Cycles, Penalty: info.Penalty, Bytes: info.Bytes}, nil
}

// Sequence is the aggregate cost of an instruction sequence. Min assumes no
// penalty ever applies, Max assumes every penalty applies; Avg is the mean of
// the two. Exact counts need runtime operand values a static optimizer does
// not have, so Avg is the practical estimate used for savings accounting.
type Sequence struct {
	MinCycles int
	MaxCycles int
	AvgCycles float64
	Bytes     int
}

// Of sums costs over a sequence. An empty sequence costs nothing.
func Of(seq []inst.Instruction) (Sequence, error) {
	var s Sequence
	for i := range seq {
		c, err := Instruction(seq[i])
		if err != nil {
			return Sequence{}, err
		}
		s.MinCycles += c.Cycles
		s.MaxCycles += c.Cycles + c.Penalty
		s.Bytes += c.Bytes
	}
	s.AvgCycles = float64(s.MinCycles+s.MaxCycles) / 2
	return s, nil
}

// Comparison is the verdict on replacing one sequence with another.
// Confidence here is estimation confidence in the cycle arithmetic, not
// semantic correctness; the two concerns are deliberately kept apart.
type Comparison struct {
	CyclesSaved int
	BytesSaved  int
	Beneficial  bool
	Confidence  float64
}

// variableFractionCap bounds how much data-dependent timing can reduce
// estimation confidence.
const variableFractionCap = 0.3

// Compare evaluates replacing original with replacement. Beneficial means one
// metric improves with no regression in the other, or a gain of at least two
// units in one metric offsets a one-unit regression in the other.
func Compare(original, replacement []inst.Instruction) (Comparison, error) {
	o, err := Of(original)
	if err != nil {
		return Comparison{}, err
	}
	r, err := Of(replacement)
	if err != nil {
		return Comparison{}, err
	}

	cmp := Comparison{
		CyclesSaved: int(math.Round(o.AvgCycles - r.AvgCycles)),
		BytesSaved:  o.Bytes - r.Bytes,
	}

	switch {
	case cmp.CyclesSaved > 0 && cmp.BytesSaved >= 0,
		cmp.BytesSaved > 0 && cmp.CyclesSaved >= 0:
		cmp.Beneficial = true
	case cmp.CyclesSaved >= 2 && cmp.BytesSaved >= -1,
		cmp.BytesSaved >= 2 && cmp.CyclesSaved >= -1:
		// A clearly dominant improvement may pay a one-unit regression.
		cmp.Beneficial = true
	}

	cmp.Confidence = 1 - variableFractionCap*variableFraction(original, replacement)
	return cmp, nil
}

// variableFraction returns the fraction of instructions across both
// sequences whose cycle count depends on runtime data.
func variableFraction(a, b []inst.Instruction) float64 {
	total, variable := 0, 0
	for _, seq := range [][]inst.Instruction{a, b} {
		for i := range seq {
			total++
			if info, err := inst.Lookup(seq[i].Mn, seq[i].Mode); err == nil && info.Penalty > 0 {
				variable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(variable) / float64(total)
}
