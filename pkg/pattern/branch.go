package pattern

import (
	"github.com/blendsdk/blend65-sub003/pkg/flags"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// complementaryBranches pairs branch mnemonics testing opposite conditions
// of the same flag.
var complementaryBranches = map[inst.Mnemonic]inst.Mnemonic{
	inst.BEQ: inst.BNE,
	inst.BNE: inst.BEQ,
	inst.BCC: inst.BCS,
	inst.BCS: inst.BCC,
	inst.BPL: inst.BMI,
	inst.BMI: inst.BPL,
	inst.BVC: inst.BVS,
	inst.BVS: inst.BVC,
}

// ComplementaryBranchPair rewrites two consecutive complementary branches to
// the same target into an unconditional JMP: one of the two is always taken.
// This is a cost-justified rewrite; the engine's cost gate has the final say
// on whether the JMP actually wins.
type ComplementaryBranchPair struct{ Info }

// NewComplementaryBranchPair builds the rule.
func NewComplementaryBranchPair() *ComplementaryBranchPair {
	return &ComplementaryBranchPair{Info{
		Name:   "branch-complementary-pair",
		Desc:   "fuse complementary conditional branches to one target into JMP",
		Cat:    Branch,
		Level:  LevelStandard,
		Window: 2,
	}}
}

func (p *ComplementaryBranchPair) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	first, second := w.At(0), w.At(1)
	if complementaryBranches[first.Mn] != second.Mn || !inst.IsBranch(first.Mn) {
		return nil
	}
	if !first.SameOperand(second) {
		return nil
	}
	m := matched(w, 2, 1.0)
	m.Captures = map[string]uint16{"target": first.Operand.Val}
	return m
}

func (p *ComplementaryBranchPair) Replace(m *Match) Replacement {
	jmp := inst.New(inst.JMP, inst.Absolute, m.Captures["target"])
	jmp.Operand.Sym = m.Instrs[0].Operand.Sym
	return rewrite(m, []inst.Instruction{jmp})
}

// AnnotateKnownStore attaches proven-constant metadata to a store whose
// source register value the abstract interpreter knows exactly. The rewrite
// changes no instruction bytes and must claim zero savings; it exists so
// downstream passes (and later peephole passes over the same block) can
// treat the stored byte as a known constant.
type AnnotateKnownStore struct{ Info }

// NewAnnotateKnownStore builds the rule.
func NewAnnotateKnownStore() *AnnotateKnownStore {
	return &AnnotateKnownStore{Info{
		Name:   "store-annotate-known",
		Desc:   "mark a store of a proven-constant register value",
		Cat:    General,
		Level:  LevelStandard,
		Window: 1,
	}}
}

func (p *AnnotateKnownStore) Match(w Window, ctx *Context) *Match {
	if w.Len() < 1 {
		return nil
	}
	in := w.At(0)
	if !inst.IsStore(in.Mn) || in.Meta.HasKnown {
		return nil
	}
	if _, ok := directAddr(in); !ok {
		return nil
	}
	var cell flags.Cell
	switch in.Mn {
	case inst.STA:
		cell = ctx.Before.Regs.A
	case inst.STX:
		cell = ctx.Before.Regs.X
	case inst.STY:
		cell = ctx.Before.Regs.Y
	}
	if !cell.Known {
		return nil
	}
	m := matched(w, 1, 1.0)
	m.Captures = map[string]uint16{"value": uint16(cell.Val)}
	return m
}

func (p *AnnotateKnownStore) Replace(m *Match) Replacement {
	annotated := m.Instrs[0].WithKnown(uint8(m.Captures["value"]))
	return Replacement{Instrs: []inst.Instruction{annotated}, Annotation: true}
}
