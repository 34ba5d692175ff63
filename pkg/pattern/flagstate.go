package pattern

import (
	"github.com/blendsdk/blend65-sub003/pkg/flags"
	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// flagOpEffect maps explicit flag operations to the flag and value they
// establish.
var flagOpEffect = map[inst.Mnemonic]struct {
	mask inst.FlagMask
	val  flags.Value
}{
	inst.CLC: {inst.FC, flags.Clear},
	inst.SEC: {inst.FC, flags.Set},
	inst.CLD: {inst.FD, flags.Clear},
	inst.SED: {inst.FD, flags.Set},
	inst.CLV: {inst.FV, flags.Clear},
	inst.CLI: {inst.FI, flags.Clear},
	inst.SEI: {inst.FI, flags.Set},
}

// KnownFlagOp deletes a flag set/clear whose flag already holds that exact
// value at the point before the instruction. Fires only on a proven
// Set/Clear state, never on Unknown.
type KnownFlagOp struct{ Info }

// NewKnownFlagOp builds the rule.
func NewKnownFlagOp() *KnownFlagOp {
	return &KnownFlagOp{Info{
		Name:   "flag-op-known",
		Desc:   "delete a flag set/clear whose flag is already proven to hold that value",
		Cat:    Flag,
		Level:  LevelStandard,
		Window: 1,
	}}
}

func (p *KnownFlagOp) Match(w Window, ctx *Context) *Match {
	if w.Len() < 1 {
		return nil
	}
	eff, ok := flagOpEffect[w.At(0).Mn]
	if !ok {
		return nil
	}
	if ctx.Before.Flags.Get(eff.mask) != eff.val {
		return nil
	}
	return matched(w, 1, 1.0)
}

func (p *KnownFlagOp) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}

// DeadFlagOp deletes a flag set/clear whose flag is never read before being
// overwritten. The interrupt flag is excluded: enabling or disabling
// interrupts is an effect in its own right, not a dataflow value.
type DeadFlagOp struct{ Info }

// NewDeadFlagOp builds the rule.
func NewDeadFlagOp() *DeadFlagOp {
	return &DeadFlagOp{Info{
		Name:   "flag-op-dead",
		Desc:   "delete a flag set/clear whose flag is dead",
		Cat:    Flag,
		Level:  LevelStandard,
		Window: 1,
	}}
}

func (p *DeadFlagOp) Match(w Window, ctx *Context) *Match {
	if w.Len() < 1 {
		return nil
	}
	eff, ok := flagOpEffect[w.At(0).Mn]
	if !ok || eff.mask == inst.FI {
		return nil
	}
	item, _ := flow.FlagItem(eff.mask)
	if ctx.LiveAfter(item, 0) {
		return nil
	}
	return matched(w, 1, 1.0)
}

func (p *DeadFlagOp) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}

// branchCondition maps each conditional branch to the flag it tests and the
// value on which it is taken.
var branchCondition = map[inst.Mnemonic]struct {
	mask  inst.FlagMask
	taken flags.Value
}{
	inst.BCS: {inst.FC, flags.Set},
	inst.BCC: {inst.FC, flags.Clear},
	inst.BEQ: {inst.FZ, flags.Set},
	inst.BNE: {inst.FZ, flags.Clear},
	inst.BMI: {inst.FN, flags.Set},
	inst.BPL: {inst.FN, flags.Clear},
	inst.BVS: {inst.FV, flags.Set},
	inst.BVC: {inst.FV, flags.Clear},
}

// BranchNeverTaken deletes a conditional branch whose tested flag is proven
// to hold the value that falls through.
type BranchNeverTaken struct{ Info }

// NewBranchNeverTaken builds the rule.
func NewBranchNeverTaken() *BranchNeverTaken {
	return &BranchNeverTaken{Info{
		Name:   "branch-never-taken",
		Desc:   "delete a conditional branch whose condition is proven false",
		Cat:    Branch,
		Level:  LevelStandard,
		Window: 1,
	}}
}

func (p *BranchNeverTaken) Match(w Window, ctx *Context) *Match {
	if w.Len() < 1 {
		return nil
	}
	cond, ok := branchCondition[w.At(0).Mn]
	if !ok {
		return nil
	}
	state := ctx.Before.Flags.Get(cond.mask)
	if state == flags.Unknown || state == cond.taken {
		return nil
	}
	return matched(w, 1, 1.0)
}

func (p *BranchNeverTaken) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}

// nzFromA reports whether the instruction leaves N/Z reflecting the value it
// leaves in A.
func nzFromA(in inst.Instruction) bool {
	switch in.Mn {
	case inst.LDA, inst.TXA, inst.TYA, inst.PLA,
		inst.AND, inst.ORA, inst.EOR, inst.ADC, inst.SBC:
		return true
	case inst.ASL, inst.LSR, inst.ROL, inst.ROR:
		return in.Mode == inst.Accumulator
	}
	return false
}

// RedundantCmpZero deletes a CMP #0 that follows an instruction already
// setting N/Z from the accumulator, provided the carry CMP would set is
// dead. CMP #0 always sets the carry, so a live carry blocks the rewrite.
type RedundantCmpZero struct{ Info }

// NewRedundantCmpZero builds the rule.
func NewRedundantCmpZero() *RedundantCmpZero {
	return &RedundantCmpZero{Info{
		Name:   "cmp-zero-redundant",
		Desc:   "delete CMP #0 after an instruction that already set N/Z from A",
		Cat:    Redundancy,
		Level:  LevelStandard,
		Window: 2,
	}}
}

func (p *RedundantCmpZero) Match(w Window, ctx *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	second := w.At(1)
	if second.Mn != inst.CMP || second.Mode != inst.Immediate || second.Operand.Val != 0 {
		return nil
	}
	if !nzFromA(w.At(0)) {
		return nil
	}
	if ctx.LiveAfter(flow.ItemC, 1) {
		return nil
	}
	return matched(w, 2, 1.0)
}

func (p *RedundantCmpZero) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[:1])
}
