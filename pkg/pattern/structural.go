package pattern

import (
	"github.com/blendsdk/blend65-sub003/pkg/cost"
	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// rewrite builds a Replacement for a match, filling in the savings the cost
// model attributes to the rewrite.
func rewrite(m *Match, instrs []inst.Instruction) Replacement {
	cmp, err := cost.Compare(m.Instrs, instrs)
	if err != nil {
		// Matched instructions come from the catalog; an error here means a
		// malformed replacement, claim nothing.
		return Replacement{Instrs: instrs}
	}
	return Replacement{Instrs: instrs, CyclesSaved: cmp.CyclesSaved, BytesSaved: cmp.BytesSaved}
}

func matched(w Window, n int, confidence float64) *Match {
	instrs := make([]inst.Instruction, n)
	copy(instrs, w.Instrs[:n])
	return &Match{Start: w.Start, Instrs: instrs, Confidence: confidence}
}

// flagOpTarget maps explicit flag set/clear mnemonics to the flag they write.
var flagOpTarget = map[inst.Mnemonic]flow.Item{
	inst.CLC: flow.ItemC,
	inst.SEC: flow.ItemC,
	inst.CLD: flow.ItemD,
	inst.SED: flow.ItemD,
	inst.CLV: flow.ItemV,
	inst.CLI: flow.ItemI,
	inst.SEI: flow.ItemI,
}

// DuplicateFlagOp removes the second of two identical idempotent flag
// operations: [CLC, CLC] becomes [CLC].
type DuplicateFlagOp struct{ Info }

// NewDuplicateFlagOp builds the rule.
func NewDuplicateFlagOp() *DuplicateFlagOp {
	return &DuplicateFlagOp{Info{
		Name:   "flag-op-duplicate",
		Desc:   "drop the second of two identical flag set/clear instructions",
		Cat:    Flag,
		Level:  LevelBasic,
		Window: 2,
	}}
}

func (p *DuplicateFlagOp) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 || w.At(0).Mn != w.At(1).Mn {
		return nil
	}
	if _, ok := flagOpTarget[w.At(0).Mn]; !ok {
		return nil
	}
	return matched(w, 2, 1.0)
}

func (p *DuplicateFlagOp) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[:1])
}

// OverwrittenFlagOp removes a flag operation whose effect is unconditionally
// overwritten by the opposite operation on the same flag: [CLC, SEC] becomes
// [SEC]. The interrupt flag is excluded: deleting one end of a CLI/SEI pair
// changes the window in which an interrupt can be taken.
type OverwrittenFlagOp struct{ Info }

// NewOverwrittenFlagOp builds the rule.
func NewOverwrittenFlagOp() *OverwrittenFlagOp {
	return &OverwrittenFlagOp{Info{
		Name:   "flag-op-overwritten",
		Desc:   "drop a flag set/clear immediately undone by its inverse",
		Cat:    Flag,
		Level:  LevelBasic,
		Window: 2,
	}}
}

func (p *OverwrittenFlagOp) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	a, b := w.At(0).Mn, w.At(1).Mn
	ta, okA := flagOpTarget[a]
	tb, okB := flagOpTarget[b]
	if !okA || !okB || a == b || ta != tb || ta == flow.ItemI {
		return nil
	}
	return matched(w, 2, 1.0)
}

func (p *OverwrittenFlagOp) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[1:])
}

// NopRemoval deletes NOP instructions.
type NopRemoval struct{ Info }

// NewNopRemoval builds the rule.
func NewNopRemoval() *NopRemoval {
	return &NopRemoval{Info{
		Name:   "nop-removal",
		Desc:   "delete NOP",
		Cat:    General,
		Level:  LevelBasic,
		Window: 1,
	}}
}

func (p *NopRemoval) Match(w Window, _ *Context) *Match {
	if w.Len() < 1 || w.At(0).Mn != inst.NOP {
		return nil
	}
	return matched(w, 1, 1.0)
}

func (p *NopRemoval) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}

// transferInverse maps each register transfer to its round-trip partner and
// the register the first transfer defines.
var transferInverse = map[inst.Mnemonic]struct {
	inverse inst.Mnemonic
	defines flow.Item
}{
	inst.TAX: {inst.TXA, flow.ItemX},
	inst.TXA: {inst.TAX, flow.ItemA},
	inst.TAY: {inst.TYA, flow.ItemY},
	inst.TYA: {inst.TAY, flow.ItemA},
}

// TransferRoundTrip handles [TAX, TXA] style pairs. The second transfer
// copies the value straight back, so it is always removable; the first goes
// too when the register it defines and the N/Z flags are all dead after the
// window.
type TransferRoundTrip struct{ Info }

// NewTransferRoundTrip builds the rule.
func NewTransferRoundTrip() *TransferRoundTrip {
	return &TransferRoundTrip{Info{
		Name:   "transfer-round-trip",
		Desc:   "collapse a register transfer immediately undone by its inverse",
		Cat:    Transfer,
		Level:  LevelStandard,
		Window: 2,
	}}
}

func (p *TransferRoundTrip) Match(w Window, ctx *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	pair, ok := transferInverse[w.At(0).Mn]
	if !ok || w.At(1).Mn != pair.inverse {
		return nil
	}
	m := matched(w, 2, 1.0)
	// Both transfers set N/Z from the same value, so keeping just the first
	// preserves flags exactly. Deleting both additionally requires the
	// defined register and N/Z to be dead.
	if !ctx.LiveAfter(pair.defines, 1) && !ctx.LiveAfter(flow.ItemN, 1) && !ctx.LiveAfter(flow.ItemZ, 1) {
		m.Captures = map[string]uint16{"both": 1}
	}
	return m
}

func (p *TransferRoundTrip) Replace(m *Match) Replacement {
	if m.Captures["both"] != 0 {
		return rewrite(m, nil)
	}
	return rewrite(m, m.Instrs[:1])
}

// DuplicateTransfer removes the second of two identical transfers.
type DuplicateTransfer struct{ Info }

// NewDuplicateTransfer builds the rule.
func NewDuplicateTransfer() *DuplicateTransfer {
	return &DuplicateTransfer{Info{
		Name:   "transfer-duplicate",
		Desc:   "drop the second of two identical register transfers",
		Cat:    Transfer,
		Level:  LevelBasic,
		Window: 2,
	}}
}

func (p *DuplicateTransfer) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 || w.At(0).Mn != w.At(1).Mn {
		return nil
	}
	switch w.At(0).Mn {
	case inst.TAX, inst.TAY, inst.TXA, inst.TYA:
		return matched(w, 2, 1.0)
	}
	return nil
}

func (p *DuplicateTransfer) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[:1])
}

// OverwrittenLoad removes an immediate register load whose value is
// overwritten by the next load of the same register before anything reads
// it: [LDA #1, LDA #2] becomes [LDA #2].
type OverwrittenLoad struct{ Info }

// NewOverwrittenLoad builds the rule.
func NewOverwrittenLoad() *OverwrittenLoad {
	return &OverwrittenLoad{Info{
		Name:   "load-overwritten",
		Desc:   "drop an immediate load overwritten by the next load of the same register",
		Cat:    Redundancy,
		Level:  LevelBasic,
		Window: 2,
	}}
}

func (p *OverwrittenLoad) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	first, second := w.At(0), w.At(1)
	if first.Mode != inst.Immediate || first.Mn != second.Mn {
		return nil
	}
	switch first.Mn {
	case inst.LDA, inst.LDX, inst.LDY:
	default:
		return nil
	}
	// The second load must not consume the register through its addressing
	// mode (LDX #1 : LDX zp would be fine, but an indexed second load that
	// indexes with the loaded register is not).
	if inst.RegsRead(second)&inst.RegsWritten(first) != 0 {
		return nil
	}
	return matched(w, 2, 1.0)
}

func (p *OverwrittenLoad) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[1:])
}

// PushPullRoundTrip deletes [PHA, PLA] when N/Z are dead afterwards, and
// [PHP, PLP] unconditionally: pulling back a value just pushed leaves the
// machine where it started.
type PushPullRoundTrip struct{ Info }

// NewPushPullRoundTrip builds the rule.
func NewPushPullRoundTrip() *PushPullRoundTrip {
	return &PushPullRoundTrip{Info{
		Name:   "push-pull-round-trip",
		Desc:   "delete a push immediately undone by the matching pull",
		Cat:    Redundancy,
		Level:  LevelStandard,
		Window: 2,
	}}
}

func (p *PushPullRoundTrip) Match(w Window, ctx *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	a, b := w.At(0).Mn, w.At(1).Mn
	switch {
	case a == inst.PHP && b == inst.PLP:
		// PLP restores the flags PHP just saved; nothing observable changes.
	case a == inst.PHA && b == inst.PLA:
		// PLA reloads the same A but refreshes N/Z from it.
		if ctx.LiveAfter(flow.ItemN, 1) || ctx.LiveAfter(flow.ItemZ, 1) {
			return nil
		}
	default:
		return nil
	}
	// The freed stack slot below SP is assumed dead; that cannot be fully
	// verified from inside the window.
	return matched(w, 2, 0.95)
}

func (p *PushPullRoundTrip) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}
