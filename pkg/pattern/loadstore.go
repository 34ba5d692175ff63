package pattern

import (
	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// storeLoadPairs maps a store to the load of the same register.
var storeLoadPairs = map[inst.Mnemonic]inst.Mnemonic{
	inst.STA: inst.LDA,
	inst.STX: inst.LDX,
	inst.STY: inst.LDY,
}

// loadNZItems are the flags a load refreshes.
func nzDead(ctx *Context, i int) bool {
	return !ctx.LiveAfter(flow.ItemN, i) && !ctx.LiveAfter(flow.ItemZ, i)
}

// directAddr reports whether the instruction addresses memory directly, with
// no index register involved, and returns the address. Indexed and indirect
// accesses are rejected: two syntactically equal operands may still name
// different bytes at runtime.
func directAddr(in inst.Instruction) (uint16, bool) {
	switch in.Mode {
	case inst.ZeroPage, inst.Absolute:
		return in.Operand.Val, true
	}
	return 0, false
}

// StoreLoadRoundTrip removes a load that immediately re-reads the address
// just stored to: [STA $10, LDA $10] becomes [STA $10]. The register still
// holds the stored value; only the load's N/Z refresh is lost, so those must
// be dead. Confidence stays below 1 because the address could be a hardware
// register with read side effects, which the window alone cannot rule out.
type StoreLoadRoundTrip struct{ Info }

// NewStoreLoadRoundTrip builds the rule.
func NewStoreLoadRoundTrip() *StoreLoadRoundTrip {
	return &StoreLoadRoundTrip{Info{
		Name:   "store-load-round-trip",
		Desc:   "drop a load from the address just stored to",
		Cat:    LoadStore,
		Level:  LevelStandard,
		Window: 2,
	}}
}

func (p *StoreLoadRoundTrip) Match(w Window, ctx *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	store, load := w.At(0), w.At(1)
	if storeLoadPairs[store.Mn] != load.Mn || !inst.IsStore(store.Mn) {
		return nil
	}
	addr, ok := directAddr(store)
	if !ok {
		return nil
	}
	if _, ok := directAddr(load); !ok || !store.SameOperand(load) {
		return nil
	}
	if !nzDead(ctx, 1) {
		return nil
	}
	m := matched(w, 2, 0.9)
	m.Captures = map[string]uint16{"addr": addr}
	return m
}

func (p *StoreLoadRoundTrip) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[:1])
}

// LoadStoreRoundTrip removes a store that writes back the value just loaded
// from the same address: [LDA $10, STA $10] becomes [LDA $10].
type LoadStoreRoundTrip struct{ Info }

// NewLoadStoreRoundTrip builds the rule.
func NewLoadStoreRoundTrip() *LoadStoreRoundTrip {
	return &LoadStoreRoundTrip{Info{
		Name:   "load-store-round-trip",
		Desc:   "drop a store writing back the value just loaded from the same address",
		Cat:    LoadStore,
		Level:  LevelAggressive,
		Window: 2,
	}}
}

func (p *LoadStoreRoundTrip) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	load, store := w.At(0), w.At(1)
	if storeLoadPairs[store.Mn] != load.Mn || !inst.IsStore(store.Mn) {
		return nil
	}
	addr, ok := directAddr(load)
	if !ok {
		return nil
	}
	if _, ok := directAddr(store); !ok || !load.SameOperand(store) {
		return nil
	}
	// The store is observable if the address is memory-mapped I/O where a
	// write has effects beyond the stored value.
	m := matched(w, 2, 0.85)
	m.Captures = map[string]uint16{"addr": addr}
	return m
}

func (p *LoadStoreRoundTrip) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[:1])
}

// DoubleStore removes the first of two consecutive stores of the same
// register to the same direct address.
type DoubleStore struct{ Info }

// NewDoubleStore builds the rule.
func NewDoubleStore() *DoubleStore {
	return &DoubleStore{Info{
		Name:   "store-double",
		Desc:   "drop the first of two identical stores to the same address",
		Cat:    LoadStore,
		Level:  LevelAggressive,
		Window: 2,
	}}
}

func (p *DoubleStore) Match(w Window, _ *Context) *Match {
	if w.Len() < 2 {
		return nil
	}
	first, second := w.At(0), w.At(1)
	if first.Mn != second.Mn || !inst.IsStore(first.Mn) || first.Mode != second.Mode {
		return nil
	}
	addr, ok := directAddr(first)
	if !ok || !first.SameOperand(second) {
		return nil
	}
	m := matched(w, 2, 0.85)
	m.Captures = map[string]uint16{"addr": addr}
	return m
}

func (p *DoubleStore) Replace(m *Match) Replacement {
	return rewrite(m, m.Instrs[1:])
}

// IdentityArith deletes arithmetic that cannot change the accumulator:
// ORA #0, EOR #0 and AND #$FF. The instruction still refreshes N/Z from A,
// so those flags must be dead.
type IdentityArith struct{ Info }

// NewIdentityArith builds the rule.
func NewIdentityArith() *IdentityArith {
	return &IdentityArith{Info{
		Name:   "arith-identity",
		Desc:   "delete ORA #0 / EOR #0 / AND #$FF when N/Z are dead",
		Cat:    Arithmetic,
		Level:  LevelStandard,
		Window: 1,
	}}
}

func (p *IdentityArith) Match(w Window, ctx *Context) *Match {
	if w.Len() < 1 {
		return nil
	}
	in := w.At(0)
	if in.Mode != inst.Immediate {
		return nil
	}
	v := uint8(in.Operand.Val)
	switch {
	case in.Mn == inst.ORA && v == 0x00:
	case in.Mn == inst.EOR && v == 0x00:
	case in.Mn == inst.AND && v == 0xFF:
	default:
		return nil
	}
	if !nzDead(ctx, 0) {
		return nil
	}
	return matched(w, 1, 1.0)
}

func (p *IdentityArith) Replace(m *Match) Replacement {
	return rewrite(m, nil)
}
