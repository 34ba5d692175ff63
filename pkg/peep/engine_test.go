package peep

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/log"

	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
	"github.com/blendsdk/blend65-sub003/pkg/pattern"
)

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Logger = log.NewTestLogger(t)
	e, err := New(pattern.DefaultRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func singleBlock(instrs ...inst.Instruction) (*flow.Graph, *flow.Block) {
	b := &flow.Block{ID: 0, Instrs: instrs}
	return flow.NewGraph(b), b
}

func sameSeq(t *testing.T, got []inst.Instruction, want ...inst.Instruction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", inst.DisassembleSeq(got), inst.DisassembleSeq(want))
	}
	for i := range got {
		if got[i].Mn != want[i].Mn || got[i].Mode != want[i].Mode || got[i].Operand.Val != want[i].Operand.Val {
			t.Fatalf("got %q, want %q", inst.DisassembleSeq(got), inst.DisassembleSeq(want))
		}
	}
}

func TestConfigErrors(t *testing.T) {
	reg := pattern.DefaultRegistry()
	if _, err := New(nil, Config{}); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("nil registry: got %v", err)
	}
	if _, err := New(reg, Config{Level: pattern.LevelAggressive + 1}); !errors.Is(err, ErrBadLevel) {
		t.Errorf("bad level: got %v", err)
	}
	if _, err := New(reg, Config{MaxPasses: -1}); !errors.Is(err, ErrBadPasses) {
		t.Errorf("negative passes: got %v", err)
	}
}

// TestDuplicateClearCarry: [CLC, CLC] becomes [CLC] with one instruction's
// cost reported saved.
func TestDuplicateClearCarry(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelBasic})
	g, b := singleBlock(inst.Imp(inst.CLC), inst.Imp(inst.CLC))

	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.CLC))
	if !rep.Converged {
		t.Error("must converge")
	}
	if rep.Savings.Cycles != 2 || rep.Savings.Bytes != 1 {
		t.Errorf("savings: got %+v, want 2 cycles 1 byte", rep.Savings)
	}
	if len(rep.Applications) != 1 || rep.Applications[0].Pattern != "flag-op-duplicate" {
		t.Errorf("applications: %+v", rep.Applications)
	}
}

// TestTransferRoundTripLiveness: [TAX, TXA] vanishes entirely when X is dead
// afterward and collapses to [TAX] when X is live.
func TestTransferRoundTripLiveness(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard})

	// X overwritten in the successor before any read: both go.
	b0 := &flow.Block{ID: 0, Instrs: []inst.Instruction{inst.Imp(inst.TAX), inst.Imp(inst.TXA)}, Succs: []int{1}}
	b1 := &flow.Block{ID: 1, Instrs: []inst.Instruction{inst.Imm(inst.LDX, 0), inst.New(inst.STX, inst.ZeroPage, 0x10)}}
	rep := e.OptimizeBlock(flow.NewGraph(b0, b1), b0)
	if len(b0.Instrs) != 0 {
		t.Fatalf("dead X: got %q, want empty block", inst.DisassembleSeq(b0.Instrs))
	}
	if !rep.Converged {
		t.Error("must converge")
	}

	// X read in the successor: the transfer back goes, the transfer stays.
	b0 = &flow.Block{ID: 0, Instrs: []inst.Instruction{inst.Imp(inst.TAX), inst.Imp(inst.TXA)}, Succs: []int{1}}
	b1 = &flow.Block{ID: 1, Instrs: []inst.Instruction{inst.New(inst.STX, inst.ZeroPage, 0x10)}}
	e.OptimizeBlock(flow.NewGraph(b0, b1), b0)
	sameSeq(t, b0.Instrs, inst.Imp(inst.TAX))
}

// TestOverwrittenCarryOp: [CLC, SEC] becomes [SEC] with no liveness needed.
func TestOverwrittenCarryOp(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelBasic})
	g, b := singleBlock(inst.Imp(inst.CLC), inst.Imp(inst.SEC))

	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.SEC))
	if len(rep.Applications) != 1 || rep.Applications[0].Pattern != "flag-op-overwritten" {
		t.Errorf("applications: %+v", rep.Applications)
	}
}

// TestCarryWriterSurvivesCombinedRewrites: in [SEC, SEC, BCS] the first SEC
// is dead only while the second exists and the second is redundant only
// while the first exists. Applying both deletions would leave the branch
// testing a carry nothing set; exactly one SEC must survive.
func TestCarryWriterSurvivesCombinedRewrites(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard})
	g, b := singleBlock(
		inst.Imp(inst.SEC),
		inst.Imp(inst.SEC),
		inst.New(inst.BCS, inst.Relative, 0x1234),
	)

	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.SEC), inst.New(inst.BCS, inst.Relative, 0x1234))
	if !rep.Converged {
		t.Error("must converge")
	}
	if len(rep.Applications) != 1 {
		t.Errorf("applications: got %d, want 1", len(rep.Applications))
	}
}

// TestTransfersKeptAcrossCall: the callee of a JSR may read any register, so
// in [TAX, TXA, JSR, LDX #0] the local kill of X after the call must not let
// the round trip delete the first transfer. The second transfer copies the
// same value back and is removable regardless.
func TestTransfersKeptAcrossCall(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard})
	g, b := singleBlock(
		inst.Imp(inst.TAX),
		inst.Imp(inst.TXA),
		inst.New(inst.JSR, inst.Absolute, 0x2000),
		inst.Imm(inst.LDX, 0x00),
	)

	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs,
		inst.Imp(inst.TAX),
		inst.New(inst.JSR, inst.Absolute, 0x2000),
		inst.Imm(inst.LDX, 0x00),
	)
	if !rep.Converged {
		t.Error("must converge")
	}
}

// TestOverlapResolution: [CLC, CLC, CLC] needs two passes because the two
// duplicate sites overlap; only one may fire per pass.
func TestOverlapResolution(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelBasic})
	g, b := singleBlock(inst.Imp(inst.CLC), inst.Imp(inst.CLC), inst.Imp(inst.CLC))

	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.CLC))
	if len(rep.Applications) != 2 {
		t.Errorf("applications: got %d, want 2", len(rep.Applications))
	}
	if rep.Passes != 3 {
		t.Errorf("passes: got %d, want 3", rep.Passes)
	}
	if rep.Savings.Cycles != 4 || rep.Savings.Bytes != 2 {
		t.Errorf("savings: got %+v, want 4 cycles 2 bytes", rep.Savings)
	}
}

// TestFixedPointIdempotent: a second run over an optimized block changes
// nothing and converges in one pass.
func TestFixedPointIdempotent(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard})
	g, b := singleBlock(
		inst.Imp(inst.CLC),
		inst.Imp(inst.CLC),
		inst.Imm(inst.ADC, 1),
		inst.New(inst.STA, inst.ZeroPage, 0x10),
	)

	e.OptimizeBlock(g, b)
	first := inst.DisassembleSeq(b.Instrs)

	rep := e.OptimizeBlock(g, b)
	if got := inst.DisassembleSeq(b.Instrs); got != first {
		t.Errorf("not idempotent: %q then %q", first, got)
	}
	if rep.Passes != 1 || len(rep.Applications) != 0 || !rep.Converged {
		t.Errorf("second run: %+v", rep)
	}
}

// TestAnnotationZeroSavings: the known-store annotation changes metadata
// only and contributes nothing to the savings totals.
func TestAnnotationZeroSavings(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard})
	b0 := &flow.Block{
		ID: 0,
		Instrs: []inst.Instruction{
			inst.Imm(inst.LDA, 0x05),
			inst.New(inst.STA, inst.ZeroPage, 0x10),
		},
		Succs: []int{1},
	}
	// Keep A and N/Z live so nothing else rewrites the block.
	b1 := &flow.Block{ID: 1, Instrs: []inst.Instruction{
		inst.New(inst.BEQ, inst.Relative, 0x2000),
		inst.New(inst.STA, inst.ZeroPage, 0x11),
	}}
	rep := e.OptimizeBlock(flow.NewGraph(b0, b1), b0)

	if len(b0.Instrs) != 2 || !b0.Instrs[1].Meta.HasKnown || b0.Instrs[1].Meta.Known != 0x05 {
		t.Fatalf("store not annotated: %+v", b0.Instrs)
	}
	if rep.Savings.Cycles != 0 || rep.Savings.Bytes != 0 {
		t.Errorf("annotation claimed savings: %+v", rep.Savings)
	}
	var found bool
	for _, a := range rep.Applications {
		if a.Pattern == "store-annotate-known" {
			found = true
			if !a.Annotation {
				t.Error("application not marked as annotation")
			}
		}
	}
	if !found {
		t.Fatalf("annotation never fired: %+v", rep.Applications)
	}
	if !rep.Converged {
		t.Error("annotation must not prevent convergence")
	}
}

// panicRule blows up in Match; the engine must contain it.
type panicRule struct{ pattern.Info }

func newPanicRule() *panicRule {
	return &panicRule{pattern.Info{Name: "panic-rule", Cat: pattern.General, Level: pattern.LevelBasic, Window: 1}}
}

func (p *panicRule) Match(pattern.Window, *pattern.Context) *pattern.Match {
	panic("boom")
}

func (p *panicRule) Replace(*pattern.Match) pattern.Replacement {
	return pattern.Replacement{}
}

func TestPanicIsolation(t *testing.T) {
	reg, err := pattern.NewRegistry(append(pattern.Library(), newPanicRule())...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	e, err := New(reg, Config{Level: pattern.LevelBasic, Logger: log.NewTestLogger(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g, b := singleBlock(inst.Imp(inst.NOP), inst.Imp(inst.CLC))
	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.CLC))
	if !rep.Converged {
		t.Error("a panicking rule must not block convergence")
	}
}

// churnRule keeps "rewriting" the same instruction forever by abusing the
// annotation contract just enough to pass the gate.
type churnRule struct{ pattern.Info }

func newChurnRule() *churnRule {
	return &churnRule{pattern.Info{Name: "churn-rule", Cat: pattern.General, Level: pattern.LevelBasic, Window: 1}}
}

func (p *churnRule) Match(w pattern.Window, _ *pattern.Context) *pattern.Match {
	return &pattern.Match{Start: w.Start, Instrs: w.Instrs, Confidence: 1.0}
}

func (p *churnRule) Replace(m *pattern.Match) pattern.Replacement {
	return pattern.Replacement{Instrs: m.Instrs, Annotation: true}
}

func TestPassCapDiagnostic(t *testing.T) {
	reg, err := pattern.NewRegistry(newChurnRule())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	e, err := New(reg, Config{Level: pattern.LevelBasic, MaxPasses: 3, Logger: log.NewTestLogger(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g, b := singleBlock(inst.Imp(inst.NOP))
	rep := e.OptimizeBlock(g, b)
	if rep.Converged {
		t.Error("churning block must be reported as not converged")
	}
	if rep.Passes != 3 {
		t.Errorf("passes: got %d, want 3", rep.Passes)
	}
	// The block is still intact; hitting the cap is a diagnostic, not an error.
	sameSeq(t, b.Instrs, inst.Imp(inst.NOP))
}

// equalCostRule proposes a swap the cost model cannot justify.
type equalCostRule struct{ pattern.Info }

func newEqualCostRule() *equalCostRule {
	return &equalCostRule{pattern.Info{Name: "equal-cost-rule", Cat: pattern.General, Level: pattern.LevelBasic, Window: 1}}
}

func (p *equalCostRule) Match(w pattern.Window, _ *pattern.Context) *pattern.Match {
	if w.At(0).Mn != inst.CLC {
		return nil
	}
	return &pattern.Match{Start: w.Start, Instrs: w.Instrs, Confidence: 1.0}
}

func (p *equalCostRule) Replace(m *pattern.Match) pattern.Replacement {
	return pattern.Replacement{Instrs: []inst.Instruction{inst.Imp(inst.SEC)}}
}

func TestCostGateRejectsEqualCost(t *testing.T) {
	reg, err := pattern.NewRegistry(newEqualCostRule())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	e, err := New(reg, Config{Level: pattern.LevelBasic, Logger: log.NewTestLogger(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g, b := singleBlock(inst.Imp(inst.CLC))
	rep := e.OptimizeBlock(g, b)
	sameSeq(t, b.Instrs, inst.Imp(inst.CLC))
	if len(rep.Applications) != 0 || !rep.Converged {
		t.Errorf("equal-cost rewrite must be rejected: %+v", rep)
	}
}

func TestOptimizeGraph(t *testing.T) {
	e := newEngine(t, Config{Level: pattern.LevelStandard, Workers: 2})

	b0 := &flow.Block{ID: 0, Instrs: []inst.Instruction{
		inst.Imp(inst.CLC),
		inst.Imp(inst.CLC),
	}, Succs: []int{1, 2}}
	b1 := &flow.Block{ID: 1, Instrs: []inst.Instruction{
		inst.Imp(inst.NOP),
		inst.Imm(inst.ADC, 1),
		inst.New(inst.STA, inst.ZeroPage, 0x10),
	}}
	b2 := &flow.Block{ID: 2, Instrs: []inst.Instruction{
		inst.Imm(inst.ADC, 2),
		inst.New(inst.STA, inst.ZeroPage, 0x11),
	}}
	g := flow.NewGraph(b0, b1, b2)

	rep := e.Optimize(g)
	sameSeq(t, b0.Instrs, inst.Imp(inst.CLC))
	sameSeq(t, b1.Instrs, inst.Imm(inst.ADC, 1), inst.New(inst.STA, inst.ZeroPage, 0x10))
	if !rep.Converged {
		t.Error("graph must converge")
	}
	if len(rep.Blocks) != 3 {
		t.Fatalf("blocks: got %d, want 3", len(rep.Blocks))
	}
	// CLC dup (2 cycles, 1 byte) plus NOP removal (2 cycles, 1 byte).
	if rep.Savings.Cycles != 4 || rep.Savings.Bytes != 2 {
		t.Errorf("savings: got %+v, want 4 cycles 2 bytes", rep.Savings)
	}
}
