package flow

import (
	"testing"

	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// TestLiveSameBlock verifies reads and kills inside one block.
func TestLiveSameBlock(t *testing.T) {
	b := &Block{
		ID: 0,
		Instrs: []inst.Instruction{
			inst.Imp(inst.TAX),                      // 0: writes X
			inst.New(inst.STX, inst.ZeroPage, 0x10), // 1: reads X
			inst.Imm(inst.LDX, 0x00),                // 2: kills X
			inst.Imp(inst.NOP),                      // 3
		},
	}
	l := NewLiveness(NewGraph(b))

	if !l.LiveAfter(ItemX, 0, 0) {
		t.Error("X is read by STX: live after TAX")
	}
	if l.LiveAfter(ItemX, 0, 1) {
		t.Error("X is overwritten by LDX before any read: dead after STX")
	}
	if l.LiveAfter(ItemX, 0, 2) {
		t.Error("X never read before block end with no successors: dead")
	}
}

// TestLiveReadModifyWrite verifies an instruction reading and writing the
// same item counts as a read.
func TestLiveReadModifyWrite(t *testing.T) {
	b := &Block{
		ID: 0,
		Instrs: []inst.Instruction{
			inst.Imm(inst.LDX, 0x05), // 0
			inst.Imp(inst.INX),       // 1: reads then writes X
		},
	}
	l := NewLiveness(NewGraph(b))
	if !l.LiveAfter(ItemX, 0, 0) {
		t.Error("INX reads X: live after LDX")
	}
}

// TestLiveAcrossEdges verifies flag liveness across CFG edges.
func TestLiveAcrossEdges(t *testing.T) {
	// Block 0 falls through to 1 or jumps to 2.
	// Block 1 reads the carry (BCS), block 2 kills it (CLC).
	b0 := &Block{ID: 0, Instrs: []inst.Instruction{inst.Imp(inst.SEC)}, Succs: []int{1, 2}}
	b1 := &Block{ID: 1, Instrs: []inst.Instruction{inst.New(inst.BCS, inst.Relative, 0x2000)}, Succs: []int{2}}
	b2 := &Block{ID: 2, Instrs: []inst.Instruction{inst.Imp(inst.CLC), inst.Imp(inst.RTS)}}
	l := NewLiveness(NewGraph(b0, b1, b2))

	if !l.LiveAfter(ItemC, 0, 0) {
		t.Error("carry read on the path through block 1: live")
	}

	// With block 1 replaced by a non-reader, no path reads the carry.
	b1.Instrs = []inst.Instruction{inst.Imp(inst.NOP)}
	if l.LiveAfter(ItemC, 0, 0) {
		t.Error("carry overwritten on every path: dead")
	}
}

// TestLiveLoop verifies cycles terminate and report reads.
func TestLiveLoop(t *testing.T) {
	// Loop: block 1 decrements, branches back to itself or exits.
	b0 := &Block{ID: 0, Instrs: []inst.Instruction{inst.Imm(inst.LDX, 10)}, Succs: []int{1}}
	b1 := &Block{
		ID: 1,
		Instrs: []inst.Instruction{
			inst.Imp(inst.DEX),
			inst.New(inst.BNE, inst.Relative, 0x2000),
		},
		Succs: []int{1, 2},
	}
	b2 := &Block{ID: 2, Instrs: []inst.Instruction{inst.Imp(inst.RTS)}}
	l := NewLiveness(NewGraph(b0, b1, b2))

	if !l.LiveAfter(ItemX, 0, 0) {
		t.Error("X read by DEX in the loop: live")
	}
	// Z is written by DEX before BNE reads it, but BNE's read is of the
	// fresh value; the Z produced in block 0 is dead.
	if l.LiveAfter(ItemZ, 0, 0) {
		t.Error("Z from block 0 overwritten by DEX before the BNE read: dead")
	}
}

// TestLiveExit verifies nothing is live at function exit.
func TestLiveExit(t *testing.T) {
	b := &Block{ID: 0, Instrs: []inst.Instruction{inst.Imp(inst.TAX), inst.Imp(inst.RTS)}}
	l := NewLiveness(NewGraph(b))
	if l.LiveAfter(ItemA, 0, 0) {
		t.Error("A unread before exit: dead per the exit convention")
	}
}

// TestLiveHorizon verifies the conservative answer when the walk is capped.
func TestLiveHorizon(t *testing.T) {
	instrs := make([]inst.Instruction, 50)
	for i := range instrs {
		instrs[i] = inst.Imp(inst.NOP)
	}
	b := &Block{ID: 0, Instrs: instrs}
	l := NewLiveness(NewGraph(b))
	l.Horizon = 10
	if !l.LiveAfter(ItemA, 0, 0) {
		t.Error("horizon exhausted: must answer conservatively live")
	}

	l.Horizon = DefaultHorizon
	if l.LiveAfter(ItemA, 0, 0) {
		t.Error("full walk reaches the exit: dead")
	}
}

// TestLiveUnknownBlock verifies conservative handling of bad positions.
func TestLiveUnknownBlock(t *testing.T) {
	l := NewLiveness(NewGraph())
	if !l.LiveAfter(ItemC, 99, 0) {
		t.Error("unknown block: must answer conservatively live")
	}
}

// TestLiveAcrossCall verifies a subroutine call counts as a read of every
// item: the callee is outside the graph, so a kill after the call must not
// make the value dead before it.
func TestLiveAcrossCall(t *testing.T) {
	b := &Block{
		ID: 0,
		Instrs: []inst.Instruction{
			inst.Imp(inst.TAX),                        // 0: writes X
			inst.New(inst.JSR, inst.Absolute, 0x2000), // 1: unknown callee
			inst.Imm(inst.LDX, 0x00),                  // 2: kills X locally
		},
	}
	l := NewLiveness(NewGraph(b))
	if !l.LiveAfter(ItemX, 0, 0) {
		t.Error("callee may read X: live across JSR")
	}
	if !l.LiveAfter(ItemC, 0, 0) {
		t.Error("callee may read the carry: live across JSR")
	}

	b.Instrs[1] = inst.Imp(inst.BRK)
	if !l.LiveAfter(ItemX, 0, 0) {
		t.Error("interrupt handler may read X: live across BRK")
	}
}

// TestLivePHPReadsFlags verifies PHP counts as a read of every flag.
func TestLivePHPReadsFlags(t *testing.T) {
	b := &Block{
		ID:     0,
		Instrs: []inst.Instruction{inst.Imp(inst.SEC), inst.Imp(inst.PHP)},
	}
	l := NewLiveness(NewGraph(b))
	if !l.LiveAfter(ItemC, 0, 0) {
		t.Error("PHP saves the whole flag register: carry live")
	}
}
