package flow

import "github.com/blendsdk/blend65-sub003/pkg/inst"

// DefaultHorizon caps how many instructions a single liveness query may
// examine before giving up and answering conservatively.
const DefaultHorizon = 256

// Liveness answers "is this flag or register read along some path before it
// is next written" by forward-simulating successor instructions and CFG
// edges. Answers are strictly boolean: when the walk cannot decide inside
// its horizon it reports live, never a low-confidence guess.
type Liveness struct {
	G       *Graph
	Horizon int
}

// NewLiveness builds a query over the given graph.
func NewLiveness(g *Graph) *Liveness {
	return &Liveness{G: g, Horizon: DefaultHorizon}
}

// LiveAfter reports whether item is live immediately after the instruction
// at (blockID, index). An instruction that both reads and writes the item
// (INX, ROL A) counts as a read first.
func (l *Liveness) LiveAfter(item Item, blockID, index int) bool {
	b := l.G.Block(blockID)
	if b == nil {
		return true // unknown position: be conservative
	}
	budget := l.Horizon
	if budget <= 0 {
		budget = DefaultHorizon
	}
	visited := make(map[int]bool)
	return l.walk(item, b, index+1, visited, &budget)
}

// walk scans b.Instrs[from:] and recurses into successors. Returns true as
// soon as a read is found; a write kills the current path. A JSR or BRK
// counts as a read of every item, since the callee is outside the graph.
// Blocks without successors are function exits, where nothing is live.
func (l *Liveness) walk(item Item, b *Block, from int, visited map[int]bool, budget *int) bool {
	for i := from; i < len(b.Instrs); i++ {
		if *budget <= 0 {
			return true // horizon hit: conservatively live
		}
		*budget--
		in := b.Instrs[i]
		if in.Mn == inst.JSR || in.Mn == inst.BRK {
			// Control leaves the graph; the callee may read anything.
			return true
		}
		if Reads(in, item) {
			return true
		}
		if Writes(in, item) {
			return false
		}
	}
	for _, succ := range b.Succs {
		if visited[succ] {
			continue
		}
		visited[succ] = true
		sb := l.G.Block(succ)
		if sb == nil {
			return true // dangling edge: be conservative
		}
		if l.walk(item, sb, 0, visited, budget) {
			return true
		}
	}
	return false
}
