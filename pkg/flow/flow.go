// Package flow holds the control-flow-graph input the optimizer consumes and
// the single-item liveness query flag/register-redundancy patterns rely on.
// The graph itself is produced by an earlier analysis phase; this package
// only walks it.
package flow

import "github.com/blendsdk/blend65-sub003/pkg/inst"

// Item names one liveness-queryable machine value: a status flag or a
// register.
type Item uint8

const (
	ItemC Item = iota
	ItemZ
	ItemI
	ItemD
	ItemV
	ItemN
	ItemA
	ItemX
	ItemY
)

var itemNames = [...]string{"C", "Z", "I", "D", "V", "N", "A", "X", "Y"}

// String returns the conventional one-letter name.
func (i Item) String() string {
	if int(i) < len(itemNames) {
		return itemNames[i]
	}
	return "?"
}

// FlagItem maps a single-flag mask to its liveness item.
func FlagItem(mask inst.FlagMask) (Item, bool) {
	switch mask {
	case inst.FC:
		return ItemC, true
	case inst.FZ:
		return ItemZ, true
	case inst.FI:
		return ItemI, true
	case inst.FD:
		return ItemD, true
	case inst.FV:
		return ItemV, true
	case inst.FN:
		return ItemN, true
	}
	return 0, false
}

func (i Item) flagMask() inst.FlagMask {
	switch i {
	case ItemC:
		return inst.FC
	case ItemZ:
		return inst.FZ
	case ItemI:
		return inst.FI
	case ItemD:
		return inst.FD
	case ItemV:
		return inst.FV
	case ItemN:
		return inst.FN
	}
	return 0
}

func (i Item) regMask() inst.RegMask {
	switch i {
	case ItemA:
		return inst.RA
	case ItemX:
		return inst.RX
	case ItemY:
		return inst.RY
	}
	return 0
}

// Reads reports whether the instruction reads the item.
func Reads(in inst.Instruction, item Item) bool {
	if m := item.flagMask(); m != 0 {
		return inst.FlagsRead(in)&m != 0
	}
	return inst.RegsRead(in)&item.regMask() != 0
}

// Writes reports whether the instruction overwrites the item.
func Writes(in inst.Instruction, item Item) bool {
	if m := item.flagMask(); m != 0 {
		return inst.FlagsWritten(in)&m != 0
	}
	return inst.RegsWritten(in)&item.regMask() != 0
}

// Block is one basic block of the function under optimization.
type Block struct {
	ID     int
	Instrs []inst.Instruction
	Succs  []int
}

// Graph is the read-only control-flow graph supplied by the surrounding
// compiler. Blocks without successors are function exits.
type Graph struct {
	Entry  int
	blocks map[int]*Block
}

// NewGraph builds a graph from blocks; the first block is the entry.
func NewGraph(blocks ...*Block) *Graph {
	g := &Graph{blocks: make(map[int]*Block, len(blocks))}
	for i, b := range blocks {
		if i == 0 {
			g.Entry = b.ID
		}
		g.blocks[b.ID] = b
	}
	return g
}

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id int) *Block {
	return g.blocks[id]
}

// Blocks returns all blocks in unspecified order.
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, 0, len(g.blocks))
	for _, b := range g.blocks {
		out = append(out, b)
	}
	return out
}

// Clone returns a deep copy of the graph. Instruction slices are copied, so
// rewriting a clone's block never disturbs the original.
func (g *Graph) Clone() *Graph {
	c := &Graph{Entry: g.Entry, blocks: make(map[int]*Block, len(g.blocks))}
	for id, b := range g.blocks {
		nb := &Block{
			ID:     b.ID,
			Instrs: make([]inst.Instruction, len(b.Instrs)),
			Succs:  make([]int, len(b.Succs)),
		}
		copy(nb.Instrs, b.Instrs)
		copy(nb.Succs, b.Succs)
		c.blocks[id] = nb
	}
	return c
}
