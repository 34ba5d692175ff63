package pattern

import (
	"github.com/blendsdk/blend65-sub003/pkg/flags"
	"github.com/blendsdk/blend65-sub003/pkg/flow"
)

// Context is what a pattern may consult beyond the window itself: the
// abstract flag/register state immediately before the window, and the
// control-flow-sensitive liveness oracle. Both are read-only.
type Context struct {
	// Before is the abstract machine state at the program point preceding
	// the window's first instruction.
	Before flags.Tracker

	liveness *flow.Liveness
	block    int
	start    int
}

// NewContext builds a match context for a window starting at offset start of
// block. liveness may be nil, in which case every item is reported live.
func NewContext(before flags.Tracker, liveness *flow.Liveness, block, start int) *Context {
	return &Context{Before: before, liveness: liveness, block: block, start: start}
}

// LiveAfter reports whether item is live immediately after window
// instruction i. Without an oracle the answer is conservatively true:
// absence of a definitive "not live" means no liveness-dependent match.
func (c *Context) LiveAfter(item flow.Item, i int) bool {
	if c.liveness == nil {
		return true
	}
	return c.liveness.LiveAfter(item, c.block, c.start+i)
}
