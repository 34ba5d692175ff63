package peep

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/retroenv/retrogolib/log"

	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/result"
)

// Optimize runs every block of the graph to a fixed point, distributing
// blocks across workers, and returns the merged report. Block instruction
// slices are rewritten in place.
//
// Each worker operates on a private clone of the graph taken before any
// rewriting starts, so liveness queries never race with another worker's
// splices. The stale view stays sound because no rewrite enlarges what a
// block demands from its predecessors: reads are never added, and a write
// is deleted only when an equivalent earlier write survives to kill the
// item first, or when every path beyond it overwrites the item before
// reading it. A walk through a rewritten block therefore reaches a kill
// no later than it did in the clone, so an item dead in the clone is
// still dead in the final graph.
func (e *Engine) Optimize(g *flow.Graph) *result.Report {
	blocks := g.Blocks()
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })

	clones := make([]*flow.Graph, len(blocks))
	for i := range blocks {
		clones[i] = g.Clone()
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(blocks) {
		workers = len(blocks)
	}

	tasks := make(chan int, len(blocks))
	for i := range blocks {
		tasks <- i
	}
	close(tasks)

	reports := make([]result.BlockReport, len(blocks))
	var applied atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				priv := clones[i].Block(blocks[i].ID)
				reports[i] = e.OptimizeBlock(clones[i], priv)
				blocks[i].Instrs = priv.Instrs
				applied.Add(int64(len(reports[i].Applications)))
			}
		}()
	}
	wg.Wait()

	rep := result.Build(reports)
	e.log.Debug("graph optimized",
		log.Int("blocks", len(blocks)),
		log.Int("rewrites", int(applied.Load())),
		log.Int("cycles_saved", rep.Savings.Cycles),
		log.Int("bytes_saved", rep.Savings.Bytes))
	return rep
}
