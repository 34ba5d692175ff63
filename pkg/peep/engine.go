// Package peep implements the peephole optimization engine: a sliding-window
// pattern matcher and rewriter that runs each basic block to a fixed point.
package peep

import (
	"errors"
	"fmt"
	"sort"

	"github.com/retroenv/retrogolib/log"

	"github.com/blendsdk/blend65-sub003/pkg/cost"
	"github.com/blendsdk/blend65-sub003/pkg/flags"
	"github.com/blendsdk/blend65-sub003/pkg/flow"
	"github.com/blendsdk/blend65-sub003/pkg/inst"
	"github.com/blendsdk/blend65-sub003/pkg/pattern"
	"github.com/blendsdk/blend65-sub003/pkg/result"
)

// DefaultMaxPasses bounds the fixed-point iteration per block. Hitting the
// bound is a diagnostic, not an error: the block stays valid, it just may
// not be fully optimized.
const DefaultMaxPasses = 10

var (
	ErrNoRegistry = errors.New("peep: pattern registry must not be nil")
	ErrBadLevel   = errors.New("peep: invalid optimization level")
	ErrBadPasses  = errors.New("peep: max passes must not be negative")
)

// Config tunes the engine.
type Config struct {
	// Level selects which patterns run.
	Level pattern.Level

	// MaxPasses caps the fixed-point iteration per block; zero means
	// DefaultMaxPasses.
	MaxPasses int

	// Workers caps the parallel block workers; zero means one per CPU.
	Workers int

	// Logger receives diagnostics; nil means a default logger.
	Logger *log.Logger
}

// Engine rewrites basic blocks by repeatedly matching patterns over sliding
// windows until no pattern fires or the pass cap is hit.
type Engine struct {
	active []pattern.Pattern
	cfg    Config
	log    *log.Logger
}

// New validates the configuration and builds an engine. Configuration
// problems fail here, before any block is touched.
func New(registry *pattern.Registry, cfg Config) (*Engine, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if cfg.Level > pattern.LevelAggressive {
		return nil, fmt.Errorf("%w: %d", ErrBadLevel, cfg.Level)
	}
	if cfg.MaxPasses < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadPasses, cfg.MaxPasses)
	}
	if cfg.MaxPasses == 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New()
	}
	return &Engine{
		active: registry.Active(cfg.Level),
		cfg:    cfg,
		log:    cfg.Logger,
	}, nil
}

// candidate is one match site found during a pass.
type candidate struct {
	pat   pattern.Pattern
	match *pattern.Match
}

// OptimizeBlock runs the block to a fixed point, rewriting b.Instrs in
// place. The graph provides cross-block liveness; b must belong to g.
func (e *Engine) OptimizeBlock(g *flow.Graph, b *flow.Block) result.BlockReport {
	rep := result.BlockReport{Block: b.ID}
	for pass := 1; ; pass++ {
		apps := e.runPass(g, b)
		rep.Passes = pass
		if len(apps) == 0 {
			rep.Converged = true
			return rep
		}
		for _, a := range apps {
			rep.Applications = append(rep.Applications, a)
			rep.Savings.Add(a)
		}
		if pass >= e.cfg.MaxPasses {
			e.log.Warn("no fixed point within pass limit",
				log.Int("block", b.ID),
				log.Int("passes", pass))
			return rep
		}
	}
}

// runPass performs one match-select-apply sweep over the block and returns
// the applications made.
func (e *Engine) runPass(g *flow.Graph, b *flow.Block) []result.Application {
	states := flags.Before(b.Instrs)
	live := flow.NewLiveness(g)

	var cands []candidate
	for _, p := range e.active {
		ws := p.WindowSize()
		for start := 0; start+ws <= len(b.Instrs); start++ {
			w := pattern.Window{Block: b.ID, Start: start, Instrs: b.Instrs[start : start+ws]}
			ctx := pattern.NewContext(states[start], live, b.ID, start)
			if m := e.safeMatch(p, w, ctx); m != nil {
				cands = append(cands, candidate{pat: p, match: m})
			}
		}
	}
	if len(cands) == 0 {
		return nil
	}

	selected := selectMatches(cands)

	// Apply back to front so earlier offsets stay valid across splices. A
	// rewrite can also destroy the facts behind another selected match:
	// deleting a later write extends liveness backward, and deleting an
	// earlier write erases known flag state. On [SEC, SEC, BCS] the first
	// SEC is dead only while the second exists and the second is redundant
	// only while the first exists; applying both would leave the branch
	// testing a stale carry. After the first rewrite each remaining match
	// is therefore proved again on the current block before it is applied.
	var apps []result.Application
	dirty := false
	for i := len(selected) - 1; i >= 0; i-- {
		c := selected[i]
		m := c.match
		if dirty {
			if m = e.recheck(c.pat, m.Start, g, b); m == nil {
				continue
			}
		}
		r, ok := e.safeReplace(c.pat, m)
		if !ok {
			continue
		}
		if !e.admit(c.pat, m, &r) {
			continue
		}
		before := inst.DisassembleSeq(m.Instrs)
		b.Instrs = splice(b.Instrs, m.Start, len(m.Instrs), r.Instrs)
		dirty = true
		apps = append(apps, result.Application{
			Pattern:     c.pat.ID(),
			Block:       b.ID,
			Start:       m.Start,
			Before:      before,
			After:       inst.DisassembleSeq(r.Instrs),
			CyclesSaved: r.CyclesSaved,
			BytesSaved:  r.BytesSaved,
			Confidence:  m.Confidence,
			Annotation:  r.Annotation,
		})
	}
	return apps
}

// recheck re-proves a match against the block as already rewritten by this
// pass. Splices so far happened at strictly larger offsets, so the window
// slice at start is still the one the rule originally saw; only the flag
// state and liveness around it may have changed.
func (e *Engine) recheck(p pattern.Pattern, start int, g *flow.Graph, b *flow.Block) *pattern.Match {
	ws := p.WindowSize()
	if start+ws > len(b.Instrs) {
		return nil
	}
	states := flags.Before(b.Instrs)
	live := flow.NewLiveness(g)
	w := pattern.Window{Block: b.ID, Start: start, Instrs: b.Instrs[start : start+ws]}
	ctx := pattern.NewContext(states[start], live, b.ID, start)
	return e.safeMatch(p, w, ctx)
}

// selectMatches orders candidates by confidence, then position, then rule
// name, and greedily keeps the non-overlapping prefix. The result is sorted
// by start offset.
func selectMatches(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.match.Confidence != b.match.Confidence {
			return a.match.Confidence > b.match.Confidence
		}
		if a.match.Start != b.match.Start {
			return a.match.Start < b.match.Start
		}
		return a.pat.ID() < b.pat.ID()
	})

	var selected []candidate
	for _, c := range cands {
		clash := false
		for _, s := range selected {
			if c.match.Overlaps(s.match) {
				clash = true
				break
			}
		}
		if !clash {
			selected = append(selected, c)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].match.Start < selected[j].match.Start
	})
	return selected
}

// admit is the cost gate. Annotation rewrites must change nothing but
// metadata and claim no savings; everything else must be classified
// beneficial by the cost model.
func (e *Engine) admit(p pattern.Pattern, m *pattern.Match, r *pattern.Replacement) bool {
	if r.Annotation {
		if r.CyclesSaved != 0 || r.BytesSaved != 0 || len(r.Instrs) != len(m.Instrs) {
			e.log.Warn("annotation rewrite violates its contract, skipping",
				log.String("pattern", p.ID()))
			return false
		}
		return true
	}
	cmp, err := cost.Compare(m.Instrs, r.Instrs)
	if err != nil {
		e.log.Warn("replacement not costable, skipping",
			log.String("pattern", p.ID()),
			log.Err(err))
		return false
	}
	if !cmp.Beneficial {
		e.log.Debug("rewrite rejected by cost model",
			log.String("pattern", p.ID()),
			log.String("window", inst.DisassembleSeq(m.Instrs)))
		return false
	}
	return true
}

// safeMatch isolates a panicking pattern: the rule is skipped for this
// window and the pass continues.
func (e *Engine) safeMatch(p pattern.Pattern, w pattern.Window, ctx *pattern.Context) (m *pattern.Match) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("pattern panicked in match, skipping",
				log.String("pattern", p.ID()),
				log.String("panic", fmt.Sprint(r)))
			m = nil
		}
	}()
	return p.Match(w, ctx)
}

func (e *Engine) safeReplace(p pattern.Pattern, m *pattern.Match) (r pattern.Replacement, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("pattern panicked in replace, skipping",
				log.String("pattern", p.ID()),
				log.String("panic", fmt.Sprint(rec)))
			ok = false
		}
	}()
	return p.Replace(m), true
}

// splice replaces instrs[start:start+n] with repl.
func splice(instrs []inst.Instruction, start, n int, repl []inst.Instruction) []inst.Instruction {
	out := make([]inst.Instruction, 0, len(instrs)-n+len(repl))
	out = append(out, instrs[:start]...)
	out = append(out, repl...)
	out = append(out, instrs[start+n:]...)
	return out
}
