// Package pattern defines the capability set every peephole rule implements,
// the match/replacement values the engine exchanges with rules, and the
// registry the engine draws candidate rules from. The representative built-in
// library lives here too; additional rules arrive pre-built from the external
// pattern-DSL pipeline and register the same way.
package pattern

import (
	"fmt"

	"github.com/blendsdk/blend65-sub003/pkg/inst"
)

// Level is an optimization level. Levels are ordered; a pattern is active at
// its minimum level and everything above it.
type Level uint8

const (
	LevelNone Level = iota
	LevelBasic
	LevelStandard
	LevelAggressive
)

var levelNames = [...]string{"none", "basic", "standard", "aggressive"}

// ErrUnknownLevel is returned by ParseLevel for unrecognized level names.
var ErrUnknownLevel = fmt.Errorf("pattern: unknown optimization level")

// String returns the level's configuration name.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "invalid"
}

// ParseLevel converts a configuration string to a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Category classifies a pattern by the kind of rewrite it performs.
type Category uint8

const (
	Redundancy Category = iota
	Arithmetic
	LoadStore
	Branch
	Transfer
	Flag
	General
)

var categoryNames = [...]string{
	"redundancy", "arithmetic", "load-store", "branch", "transfer", "flag", "general",
}

// String returns the category name.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "invalid"
}

// Window is a fixed-length view of consecutive instructions inside one basic
// block, starting at offset Start of the block. Patterns never see across
// block boundaries.
type Window struct {
	Block  int
	Start  int
	Instrs []inst.Instruction
}

// Len returns the window length.
func (w Window) Len() int { return len(w.Instrs) }

// At returns the i-th instruction of the window.
func (w Window) At(i int) inst.Instruction { return w.Instrs[i] }

// Match is a successful pattern application site. Confidence in [0,1] is
// semantic certainty that the rewrite preserves behavior; estimated
// profitability is the cost model's concern, never encoded here.
type Match struct {
	Start      int // block offset of the first consumed instruction
	Instrs     []inst.Instruction
	Captures   map[string]uint16
	Confidence float64
}

// End returns the block offset one past the last consumed instruction.
func (m *Match) End() int { return m.Start + len(m.Instrs) }

// Overlaps reports whether two matches share an instruction.
func (m *Match) Overlaps(o *Match) bool {
	return m.Start < o.End() && o.Start < m.End()
}

// Replacement is the outcome of applying a match: the new sub-sequence
// (possibly empty, which deletes the matched instructions) and the savings
// it claims. Annotation replacements change only metadata, must claim zero
// savings and are excluded from beneficial classification so they cannot
// oscillate with a reverse pattern.
type Replacement struct {
	Instrs      []inst.Instruction
	CyclesSaved int
	BytesSaved  int
	Annotation  bool
}

// Pattern is the capability set every peephole rule implements. Match and
// Replace are pure: they inspect the window and context, never global state,
// and produce fresh values.
type Pattern interface {
	ID() string
	Description() string
	Category() Category
	MinLevel() Level
	WindowSize() int
	Match(w Window, ctx *Context) *Match
	Replace(m *Match) Replacement
}

// Info carries the static metadata of a rule; rule types embed it to satisfy
// the metadata half of the Pattern interface.
type Info struct {
	Name   string
	Desc   string
	Cat    Category
	Level  Level
	Window int
}

func (i Info) ID() string          { return i.Name }
func (i Info) Description() string { return i.Desc }
func (i Info) Category() Category  { return i.Cat }
func (i Info) MinLevel() Level     { return i.Level }
func (i Info) WindowSize() int     { return i.Window }
