package result

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
)

// Application records a single pattern rewrite applied to a block.
type Application struct {
	Pattern     string  `json:"pattern"`
	Block       int     `json:"block"`
	Start       int     `json:"start"`
	Before      string  `json:"before"`
	After       string  `json:"after,omitempty"`
	CyclesSaved int     `json:"cycles_saved"`
	BytesSaved  int     `json:"bytes_saved"`
	Confidence  float64 `json:"confidence"`
	Annotation  bool    `json:"annotation,omitempty"`
}

// Savings accumulates the estimated win across applications.
type Savings struct {
	Cycles int `json:"cycles"`
	Bytes  int `json:"bytes"`
}

// Add folds one application into the total.
func (s *Savings) Add(a Application) {
	s.Cycles += a.CyclesSaved
	s.Bytes += a.BytesSaved
}

// Merge folds another total into this one.
func (s *Savings) Merge(o Savings) {
	s.Cycles += o.Cycles
	s.Bytes += o.Bytes
}

// BlockReport is the outcome of optimizing one basic block.
type BlockReport struct {
	Block        int           `json:"block"`
	Passes       int           `json:"passes"`
	Converged    bool          `json:"converged"`
	Applications []Application `json:"applications,omitempty"`
	Savings      Savings       `json:"savings"`
}

// Report is the outcome of optimizing a whole function graph.
type Report struct {
	Blocks    []BlockReport `json:"blocks"`
	Savings   Savings       `json:"savings"`
	Converged bool          `json:"converged"`
}

// Build assembles the graph-level report from per-block reports, sorted by
// block ID for stable output.
func Build(blocks []BlockReport) *Report {
	sorted := make([]BlockReport, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Block < sorted[j].Block })

	r := &Report{Blocks: sorted, Converged: true}
	for _, b := range sorted {
		r.Savings.Merge(b.Savings)
		if !b.Converged {
			r.Converged = false
		}
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON parses a report previously written with WriteJSON.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Table counts pattern firings across blocks. Safe for concurrent use.
type Table struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{counts: make(map[string]int)}
}

// Record counts one application.
func (t *Table) Record(a Application) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[a.Pattern]++
}

// Count returns the firing count of one pattern.
func (t *Table) Count(pattern string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[pattern]
}

// Counts returns a copy of all firing counts.
func (t *Table) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Merge folds another table into this one.
func (t *Table) Merge(o *Table) {
	for k, v := range o.Counts() {
		t.mu.Lock()
		t.counts[k] += v
		t.mu.Unlock()
	}
}
