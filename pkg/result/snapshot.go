package result

import (
	"encoding/gob"
	"os"
)

// Snapshot holds accumulated statistics for resuming a long batch run.
type Snapshot struct {
	Counts  []PatternCount
	Savings Savings
}

// PatternCount is one table entry in snapshot form; gob has no stable map
// ordering, so counts are flattened.
type PatternCount struct {
	Pattern string
	Count   int
}

// TakeSnapshot captures the table and totals.
func TakeSnapshot(t *Table, s Savings) *Snapshot {
	snap := &Snapshot{Savings: s}
	for pattern, count := range t.Counts() {
		snap.Counts = append(snap.Counts, PatternCount{Pattern: pattern, Count: count})
	}
	return snap
}

// Restore rebuilds a table from the snapshot.
func (s *Snapshot) Restore() *Table {
	t := NewTable()
	for _, pc := range s.Counts {
		t.mu.Lock()
		t.counts[pc.Pattern] = pc.Count
		t.mu.Unlock()
	}
	return t
}

// SaveSnapshot writes the snapshot to a file.
func SaveSnapshot(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(snap)
}

// LoadSnapshot reads a snapshot written with SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
