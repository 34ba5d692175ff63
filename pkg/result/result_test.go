package result

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
)

func TestBuildAggregates(t *testing.T) {
	blocks := []BlockReport{
		{Block: 2, Passes: 1, Converged: true, Savings: Savings{Cycles: 3, Bytes: 2}},
		{Block: 0, Passes: 2, Converged: true, Savings: Savings{Cycles: 2, Bytes: 1}},
		{Block: 1, Passes: 10, Converged: false},
	}
	r := Build(blocks)

	if r.Savings.Cycles != 5 || r.Savings.Bytes != 3 {
		t.Errorf("savings: got %+v, want 5 cycles 3 bytes", r.Savings)
	}
	if r.Converged {
		t.Error("one diverged block must mark the report diverged")
	}
	for i, b := range r.Blocks {
		if b.Block != i {
			t.Fatalf("blocks not sorted by ID: %d at position %d", b.Block, i)
		}
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	r := Build([]BlockReport{{
		Block:     0,
		Passes:    2,
		Converged: true,
		Applications: []Application{{
			Pattern:     "flag-op-duplicate",
			Before:      "CLC : CLC",
			After:       "CLC",
			CyclesSaved: 2,
			BytesSaved:  1,
			Confidence:  1.0,
		}},
		Savings: Savings{Cycles: 2, Bytes: 1},
	}})

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(got.Blocks) != 1 || len(got.Blocks[0].Applications) != 1 {
		t.Fatalf("round trip lost content: %+v", got)
	}
	if got.Blocks[0].Applications[0].Pattern != "flag-op-duplicate" {
		t.Errorf("pattern: got %q", got.Blocks[0].Applications[0].Pattern)
	}
	if got.Savings != r.Savings {
		t.Errorf("savings: got %+v, want %+v", got.Savings, r.Savings)
	}
}

func TestTableConcurrentRecord(t *testing.T) {
	tab := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tab.Record(Application{Pattern: "nop-removal"})
			}
		}()
	}
	wg.Wait()

	if got := tab.Count("nop-removal"); got != 800 {
		t.Errorf("count: got %d, want 800", got)
	}
	if got := tab.Count("unseen"); got != 0 {
		t.Errorf("unseen pattern: got %d, want 0", got)
	}
}

func TestTableMerge(t *testing.T) {
	a, b := NewTable(), NewTable()
	a.Record(Application{Pattern: "nop-removal"})
	b.Record(Application{Pattern: "nop-removal"})
	b.Record(Application{Pattern: "flag-op-dead"})

	a.Merge(b)
	if a.Count("nop-removal") != 2 || a.Count("flag-op-dead") != 1 {
		t.Errorf("merge: got %v", a.Counts())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tab := NewTable()
	tab.Record(Application{Pattern: "store-double"})
	tab.Record(Application{Pattern: "store-double"})
	tab.Record(Application{Pattern: "arith-identity"})

	path := filepath.Join(t.TempDir(), "stats.gob")
	snap := TakeSnapshot(tab, Savings{Cycles: 7, Bytes: 4})
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Savings != snap.Savings {
		t.Errorf("savings: got %+v, want %+v", loaded.Savings, snap.Savings)
	}
	restored := loaded.Restore()
	if restored.Count("store-double") != 2 || restored.Count("arith-identity") != 1 {
		t.Errorf("restored counts: %v", restored.Counts())
	}
}
