package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func createTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return l
}

func TestRecordAndLastRun(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	id, err := l.Record(ctx, Run{
		Alias:          "tokenMedia",
		Extension:      "png",
		ItemCount:      3,
		ConcatLength:   192,
		ProvenanceHash: "e03079b65db69eeb4a8e9895005422a4f62e5be792f53be13988f5b1a294a2ff",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if id == "" {
		t.Fatal("Record returned empty id")
	}

	run, err := l.LastRun(ctx, "tokenMedia", "png")
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if run.ID != id {
		t.Errorf("ID = %q, want %q", run.ID, id)
	}
	if run.ItemCount != 3 || run.ConcatLength != 192 {
		t.Errorf("counts = (%d, %d), want (3, 192)", run.ItemCount, run.ConcatLength)
	}
	if run.CreatedAt == "" {
		t.Error("CreatedAt not assigned")
	}
}

func TestRecord_Idempotency(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	run := Run{
		ID:             "fixed-run-id",
		Alias:          "tokenMetadata",
		Extension:      "",
		ItemCount:      2,
		ConcatLength:   128,
		ProvenanceHash: "abc",
	}

	if _, err := l.Record(ctx, run); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if _, err := l.Record(ctx, run); err != nil {
		t.Fatalf("second Record should not fail: %v", err)
	}

	runs, err := l.Runs(ctx, "tokenMetadata", "")
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after duplicate record, got %d", len(runs))
	}
}

func TestLastRun_PicksNewest(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	for i, hash := range []string{"old", "mid", "new"} {
		_, err := l.Record(ctx, Run{
			Alias:          "tokenMedia",
			Extension:      "png",
			ItemCount:      i,
			ProvenanceHash: hash,
		})
		if err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	run, err := l.LastRun(ctx, "tokenMedia", "png")
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	// UUIDv7 ids are time-sortable, they break the created_at tie.
	if run.ProvenanceHash != "new" {
		t.Errorf("LastRun hash = %q, want %q", run.ProvenanceHash, "new")
	}
}

func TestLastRun_Empty(t *testing.T) {
	l := createTestLedger(t)

	_, err := l.LastRun(context.Background(), "nothing", "png")
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
}

func TestRuns_FiltersByAliasAndExtension(t *testing.T) {
	l := createTestLedger(t)
	ctx := context.Background()

	l.Record(ctx, Run{Alias: "a", Extension: "png", ProvenanceHash: "h1"})
	l.Record(ctx, Run{Alias: "a", Extension: "", ProvenanceHash: "h2"})
	l.Record(ctx, Run{Alias: "b", Extension: "png", ProvenanceHash: "h3"})

	runs, err := l.Runs(ctx, "a", "png")
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ProvenanceHash != "h1" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := l.Record(context.Background(), Run{Alias: "a", Extension: "", ProvenanceHash: "h"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Schema application is idempotent and data survives reopen.
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer l2.Close()

	run, err := l2.LastRun(context.Background(), "a", "")
	if err != nil {
		t.Fatalf("LastRun after reopen failed: %v", err)
	}
	if run.ProvenanceHash != "h" {
		t.Errorf("hash after reopen = %q", run.ProvenanceHash)
	}
}
