package plancache

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchemaAndRecordsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "plans.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	err = store.Record(ctx, Entry{
		Question:  "What is the latest USDC utilization?",
		Domain:    "lending",
		SQL:       "SELECT 1",
		RowCount:  1,
		Succeeded: true,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	err = store.Record(ctx, Entry{
		Question:  "drop all tables",
		SQL:       "DROP TABLE x",
		Succeeded: false,
		ErrorText: "guard rejection",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Question != "drop all tables" {
		t.Errorf("expected most-recent first, got %q", recent[0].Question)
	}
	if recent[1].Domain != "lending" {
		t.Errorf("Domain = %q", recent[1].Domain)
	}
}

func TestRecordDefaultsTimestampWhenZero(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "plans.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.Record(context.Background(), Entry{Question: "q", SQL: "SELECT 1", Succeeded: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	recent, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("expected a non-zero recorded_at timestamp")
	}
}
