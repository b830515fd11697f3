package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/drv/internal/domain"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 || result.Dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", result.Version, result.Dirty)
	}
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	entries := []domain.Activity{
		{ID: "a1", Kind: domain.ActivityStatus, OrderID: "501", Detail: "Accepted", Outcome: "ok", Occurred: base},
		{ID: "a2", Kind: domain.ActivityChat, OrderID: "501", Detail: "plain", Outcome: "transport_error", Error: "eof", Occurred: base.Add(time.Second)},
		{ID: "a3", Kind: domain.ActivityStatus, OrderID: "777", Detail: "Coming", Outcome: "rejected", Occurred: base.Add(2 * time.Second)},
	}
	for _, a := range entries {
		if err := db.RecordAction(ctx, a); err != nil {
			t.Fatalf("RecordAction(%s): %v", a.ID, err)
		}
	}

	all, err := db.ListActions(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "a3" || all[2].ID != "a1" {
		t.Fatalf("ListActions order = %+v", all)
	}
	if all[1].Error != "eof" || !all[1].Occurred.Equal(base.Add(time.Second)) {
		t.Errorf("round trip lost fields: %+v", all[1])
	}

	only, err := db.ListActions(ctx, "501", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].ID != "a2" {
		t.Errorf("filtered list = %+v", only)
	}
}

func TestRecordRequiresID(t *testing.T) {
	db := testDB(t)
	if err := db.RecordAction(context.Background(), domain.Activity{Kind: "status"}); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestPrune(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()

	_ = db.RecordAction(ctx, domain.Activity{ID: "old", Kind: "status", OrderID: "1", Outcome: "ok", Occurred: now.Add(-48 * time.Hour)})
	_ = db.RecordAction(ctx, domain.Activity{ID: "new", Kind: "status", OrderID: "1", Outcome: "ok", Occurred: now})

	n, err := db.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	left, _ := db.ListActions(ctx, "", 0)
	if len(left) != 1 || left[0].ID != "new" {
		t.Errorf("remaining = %+v", left)
	}
}
