//go:build sqlite_fts5

package store

import (
	"context"
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	put(t, db, "vanishing", time.Now())
	_ = db.WithTx(ctx, func(tx Tx) error {
		_, err := tx.DeleteNote("vanishing")
		return err
	})
	results, err := db.Search(ctx, "vanishing", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(results))
	}
}
