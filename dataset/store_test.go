package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/aluiziolira/go-books-api/models"
)

func writeParquet(t *testing.T, dir string, records []models.BookRecord) string {
	t.Helper()
	path := filepath.Join(dir, "books.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create parquet: %v", err)
	}
	w := parquet.NewGenericWriter[models.BookRecord](f)
	if _, err := w.Write(records); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close parquet file: %v", err)
	}
	return path
}

func TestLoadParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	price := 19.99
	stock := 4
	writeParquet(t, dir, []models.BookRecord{
		{
			ID: "1", Title: "Zen", Category: "fiction",
			Price: &price, Rating: 5, InStock: &stock,
			UPC: "UPC1", ProductURL: "https://x/1",
			ImageURL: "https://x/1.jpg", ImagePath: "img/1.jpg",
		},
		{ID: "2", Title: "Ada", Category: "tech", Rating: 3},
	})

	ds, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasSuffix(ds.Path, "books.parquet") {
		t.Fatalf("path = %q, want the parquet file", ds.Path)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("rows = %d, want 2", len(ds.Records))
	}

	first := ds.Records[0]
	if first.Title != "Zen" || first.UPC != "UPC1" {
		t.Fatalf("first record = %+v", first)
	}
	if first.Price == nil || *first.Price != 19.99 {
		t.Fatalf("first price = %v, want 19.99", first.Price)
	}
	if first.InStock == nil || *first.InStock != 4 {
		t.Fatalf("first instock = %v, want 4", first.InStock)
	}

	second := ds.Records[1]
	if second.Price != nil {
		t.Fatalf("second price = %v, want nil optional", second.Price)
	}

	if !ds.RequiredOK() {
		t.Fatalf("required columns missing from %v", ds.Columns)
	}
}

func TestStoreSnapshotLazyLoad(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, silverHeader, `1,Zen,fiction,10,5,,,,,`)

	store := NewStore(NewLoader(dir))

	ds := store.Snapshot()
	if ds == nil || len(ds.Records) != 1 {
		t.Fatalf("snapshot = %+v, want one row", ds)
	}

	// Repeated snapshots return the same installed dataset.
	if store.Snapshot() != ds {
		t.Fatalf("second snapshot returned a different dataset")
	}
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, silverHeader, `1,Zen,fiction,10,5,,,,,`)

	store := NewStore(NewLoader(dir))
	before := store.Snapshot()
	if len(before.Records) != 1 {
		t.Fatalf("initial rows = %d, want 1", len(before.Records))
	}

	writeCSV(t, dir, silverHeader,
		`1,Zen,fiction,10,5,,,,,`,
		`2,Ada,tech,20,3,,,,,`,
	)
	after, err := store.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(after.Records) != 2 {
		t.Fatalf("reloaded rows = %d, want 2", len(after.Records))
	}
	if got := store.Snapshot(); got != after {
		t.Fatalf("snapshot did not switch to the reloaded dataset")
	}
	// The replaced snapshot stays intact for readers still holding it.
	if len(before.Records) != 1 {
		t.Fatalf("previous snapshot mutated: %d rows", len(before.Records))
	}
}

func TestStoreReloadMissingFileClearsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, silverHeader, `1,Zen,fiction,10,5,,,,,`)

	store := NewStore(NewLoader(dir))
	if store.Snapshot() == nil {
		t.Fatalf("initial snapshot missing")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove csv: %v", err)
	}
	ds, err := store.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ds != nil {
		t.Fatalf("reload = %+v, want nil for missing file", ds)
	}
	if store.Snapshot() != nil {
		t.Fatalf("snapshot should be cleared when the file disappears")
	}
}

func TestStoreHealth(t *testing.T) {
	t.Run("loaded dataset", func(t *testing.T) {
		dir := t.TempDir()
		writeCSV(t, dir, silverHeader, `1,Zen,fiction,10,5,,,,,`)

		h := NewStore(NewLoader(dir)).Health()
		if !h.Exists {
			t.Fatalf("exists = false, want true")
		}
		if h.Rows != 1 {
			t.Fatalf("rows = %d, want 1", h.Rows)
		}
		if !h.ColumnsRequiredOK {
			t.Fatalf("columns_required_ok = false with full header")
		}
		if len(h.ColumnsPresent) != 10 {
			t.Fatalf("columns_present = %v", h.ColumnsPresent)
		}
	})

	t.Run("missing dataset", func(t *testing.T) {
		h := NewStore(NewLoader(t.TempDir())).Health()
		if h.Exists {
			t.Fatalf("exists = true for missing file")
		}
		if h.Rows != 0 || h.ColumnsRequiredOK {
			t.Fatalf("health = %+v, want degraded zero state", h)
		}
		if h.ColumnsPresent == nil {
			t.Fatalf("columns_present should be an empty list, not null")
		}
		if h.DatasetPath == "" {
			t.Fatalf("dataset_path should report the resolved target")
		}
	})
}
