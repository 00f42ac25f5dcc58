package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-books-api/models"
)

func bronzeBooks() []*models.ScrapedBook {
	return []*models.ScrapedBook{
		{
			ID:         "book-1_1",
			Title:      "First Book",
			Category:   "Fiction",
			RawPrice:   "£10.99",
			Rating:     4,
			InStock:    "22",
			UPC:        "UPC1",
			ProductURL: "https://books.toscrape.com/catalogue/book-1_1/index.html",
			ImageURL:   "https://books.toscrape.com/media/1.jpg",
			ImagePath:  "images/1.jpg",
			ScrapedAt:  time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         "book-2_2",
			Title:      "Second Book",
			Category:   "Poetry",
			RawPrice:   "£20.50",
			Rating:     2,
			ProductURL: "https://books.toscrape.com/catalogue/book-2_2/index.html",
			ScrapedAt:  time.Date(2026, 8, 30, 10, 0, 1, 0, time.UTC),
		},
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bronze", "books.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := w.Write(bronzeBooks()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2 records", len(rows))
	}
	if rows[0][0] != "id" || rows[0][1] != "book_title" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "book-1_1" || rows[1][3] != "£10.99" {
		t.Fatalf("first record = %v", rows[1])
	}
	if rows[1][10] != "2026-08-30T10:00:00Z" {
		t.Fatalf("scraped_at = %q", rows[1][10])
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.jsonl")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := w.Write(bronzeBooks()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var book models.ScrapedBook
		if err := json.Unmarshal(scanner.Bytes(), &book); err != nil {
			t.Fatalf("line %d not valid json: %v", lines+1, err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}

func TestJSONWriterValidateEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.jsonl")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	defer w.Close()

	if err := w.Validate(); err == nil {
		t.Fatalf("empty file should fail validation")
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	jsonPath := filepath.Join(dir, "books.jsonl")

	w, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := w.Write(bronzeBooks()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}
