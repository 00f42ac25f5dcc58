// Package dataset loads the silver book table and serves immutable in-memory
// snapshots of it to the query layer.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/aluiziolira/go-books-api/models"
)

// RequiredColumns is the silver schema contract checked by /health.
var RequiredColumns = []string{
	"id", "title", "category", "price", "rating",
	"instock", "UPC", "product_url", "image_url", "image_path",
}

// Dataset is one fully-loaded, immutable snapshot of the silver table.
type Dataset struct {
	Records []models.BookRecord
	Path    string
	Columns []string // sorted column names present in the source
}

// Empty reports whether the snapshot holds no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Records) == 0
}

// RequiredOK reports whether every required silver column is present.
func (d *Dataset) RequiredOK() bool {
	if d == nil {
		return false
	}
	present := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		present[c] = struct{}{}
	}
	for _, c := range RequiredColumns {
		if _, ok := present[c]; !ok {
			return false
		}
	}
	return true
}

// Health is the payload reported by the health endpoint.
type Health struct {
	DatasetPath       string   `json:"dataset_path"`
	Exists            bool     `json:"exists"`
	Rows              int      `json:"rows"`
	ColumnsPresent    []string `json:"columns_present"`
	ColumnsRequiredOK bool     `json:"columns_required_ok"`
}

// Loader resolves and reads the silver table. Parquet is preferred when both
// formats are present.
type Loader struct {
	Dir string
}

// NewLoader builds a loader rooted at the silver data directory.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// ResolvePath returns the file the loader would read: books.parquet if it
// exists, otherwise books.csv.
func (l *Loader) ResolvePath() string {
	pq := filepath.Join(l.Dir, "books.parquet")
	if _, err := os.Stat(pq); err == nil {
		return pq
	}
	return filepath.Join(l.Dir, "books.csv")
}

// Load reads the best-available silver file. A missing file yields (nil, nil):
// the service runs degraded rather than failing. Parse errors are returned so
// the caller can log them, but are likewise non-fatal.
func (l *Loader) Load() (*Dataset, error) {
	path := l.ResolvePath()
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	if strings.HasSuffix(path, ".parquet") {
		return l.loadParquet(path)
	}
	return l.loadCSV(path)
}

func (l *Loader) loadParquet(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet footer: %w", err)
	}

	columns := make([]string, 0, len(pf.Schema().Fields()))
	for _, field := range pf.Schema().Fields() {
		columns = append(columns, field.Name())
	}
	sort.Strings(columns)

	records, err := parquet.Read[models.BookRecord](f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	for i := range records {
		records[i].Rating = clampRating(records[i].Rating)
	}

	return &Dataset{Records: records, Path: path, Columns: columns}, nil
}

func (l *Loader) loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return &Dataset{Path: path}, nil
	}

	header := rows[0]
	index := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		index[name] = i
		columns = append(columns, name)
	}
	sort.Strings(columns)

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]models.BookRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.BookRecord{
			ID:         field(row, "id"),
			Title:      field(row, "title"),
			Category:   field(row, "category"),
			Price:      coerceFloat(field(row, "price")),
			Rating:     coerceRating(field(row, "rating")),
			InStock:    coerceInt(field(row, "instock")),
			UPC:        field(row, "UPC"),
			ProductURL: field(row, "product_url"),
			ImageURL:   field(row, "image_url"),
			ImagePath:  field(row, "image_path"),
		}
		records = append(records, rec)
	}

	return &Dataset{Records: records, Path: path, Columns: columns}, nil
}

// coerceFloat parses a numeric string. Unparseable or non-finite input maps
// to nil, never to zero.
func coerceFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// coerceRating parses a rating and clamps it to [0,5]. Missing or invalid
// input maps to 0.
func coerceRating(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return clampRating(int(v))
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

func coerceInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	iv := int(v)
	return &iv
}
