package cleaner

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
	"github.com/aluiziolira/go-books-api/parser"
)

// silverHeader is the canonical silver column order.
var silverHeader = []string{
	"id", "title", "category", "price", "rating",
	"instock", "UPC", "product_url", "image_url", "image_path",
}

// Job reads the newest bronze CSV and writes the silver table.
type Job struct {
	BronzeDir string
	SilverDir string
}

// NewJob builds a cleaning job over the two data directories.
func NewJob(bronzeDir, silverDir string) *Job {
	return &Job{BronzeDir: bronzeDir, SilverDir: silverDir}
}

// Summary reports what one cleaning run did. Parquet output is best-effort:
// ParquetErr is informational, not fatal.
type Summary struct {
	InputPath   string
	InputRows   int
	OutputRows  int
	CSVPath     string
	ParquetPath string
	ParquetErr  error
}

// Run executes the bronze-to-silver transformation.
func (j *Job) Run() (*Summary, error) {
	inputPath, err := j.pickBronzeCSV()
	if err != nil {
		return nil, err
	}

	rows, err := readBronze(inputPath)
	if err != nil {
		return nil, err
	}

	records := Clean(rows)

	if err := os.MkdirAll(j.SilverDir, 0o755); err != nil {
		return nil, fmt.Errorf("create silver directory: %w", err)
	}

	summary := &Summary{
		InputPath:   inputPath,
		InputRows:   len(rows),
		OutputRows:  len(records),
		CSVPath:     filepath.Join(j.SilverDir, "books.csv"),
		ParquetPath: filepath.Join(j.SilverDir, "books.parquet"),
	}

	if err := writeSilverCSV(summary.CSVPath, records); err != nil {
		return nil, err
	}
	if err := writeSilverParquet(summary.ParquetPath, records); err != nil {
		summary.ParquetErr = err
	}
	return summary, nil
}

// pickBronzeCSV selects the most recently modified books*.csv in the
// bronze directory.
func (j *Job) pickBronzeCSV() (string, error) {
	matches, err := filepath.Glob(filepath.Join(j.BronzeDir, "books*.csv"))
	if err != nil {
		return "", fmt.Errorf("scan bronze directory: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no bronze CSV found in %s (expected books*.csv)", j.BronzeDir)
	}
	sort.Slice(matches, func(a, b int) bool {
		ia, errA := os.Stat(matches[a])
		ib, errB := os.Stat(matches[b])
		if errA != nil || errB != nil {
			return matches[a] > matches[b]
		}
		return ia.ModTime().After(ib.ModTime())
	})
	return matches[0], nil
}

// bronzeRow is one raw record keyed by header name, before typing.
type bronzeRow map[string]string

func readBronze(path string) ([]bronzeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bronze csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bronze csv: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	header := raw[0]
	// A UTF-8 BOM on the first header cell is common in bronze exports.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([]bronzeRow, 0, len(raw)-1)
	for _, record := range raw[1:] {
		row := make(bronzeRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[strings.TrimSpace(name)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Clean types and normalizes bronze rows into silver records: normalized
// title/category, coerced price and rating, id fallback from the product
// URL, and keep-first dedupe by id.
func Clean(rows []bronzeRow) []models.BookRecord {
	records := make([]models.BookRecord, 0, len(rows))
	for _, row := range rows {
		rec := cleanRow(row)
		records = append(records, rec)
	}
	return dedupe(records)
}

func cleanRow(row bronzeRow) models.BookRecord {
	get := func(names ...string) string {
		for _, n := range names {
			if v, ok := row[n]; ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	productURL := get("product_url", "link")

	id := get("id")
	if id == "" {
		id = parser.BookIDFromURL(productURL)
	}

	var price *float64
	if raw := get("raw_price"); raw != "" {
		price = CoercePrice(raw)
	} else if raw := get("price"); raw != "" {
		price = CoercePrice(raw)
	}

	rating := 0
	if raw := get("rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) {
			rating = ClampRating(int(v))
		}
	}

	var instock *int
	if raw := get("instock"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			iv := int(v)
			instock = &iv
		}
	}

	return models.BookRecord{
		ID:         id,
		Title:      NormalizeText(get("book_title", "title")),
		Category:   NormalizeText(get("category")),
		Price:      price,
		Rating:     rating,
		InStock:    instock,
		UPC:        get("UPC"),
		ProductURL: productURL,
		ImageURL:   get("image_url"),
		ImagePath:  get("image_path"),
	}
}

// dedupe keeps the first record per id. Records without an id fall back to
// a title+price identity.
func dedupe(records []models.BookRecord) []models.BookRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.BookRecord, 0, len(records))
	for _, rec := range records {
		key := rec.ID
		if key == "" {
			price := ""
			if rec.Price != nil {
				price = strconv.FormatFloat(*rec.Price, 'f', -1, 64)
			}
			key = "\x00" + rec.Title + "\x00" + price
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func writeSilverCSV(path string, records []models.BookRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create silver csv: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(silverHeader); err != nil {
		f.Close()
		return fmt.Errorf("write silver header: %w", err)
	}

	for _, rec := range records {
		price := ""
		if rec.Price != nil {
			price = strconv.FormatFloat(*rec.Price, 'f', -1, 64)
		}
		instock := ""
		if rec.InStock != nil {
			instock = strconv.Itoa(*rec.InStock)
		}
		row := []string{
			rec.ID,
			rec.Title,
			rec.Category,
			price,
			strconv.Itoa(rec.Rating),
			instock,
			rec.UPC,
			rec.ProductURL,
			rec.ImageURL,
			rec.ImagePath,
		}
		if err := writer.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write silver record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush silver csv: %w", err)
	}
	return f.Close()
}

func writeSilverParquet(path string, records []models.BookRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create silver parquet: %w", err)
	}

	writer := parquet.NewGenericWriter[models.BookRecord](f)
	if _, err := writer.Write(records); err != nil {
		writer.Close()
		f.Close()
		return fmt.Errorf("write silver parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close silver parquet: %w", err)
	}
	return f.Close()
}
