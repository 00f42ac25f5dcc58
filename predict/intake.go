// Package predict validates externally submitted prediction batches and
// appends the accepted entries to timestamped JSONL files.
package predict

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformedBatch rejects a request wholesale, before per-entry
// validation: missing model name or empty predictions list.
var ErrMalformedBatch = errors.New("batch requires a model name and a non-empty predictions list")

// Batch is one submitted prediction request.
type Batch struct {
	Model       string  `json:"model"`
	Predictions []Entry `json:"predictions"`
}

// Entry pairs a book id with a predicted score. Score stays nil when the
// field is absent.
type Entry struct {
	ID    string `json:"id"`
	Score *Score `json:"y_pred"`
}

// Score accepts a JSON number or a numeric string and remembers whether it
// parsed to a finite value. Parse failures do not abort batch decoding; the
// entry is rejected individually instead.
type Score struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements lenient score decoding.
func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	s.Value = v
	s.Valid = true
	return nil
}

// MarshalJSON writes the numeric value.
func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// Record is one persisted prediction line.
type Record struct {
	Model       string    `json:"model"`
	BookID      string    `json:"book_id"`
	Score       float64   `json:"y_pred"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Rejection tags one refused entry with its position and reason.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result reports the outcome of one batch submission. RejectionsPreview is
// bounded to the first few rejections.
type Result struct {
	Model             string      `json:"model"`
	Accepted          int         `json:"accepted"`
	Rejected          int         `json:"rejected"`
	RejectionsPreview []Rejection `json:"rejections_preview"`
	OutputPath        string      `json:"output_path,omitempty"`
}

const rejectionPreviewLimit = 5

// Intake validates batches and persists accepted entries. Each submission
// writes to its own timestamp-qualified file, so concurrent submissions do
// not contend.
type Intake struct {
	dir string
	now func() time.Time
}

// NewIntake stores prediction files under dir.
func NewIntake(dir string) *Intake {
	return &Intake{dir: dir, now: time.Now}
}

// Submit validates the batch, appends the valid entries as one JSONL batch,
// and reports accepted/rejected counts with a bounded rejection preview.
func (in *Intake) Submit(batch Batch) (*Result, error) {
	model := strings.TrimSpace(batch.Model)
	if model == "" || len(batch.Predictions) == 0 {
		return nil, ErrMalformedBatch
	}

	submittedAt := in.now().UTC()
	accepted := make([]Record, 0, len(batch.Predictions))
	rejections := make([]Rejection, 0)
	for i, entry := range batch.Predictions {
		id := strings.TrimSpace(entry.ID)
		switch {
		case id == "":
			rejections = append(rejections, Rejection{Index: i, ID: entry.ID, Reason: "missing id"})
		case entry.Score == nil || !entry.Score.Valid:
			rejections = append(rejections, Rejection{Index: i, ID: id, Reason: "score must be a finite number"})
		default:
			accepted = append(accepted, Record{
				Model:       model,
				BookID:      id,
				Score:       entry.Score.Value,
				SubmittedAt: submittedAt,
			})
		}
	}

	result := &Result{
		Model:    model,
		Accepted: len(accepted),
		Rejected: len(rejections),
	}
	preview := rejections
	if len(preview) > rejectionPreviewLimit {
		preview = preview[:rejectionPreviewLimit]
	}
	result.RejectionsPreview = preview

	if len(accepted) == 0 {
		return result, nil
	}

	path, err := in.writeBatch(model, submittedAt, accepted)
	if err != nil {
		return nil, err
	}
	result.OutputPath = path
	return result, nil
}

func (in *Intake) writeBatch(model string, ts time.Time, records []Record) (string, error) {
	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return "", fmt.Errorf("create predictions directory: %w", err)
	}

	name := fmt.Sprintf("predictions_%s_%s.jsonl", sanitizeModelName(model), ts.Format("20060102T150405.000000000Z"))
	path := filepath.Join(in.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create prediction file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, rec := range records {
		if err := encoder.Encode(rec); err != nil {
			f.Close()
			return "", fmt.Errorf("encode prediction record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush prediction file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close prediction file: %w", err)
	}
	return path, nil
}

func sanitizeModelName(model string) string {
	var b strings.Builder
	for _, r := range model {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
