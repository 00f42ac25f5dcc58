package predict

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func testIntake(t *testing.T) *Intake {
	t.Helper()
	in := NewIntake(t.TempDir())
	in.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return in
}

func score(v float64) *Score {
	return &Score{Value: v, Valid: true}
}

func TestSubmitMalformedBatch(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
	}{
		{name: "missing model", batch: Batch{Predictions: []Entry{{ID: "1", Score: score(0.5)}}}},
		{name: "blank model", batch: Batch{Model: "   ", Predictions: []Entry{{ID: "1", Score: score(0.5)}}}},
		{name: "empty predictions", batch: Batch{Model: "m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testIntake(t)
			_, err := in.Submit(tt.batch)
			if !errors.Is(err, ErrMalformedBatch) {
				t.Fatalf("err = %v, want ErrMalformedBatch", err)
			}
		})
	}
}

func TestSubmitMixedBatch(t *testing.T) {
	in := testIntake(t)

	result, err := in.Submit(Batch{
		Model: "m1",
		Predictions: []Entry{
			{ID: "book-1", Score: score(0.93)},
			{ID: "", Score: score(0.5)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1", result.Accepted)
	}
	if result.Rejected != 1 {
		t.Fatalf("rejected = %d, want 1", result.Rejected)
	}
	if len(result.RejectionsPreview) != 1 {
		t.Fatalf("preview = %+v, want one rejection", result.RejectionsPreview)
	}
	rej := result.RejectionsPreview[0]
	if rej.Index != 1 || rej.Reason != "missing id" {
		t.Fatalf("rejection = %+v, want index 1 with missing id", rej)
	}
	if result.OutputPath == "" {
		t.Fatalf("output path empty with accepted entries")
	}
}

func TestSubmitRejectsInvalidScores(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "nil score", entry: Entry{ID: "1"}},
		{name: "unparsed score", entry: Entry{ID: "1", Score: &Score{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testIntake(t)
			result, err := in.Submit(Batch{Model: "m1", Predictions: []Entry{tt.entry}})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if result.Accepted != 0 || result.Rejected != 1 {
				t.Fatalf("accepted=%d rejected=%d, want 0/1", result.Accepted, result.Rejected)
			}
			if got := result.RejectionsPreview[0].Reason; got != "score must be a finite number" {
				t.Fatalf("reason = %q", got)
			}
		})
	}
}

func TestSubmitAllRejectedWritesNoFile(t *testing.T) {
	dir := t.TempDir()
	in := NewIntake(dir)

	result, err := in.Submit(Batch{Model: "m1", Predictions: []Entry{{ID: ""}}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.OutputPath != "" {
		t.Fatalf("output path = %q, want empty", result.OutputPath)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory holds %d files, want none", len(entries))
	}
}

func TestSubmitRejectionPreviewBounded(t *testing.T) {
	in := testIntake(t)

	batch := Batch{Model: "m1"}
	for i := 0; i < 8; i++ {
		batch.Predictions = append(batch.Predictions, Entry{ID: ""})
	}

	result, err := in.Submit(batch)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Rejected != 8 {
		t.Fatalf("rejected = %d, want 8", result.Rejected)
	}
	if len(result.RejectionsPreview) != rejectionPreviewLimit {
		t.Fatalf("preview holds %d entries, want %d", len(result.RejectionsPreview), rejectionPreviewLimit)
	}
}

func TestSubmitWritesJSONLines(t *testing.T) {
	in := testIntake(t)

	result, err := in.Submit(Batch{
		Model: "model v2",
		Predictions: []Entry{
			{ID: "a", Score: score(0.25)},
			{ID: " b ", Score: score(0.75)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	base := filepath.Base(result.OutputPath)
	if !strings.HasPrefix(base, "predictions_model_v2_") || !strings.HasSuffix(base, ".jsonl") {
		t.Fatalf("file name = %q, want sanitized model and .jsonl suffix", base)
	}

	f, err := os.Open(result.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d not valid json: %v", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("lines = %d, want 2", len(records))
	}
	if records[0].BookID != "a" || records[0].Score != 0.25 {
		t.Fatalf("first record = %+v", records[0])
	}
	if records[1].BookID != "b" {
		t.Fatalf("second record id = %q, want trimmed b", records[1].BookID)
	}
	for _, rec := range records {
		if rec.Model != "model v2" {
			t.Fatalf("record model = %q", rec.Model)
		}
		if rec.SubmittedAt.IsZero() {
			t.Fatalf("record missing timestamp")
		}
	}
}

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue float64
	}{
		{name: "number", input: `0.87`, wantValid: true, wantValue: 0.87},
		{name: "integer", input: `1`, wantValid: true, wantValue: 1},
		{name: "numeric string", input: `"0.42"`, wantValid: true, wantValue: 0.42},
		{name: "negative", input: `-0.5`, wantValid: true, wantValue: -0.5},
		{name: "null", input: `null`},
		{name: "word string", input: `"high"`},
		{name: "nan string", input: `"NaN"`},
		{name: "infinity string", input: `"Inf"`},
		{name: "empty string", input: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Score
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if s.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", s.Valid, tt.wantValid)
			}
			if tt.wantValid && s.Value != tt.wantValue {
				t.Fatalf("value = %v, want %v", s.Value, tt.wantValue)
			}
		})
	}
}

func TestBatchDecodeSurvivesBadScores(t *testing.T) {
	payload := `{"model":"m1","predictions":[{"id":"1","y_pred":0.9},{"id":"2","y_pred":"bad"}]}`

	var batch Batch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(batch.Predictions) != 2 {
		t.Fatalf("predictions = %d, want 2", len(batch.Predictions))
	}
	if batch.Predictions[0].Score == nil || !batch.Predictions[0].Score.Valid {
		t.Fatalf("first score should be valid")
	}
	if batch.Predictions[1].Score == nil || batch.Predictions[1].Score.Valid {
		t.Fatalf("second score should decode but stay invalid")
	}
}
