package query

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-books-api/models"
)

// FeaturePage is the paginated feature-vector envelope.
type FeaturePage struct {
	Items []models.FeatureVector `json:"items"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
	Total int                    `json:"total"`
}

// TrainingPage is the paginated training-data envelope.
type TrainingPage struct {
	Items []models.TrainingRow `json:"items"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
	Total int                  `json:"total"`
}

// categoryIndex maps each distinct non-empty category of the snapshot to its
// position in the lexicographically sorted distinct list. The mapping is a
// pure function of the whole snapshot and is rebuilt on every call, so one
// snapshot always yields the same indices.
func (e *Engine) categoryIndex() map[string]int {
	seen := make(map[string]struct{})
	cats := make([]string, 0)
	for _, b := range e.ds.Records {
		if b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		cats = append(cats, b.Category)
	}
	sort.Strings(cats)

	index := make(map[string]int, len(cats))
	for i, c := range cats {
		index[c] = i
	}
	return index
}

// Features derives the per-record feature vectors for the whole snapshot.
func (e *Engine) Features() ([]models.FeatureVector, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	index := e.categoryIndex()
	out := make([]models.FeatureVector, 0, len(e.ds.Records))
	for _, b := range e.ds.Records {
		out = append(out, featureVector(b, index))
	}
	return out, nil
}

// FeaturesPage returns one page of feature vectors.
func (e *Engine) FeaturesPage(p Page) (*FeaturePage, error) {
	all, err := e.Features()
	if err != nil {
		return nil, err
	}
	items, total := paginate(all, p)
	return &FeaturePage{Items: items, Page: p.Page, Size: p.Size, Total: total}, nil
}

// TrainingData is the feature view plus the binary high-rating label.
func (e *Engine) TrainingData() ([]models.TrainingRow, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	index := e.categoryIndex()
	out := make([]models.TrainingRow, 0, len(e.ds.Records))
	for _, b := range e.ds.Records {
		row := models.TrainingRow{FeatureVector: featureVector(b, index)}
		if b.Rating >= 4 {
			row.TargetHighRating = 1
		}
		out = append(out, row)
	}
	return out, nil
}

// TrainingDataPage returns one page of training rows.
func (e *Engine) TrainingDataPage(p Page) (*TrainingPage, error) {
	all, err := e.TrainingData()
	if err != nil {
		return nil, err
	}
	items, total := paginate(all, p)
	return &TrainingPage{Items: items, Page: p.Page, Size: p.Size, Total: total}, nil
}

func featureVector(b models.BookRecord, index map[string]int) models.FeatureVector {
	catIdx := -1
	if b.Category != "" {
		if i, ok := index[b.Category]; ok {
			catIdx = i
		}
	}

	hasImage := 0
	if strings.TrimSpace(b.ImagePath) != "" {
		hasImage = 1
	}

	return models.FeatureVector{
		ID:              b.ID,
		Price:           b.Price,
		Rating:          b.Rating,
		CategoryIndex:   catIdx,
		TitleLength:     utf8.RuneCountInString(b.Title),
		TitleTokenCount: len(strings.Fields(b.Title)),
		HasImage:        hasImage,
	}
}
