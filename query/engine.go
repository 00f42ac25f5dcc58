// Package query implements the in-memory tabular engine over one immutable
// dataset snapshot: filtering, substring search, pagination, stable multi-key
// sorting, and the aggregate statistics surfaces.
//
// All sorted operations share the same deterministic tie-break: title then id,
// ascending. That keeps pagination reproducible across identical queries even
// when titles, prices, or ratings collide.
package query

import (
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/go-books-api/dataset"
	"github.com/aluiziolira/go-books-api/models"
)

// Default pagination values shared with the transport layer.
const (
	DefaultPageSize     = 20
	DefaultTopRatedMin  = 4
	DefaultTopRatedSize = 10
)

// Engine answers queries against a single snapshot. It holds no mutable
// state; one engine per request is the expected usage.
type Engine struct {
	ds *dataset.Dataset
}

// NewEngine wraps a snapshot. A nil snapshot is allowed; operations then
// report ErrDataUnavailable.
func NewEngine(ds *dataset.Dataset) *Engine {
	return &Engine{ds: ds}
}

// Page is the shared pagination request: 1-based page, items per page.
type Page struct {
	Page int
	Size int
}

// PagedList is the standard list-shaped response envelope. Total counts the
// filtered sequence before slicing.
type PagedList struct {
	Items []models.ListItem `json:"items"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Total int               `json:"total"`
}

// PriceRangeResult echoes the applied bounds alongside the page of items.
type PriceRangeResult struct {
	Filters PriceRangeFilters `json:"filters"`
	Items   []models.ListItem `json:"items"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
	Total   int               `json:"total"`
}

// PriceRangeFilters reports the bounds a price-range query ran with. Nil
// means the bound was not supplied.
type PriceRangeFilters struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// TopRatedResult is not paginated: it is truncated to a limit after sorting,
// with Total still counting every qualifying record.
type TopRatedResult struct {
	Filters TopRatedFilters   `json:"filters"`
	Items   []models.ListItem `json:"items"`
	Total   int               `json:"total"`
}

// TopRatedFilters echoes the applied top-rated parameters.
type TopRatedFilters struct {
	MinRating int    `json:"min_rating"`
	Limit     int    `json:"limit"`
	Category  string `json:"category,omitempty"`
}

// CategoryList is the distinct-categories response.
type CategoryList struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func (e *Engine) available() error {
	if e.ds.Empty() {
		return ErrDataUnavailable
	}
	return nil
}

// List returns books optionally filtered by a case-insensitive title
// substring, sorted by (title, id) ascending.
func (e *Engine) List(q string, p Page) (*PagedList, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	matched := filterRecords(e.ds.Records, func(b models.BookRecord) bool {
		return containsFold(b.Title, q)
	})
	sortByTitleID(matched)

	items, total := paginate(projectList(matched), p)
	return &PagedList{Items: items, Page: p.Page, Size: p.Size, Total: total}, nil
}

// Detail returns the full field set of the first record matching id.
// Insertion order decides ties; ids are expected unique but not assumed so.
func (e *Engine) Detail(id string) (*models.BookRecord, error) {
	if err := e.available(); err != nil {
		return nil, err
	}
	for i := range e.ds.Records {
		if e.ds.Records[i].ID == id {
			rec := e.ds.Records[i]
			return &rec, nil
		}
	}
	return nil, NotFoundError{ID: id}
}

// Search filters by title and/or category substrings (case-insensitive,
// combined with AND), sorted like List.
func (e *Engine) Search(title, category string, p Page) (*PagedList, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	matched := filterRecords(e.ds.Records, func(b models.BookRecord) bool {
		return containsFold(b.Title, title) && containsFold(b.Category, category)
	})
	sortByTitleID(matched)

	items, total := paginate(projectList(matched), p)
	return &PagedList{Items: items, Page: p.Page, Size: p.Size, Total: total}, nil
}

// Categories returns the distinct non-empty category values, trimmed and
// lexicographically sorted.
func (e *Engine) Categories() (*CategoryList, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	items := make([]string, 0)
	for _, b := range e.ds.Records {
		c := strings.TrimSpace(b.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		items = append(items, c)
	}
	sort.Strings(items)

	return &CategoryList{Items: items, Total: len(items)}, nil
}

// PriceRange returns books whose price is present and within [min, max],
// both bounds inclusive and optional. min > max is a rejected request.
// Sorted by (price, title, id) ascending.
func (e *Engine) PriceRange(min, max *float64, p Page) (*PriceRangeResult, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	lo := math.Inf(-1)
	if min != nil {
		lo = *min
	}
	hi := math.Inf(1)
	if max != nil {
		hi = *max
	}
	if lo > hi {
		return nil, invalidArgf("'min' cannot be greater than 'max'")
	}

	matched := filterRecords(e.ds.Records, func(b models.BookRecord) bool {
		return hasPrice(b) && *b.Price >= lo && *b.Price <= hi
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if *matched[i].Price != *matched[j].Price {
			return *matched[i].Price < *matched[j].Price
		}
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	items, total := paginate(projectList(matched), p)
	return &PriceRangeResult{
		Filters: PriceRangeFilters{Min: min, Max: max},
		Items:   items,
		Page:    p.Page,
		Size:    p.Size,
		Total:   total,
	}, nil
}

// TopRated returns books with rating >= minRating, optionally filtered by a
// category substring, sorted by (rating desc, title, id) and truncated to
// limit after sorting. Total reports the pre-truncation count.
func (e *Engine) TopRated(minRating, limit int, category string) (*TopRatedResult, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	matched := filterRecords(e.ds.Records, func(b models.BookRecord) bool {
		return b.Rating >= minRating && containsFold(b.Category, category)
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Rating != matched[j].Rating {
			return matched[i].Rating > matched[j].Rating
		}
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if limit < 0 {
		limit = 0
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}

	return &TopRatedResult{
		Filters: TopRatedFilters{MinRating: minRating, Limit: limit, Category: category},
		Items:   projectList(matched),
		Total:   total,
	}, nil
}

func filterRecords(records []models.BookRecord, keep func(models.BookRecord) bool) []models.BookRecord {
	out := make([]models.BookRecord, 0, len(records))
	for _, b := range records {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// containsFold is a case-insensitive substring match; an empty needle
// matches everything.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortByTitleID(records []models.BookRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Title != records[j].Title {
			return records[i].Title < records[j].Title
		}
		return records[i].ID < records[j].ID
	})
}

// hasPrice reports a usable price: present and not NaN.
func hasPrice(b models.BookRecord) bool {
	return b.Price != nil && !math.IsNaN(*b.Price)
}

func projectList(records []models.BookRecord) []models.ListItem {
	items := make([]models.ListItem, 0, len(records))
	for _, b := range records {
		items = append(items, b.ListView())
	}
	return items
}

// paginate slices [start, start+size) out of items with
// start = max((page-1)*size, 0), returning the page and the pre-slice total.
func paginate[T any](items []T, p Page) ([]T, int) {
	total := len(items)
	if p.Size <= 0 {
		return []T{}, total
	}
	start := (p.Page - 1) * p.Size
	if start < 0 {
		start = 0
	}
	if start >= total {
		return []T{}, total
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	return items[start:end], total
}
