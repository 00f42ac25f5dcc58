package query

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// UnknownCategory is the display value for records without a category.
const UnknownCategory = "unknown"

// Sort keys accepted by CategoryStats. Anything else silently falls back to
// the default; that leniency is intentional.
const (
	SortByBooks       = "books"
	SortByPriceMin    = "price_min"
	SortByPriceMax    = "price_max"
	SortByPriceMean   = "price_mean"
	SortByPriceMedian = "price_median"
)

var allowedStatsSorts = map[string]struct{}{
	SortByBooks:       {},
	SortByPriceMin:    {},
	SortByPriceMax:    {},
	SortByPriceMean:   {},
	SortByPriceMedian: {},
}

// CategoryStatsParams selects and orders the per-category groups.
type CategoryStatsParams struct {
	MinCount int
	Sort     string
	Order    string
}

// CategoryStat holds one category group. Price metrics are computed over the
// group's priced records only; a group with no priced records reports nil
// metrics rather than zeros.
type CategoryStat struct {
	Category    string   `json:"category"`
	Books       int      `json:"books"`
	PriceMin    *float64 `json:"price_min"`
	PriceMax    *float64 `json:"price_max"`
	PriceMean   *float64 `json:"price_mean"`
	PriceMedian *float64 `json:"price_median"`
}

// CategoryStatsResult is the category-stats response. TotalCategories counts
// groups after the min-count filter; TotalBooks sums distinct ids across all
// groups before it.
type CategoryStatsResult struct {
	TotalCategories int            `json:"total_categories"`
	TotalBooks      int            `json:"total_books"`
	MinCount        int            `json:"min_count"`
	SortedBy        string         `json:"sorted_by"`
	Order           string         `json:"order"`
	Items           []CategoryStat `json:"items"`
}

// PriceStats summarizes the present, non-null prices of a record set.
type PriceStats struct {
	Count  int      `json:"count"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
}

// RatingDistribution maps each integer bucket 0..5 to its record count and
// its share of all records, rounded to two decimals.
type RatingDistribution struct {
	Counts   map[string]int     `json:"counts"`
	Percents map[string]float64 `json:"percents"`
}

// OverviewResult is the collection-wide statistics response.
type OverviewResult struct {
	TotalBooks         int                `json:"total_books"`
	TotalCategories    int                `json:"total_categories"`
	Price              PriceStats         `json:"price"`
	RatingDistribution RatingDistribution `json:"rating_distribution"`
}

type categoryAccumulator struct {
	key    string
	ids    map[string]struct{}
	prices []float64
}

// CategoryStats groups all records by raw category value, computes
// per-group counts and price metrics, then filters and stable-sorts the
// materialized group list.
func (e *Engine) CategoryStats(params CategoryStatsParams) (*CategoryStatsResult, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	sortKey := params.Sort
	if _, ok := allowedStatsSorts[sortKey]; !ok {
		sortKey = SortByBooks
	}
	ascending := params.Order == "asc"

	groups := make(map[string]*categoryAccumulator)
	order := make([]string, 0)
	for _, b := range e.ds.Records {
		acc, ok := groups[b.Category]
		if !ok {
			acc = &categoryAccumulator{key: b.Category, ids: make(map[string]struct{})}
			groups[b.Category] = acc
			order = append(order, b.Category)
		}
		acc.ids[b.ID] = struct{}{}
		if hasPrice(b) {
			acc.prices = append(acc.prices, *b.Price)
		}
	}

	// Deterministic base order before the metric sort: category ascending,
	// with the empty-category group last.
	sort.SliceStable(order, func(i, j int) bool {
		if (order[i] == "") != (order[j] == "") {
			return order[j] == ""
		}
		return order[i] < order[j]
	})

	totalBooks := 0
	all := make([]CategoryStat, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		totalBooks += len(acc.ids)

		stat := CategoryStat{Category: key, Books: len(acc.ids)}
		if stat.Category == "" {
			stat.Category = UnknownCategory
		}
		if len(acc.prices) > 0 {
			mn, mx, mean := minMaxMean(acc.prices)
			med := median(acc.prices)
			stat.PriceMin, stat.PriceMax, stat.PriceMean, stat.PriceMedian = &mn, &mx, &mean, &med
		}
		all = append(all, stat)
	}

	items := make([]CategoryStat, 0, len(all))
	for _, stat := range all {
		if stat.Books >= params.MinCount {
			items = append(items, stat)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := statSortValue(items[i], sortKey), statSortValue(items[j], sortKey)
		// Groups without the sorted metric always go last, as in the
		// source system.
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		if ascending {
			return *a < *b
		}
		return *a > *b
	})

	orderLabel := "desc"
	if ascending {
		orderLabel = "asc"
	}
	return &CategoryStatsResult{
		TotalCategories: len(items),
		TotalBooks:      totalBooks,
		MinCount:        params.MinCount,
		SortedBy:        sortKey,
		Order:           orderLabel,
		Items:           items,
	}, nil
}

func statSortValue(s CategoryStat, key string) *float64 {
	switch key {
	case SortByPriceMin:
		return s.PriceMin
	case SortByPriceMax:
		return s.PriceMax
	case SortByPriceMean:
		return s.PriceMean
	case SortByPriceMedian:
		return s.PriceMedian
	default:
		v := float64(s.Books)
		return &v
	}
}

// Overview computes collection totals, overall price statistics, and the
// rating histogram.
func (e *Engine) Overview() (*OverviewResult, error) {
	if err := e.available(); err != nil {
		return nil, err
	}

	totalBooks := len(e.ds.Records)

	distinct := make(map[string]struct{})
	prices := make([]float64, 0, totalBooks)
	ratingCounts := make(map[string]int, 6)
	ratingPercents := make(map[string]float64, 6)
	for k := 0; k <= 5; k++ {
		ratingCounts[strconv.Itoa(k)] = 0
	}

	for _, b := range e.ds.Records {
		if c := strings.TrimSpace(b.Category); c != "" {
			distinct[c] = struct{}{}
		}
		if hasPrice(b) {
			prices = append(prices, *b.Price)
		}
		r := b.Rating
		if r < 0 {
			r = 0
		}
		if r > 5 {
			r = 5
		}
		ratingCounts[strconv.Itoa(r)]++
	}

	for k := 0; k <= 5; k++ {
		bucket := strconv.Itoa(k)
		if totalBooks == 0 {
			ratingPercents[bucket] = 0.0
			continue
		}
		ratingPercents[bucket] = round2(float64(ratingCounts[bucket]) / float64(totalBooks) * 100)
	}

	stats := PriceStats{Count: len(prices)}
	if len(prices) > 0 {
		mn, mx, mean := minMaxMean(prices)
		med := median(prices)
		stats.Min, stats.Max, stats.Mean, stats.Median = &mn, &mx, &mean, &med
	}

	return &OverviewResult{
		TotalBooks:      totalBooks,
		TotalCategories: len(distinct),
		Price:           stats,
		RatingDistribution: RatingDistribution{
			Counts:   ratingCounts,
			Percents: ratingPercents,
		},
	}, nil
}

func minMaxMean(values []float64) (mn, mx, mean float64) {
	mn, mx = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
		sum += v
	}
	return mn, mx, sum / float64(len(values))
}

// median returns the statistical median: the middle value, or the average of
// the two middle values for an even count.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
