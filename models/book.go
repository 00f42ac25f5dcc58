// Package models defines the record shapes shared across the pipeline and the API.
package models

import "time"

// BookRecord is one row of the silver dataset. Title and category are
// lowercase-normalized at cleaning time. Price and InStock are nullable:
// a nil pointer means the source value could not be coerced.
type BookRecord struct {
	ID         string   `json:"id" parquet:"id"`
	Title      string   `json:"title" parquet:"title"`
	Category   string   `json:"category" parquet:"category"`
	Price      *float64 `json:"price" parquet:"price,optional"`
	Rating     int      `json:"rating" parquet:"rating"`
	InStock    *int     `json:"instock" parquet:"instock,optional"`
	UPC        string   `json:"UPC" parquet:"UPC,optional"`
	ProductURL string   `json:"product_url" parquet:"product_url,optional"`
	ImageURL   string   `json:"image_url" parquet:"image_url,optional"`
	ImagePath  string   `json:"image_path" parquet:"image_path,optional"`
}

// ListItem is the column projection used by listing and search responses.
// UPC and stock counts are detail-only fields.
type ListItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Price      *float64 `json:"price"`
	Rating     int      `json:"rating"`
	ProductURL string   `json:"product_url"`
	ImageURL   string   `json:"image_url"`
	ImagePath  string   `json:"image_path"`
}

// ListView projects a record onto the list-response column subset.
func (b BookRecord) ListView() ListItem {
	return ListItem{
		ID:         b.ID,
		Title:      b.Title,
		Category:   b.Category,
		Price:      b.Price,
		Rating:     b.Rating,
		ProductURL: b.ProductURL,
		ImageURL:   b.ImageURL,
		ImagePath:  b.ImagePath,
	}
}

// ScrapedBook is one bronze row as captured by the crawler, before cleaning.
// RawPrice and InStock keep the site's original text.
type ScrapedBook struct {
	ID         string    `csv:"id" json:"id"`
	Title      string    `csv:"book_title" json:"book_title"`
	Category   string    `csv:"category" json:"category"`
	RawPrice   string    `csv:"raw_price" json:"raw_price"`
	Rating     int       `csv:"rating" json:"rating"`
	InStock    string    `csv:"instock" json:"instock"`
	UPC        string    `csv:"UPC" json:"UPC"`
	ProductURL string    `csv:"product_url" json:"product_url"`
	ImageURL   string    `csv:"image_url" json:"image_url"`
	ImagePath  string    `csv:"image_path" json:"image_path"`
	ScrapedAt  time.Time `csv:"scraped_at" json:"scraped_at"`
}

// ScrapeResult holds the overall outcome of one crawl.
type ScrapeResult struct {
	Books        []*ScrapedBook
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
