// Package parser validates and normalizes raw scraped book fields.
package parser

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-books-api/models"
)

// ValidateScrapedBook ensures the crawler captured the required fields.
func ValidateScrapedBook(b *models.ScrapedBook) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.ProductURL) == "" {
		return fmt.Errorf("book missing product url for %s", b.Title)
	}
	if strings.TrimSpace(b.RawPrice) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	return nil
}

// NormalizePrice removes the currency symbol and surrounding whitespace,
// tolerating the mis-decoded pound sign the demo site serves.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â£", "")
	price = strings.TrimPrefix(price, "£")
	return strings.TrimSpace(price)
}

// RatingToNumeric converts the textual rating class word to 0..5.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

var availabilityCount = regexp.MustCompile(`(\d+)`)

// AvailabilityCount extracts the numeric stock count from availability text
// like "In stock (22 available)". Returns "" when no number is present.
func AvailabilityCount(text string) string {
	return availabilityCount.FindString(text)
}

// BookIDFromURL derives the catalog slug used as the record id:
// .../catalogue/a-light-in-the-attic_1000/index.html -> a-light-in-the-attic_1000.
func BookIDFromURL(productURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(productURL))
	if err != nil {
		return ""
	}
	p := parsed.Path
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if base == "index.html" {
		return path.Base(path.Dir(p))
	}
	return strings.TrimSuffix(base, ".html")
}
