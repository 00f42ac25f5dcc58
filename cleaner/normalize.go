// Package cleaner turns the bronze crawl output into the canonical silver
// table consumed by the API: normalized text, coerced numerics, stable
// column order, CSV plus parquet output.
package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9 _-]+`)
	multiSpace = regexp.MustCompile(`\s+`)
	nonNumeric = regexp.MustCompile(`[^\d,.\-]`)
)

// NormalizeText lowercases, folds accents to ASCII, strips stray
// punctuation, and compacts whitespace. Empty input stays empty.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = foldASCII(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// foldASCII decomposes accented characters and drops everything outside
// ASCII, so "Café" becomes "Cafe".
func foldASCII(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CoercePrice parses price text like "£51.77", "R$ 1.234,56", or "Â£51,77"
// into a float, deciding which separator is decimal by position. Returns nil
// when nothing parseable remains.
func CoercePrice(raw string) *float64 {
	s := nonNumeric.ReplaceAllString(raw, "")
	if s == "" {
		return nil
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && !hasDot:
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma && hasDot:
		// The rightmost separator is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ClampRating coerces a rating onto the 0..5 scale.
func ClampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}
