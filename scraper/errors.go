package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error kinds used as metric labels and for retry decisions.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindOther       = "other"
)

// CrawlError classifies a failed request.
type CrawlError struct {
	Kind string
	Err  error
}

func (e CrawlError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e CrawlError) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error and status code onto a CrawlError.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CrawlError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CrawlError{Kind: KindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CrawlError{Kind: KindConnection, Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return CrawlError{Kind: KindForbidden, Err: wrapped}
		case http.StatusNotFound:
			return CrawlError{Kind: KindNotFound, Err: wrapped}
		case http.StatusTooManyRequests:
			return CrawlError{Kind: KindRateLimited, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return CrawlError{Kind: KindOther, Err: err}
}

func errorTypeLabel(err error) string {
	var crawl CrawlError
	if errors.As(err, &crawl) {
		return crawl.Kind
	}
	return KindOther
}
