// Package scraper crawls the book catalog and streams bronze records into
// the pipeline. Listing pages are walked for product links; the records
// themselves are extracted from product detail pages, which carry the UPC
// and stock information the listings omit.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-books-api/config"
	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
	"github.com/aluiziolira/go-books-api/pipeline"
)

// Scraper wraps the colly collector and retry logic for the catalog crawl.
type Scraper struct {
	cfg       config.ScraperConfig
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg config.ScraperConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(collector, cfg, s.Metrics)
	return s, nil
}

// Run starts the crawl and streams items through the pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx, p)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	if err := s.collector.Visit(s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	s.collector.Wait()
	s.retry.Stop()

	result := &models.ScrapeResult{
		StartTime:    start,
		EndTime:      time.Now(),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)),
	}

	if metrics := p.GetMetrics(); metrics != nil {
		if processed, ok := metrics["processed_books"].(int64); ok {
			result.TotalCount = int(processed)
		}
	}

	return result, nil
}

func (s *Scraper) configureHandlers(ctx context.Context, p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			if s.Metrics != nil {
				s.Metrics.IncRequest("started")
			}
			if current%50 == 0 {
				slog.Debug("scraper request progress",
					slog.Int64("requests", current),
					slog.Int64("pages", atomic.LoadInt64(&s.pageCount)),
					slog.String("url", r.URL.String()),
				)
			}
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if r.StatusCode >= http.StatusBadRequest {
				slog.Error("non-200 response",
					slog.Int("status", r.StatusCode),
					slog.String("url", r.Request.URL.String()),
				)
			}
			if s.Metrics != nil {
				if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
					s.Metrics.ObserveDuration(time.Since(start))
				}
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			classified := classifyError(err, statusCode)
			category := errorTypeLabel(classified)

			s.mu.Lock()
			s.errorsByType[category]++
			s.mu.Unlock()

			failedURL := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				failedURL = r.Request.URL.String()
			}
			slog.Error("request error",
				slog.String("url", failedURL),
				slog.String("category", category),
				slog.Any("error", err),
			)
			if s.Metrics != nil {
				s.Metrics.IncError(category)
			}

			if !s.retry.Schedule(failedURL) {
				s.mu.Lock()
				s.failedURLs = append(s.failedURLs, failedURL)
				s.mu.Unlock()
			}
		})

		// Listing pages: queue every product link.
		s.collector.OnHTML("article.product_pod h3 a", func(e *colly.HTMLElement) {
			if ctx.Err() != nil {
				return
			}
			href := e.Attr("href")
			if href == "" {
				return
			}
			s.collector.Visit(e.Request.AbsoluteURL(href))
		})

		// Product pages: extract the bronze record.
		s.collector.OnHTML("article.product_page", func(e *colly.HTMLElement) {
			book := extractProduct(e)
			if book == nil {
				return
			}
			if s.Metrics != nil {
				s.Metrics.IncItems()
			}
			if err := p.Process([]*models.ScrapedBook{book}); err != nil && err != pipeline.ErrPipelineClosed {
				slog.Error("pipeline process error", slog.Any("error", err))
			}
		})

		s.collector.OnHTML("li.next a", func(e *colly.HTMLElement) {
			currentPage := atomic.AddInt64(&s.pageCount, 1)
			if currentPage >= int64(s.cfg.MaxPages) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			link := e.Attr("href")
			s.collector.Visit(e.Request.AbsoluteURL(link))
		})
	})
}

// extractProduct reads one bronze record off a product detail page. The
// breadcrumb supplies the category; the product table supplies UPC and
// availability.
func extractProduct(e *colly.HTMLElement) *models.ScrapedBook {
	title := strings.TrimSpace(e.ChildText("div.product_main h1"))
	if title == "" {
		return nil
	}

	productURL := e.Request.URL.String()
	rawPrice := strings.TrimSpace(e.ChildText("div.product_main p.price_color"))

	ratingClass := e.ChildAttr("div.product_main p.star-rating", "class")
	rating := 0
	if parts := strings.Fields(ratingClass); len(parts) > 1 {
		rating = parser.RatingToNumeric(parts[1])
	}

	var upc, availability string
	e.ForEach("table.table-striped tr", func(_ int, row *colly.HTMLElement) {
		header := strings.TrimSpace(row.ChildText("th"))
		value := strings.TrimSpace(row.ChildText("td"))
		switch header {
		case "UPC":
			upc = value
		case "Availability":
			availability = value
		}
	})

	category := strings.TrimSpace(e.ChildText("ul.breadcrumb li:nth-child(3) a"))

	imageURL := ""
	if src := e.ChildAttr("#product_gallery img", "src"); src != "" {
		imageURL = e.Request.AbsoluteURL(src)
	}

	return &models.ScrapedBook{
		ID:         parser.BookIDFromURL(productURL),
		Title:      title,
		Category:   category,
		RawPrice:   rawPrice,
		Rating:     rating,
		InStock:    availability,
		UPC:        upc,
		ProductURL: productURL,
		ImageURL:   imageURL,
		ScrapedAt:  time.Now(),
	}
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

type retryManager struct {
	collector *colly.Collector
	cfg       config.ScraperConfig
	metrics   *Metrics
	ctx       context.Context

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	totalRetries int
	stopped      bool
}

func newRetryManager(collector *colly.Collector, cfg config.ScraperConfig, metrics *Metrics) *retryManager {
	return &retryManager{
		collector: collector,
		cfg:       cfg,
		attempts:  make(map[string]int),
		timers:    make(map[string]*time.Timer),
		metrics:   metrics,
		ctx:       context.Background(),
	}
}

// SetContext attaches the run context so pending retries stop on cancel.
func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx != nil {
		rm.ctx = ctx
	}
}

// Schedule queues a retry for url with exponential backoff. Returns false
// when the attempt budget is exhausted or the manager is stopped.
func (rm *retryManager) Schedule(url string) bool {
	if rm.cfg.MaxRetries == 0 || url == "" {
		return false
	}

	rm.mu.Lock()

	if rm.stopped || (rm.ctx != nil && rm.ctx.Err() != nil) {
		rm.mu.Unlock()
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		rm.mu.Unlock()
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	if rm.metrics != nil {
		rm.metrics.IncRetries()
	}

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.timers[url] = time.AfterFunc(delay, func() {
		rm.fireRetry(url)
	})
	rm.mu.Unlock()
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) fireRetry(url string) {
	rm.mu.Lock()
	if rm.stopped || (rm.ctx != nil && rm.ctx.Err() != nil) {
		rm.mu.Unlock()
		return
	}
	delete(rm.timers, url)
	rm.mu.Unlock()

	if err := rm.collector.Visit(url); err != nil {
		slog.Debug("retry visit failed", slog.String("url", url), slog.Any("error", err))
	}
}

// Stop cancels all pending retry timers.
func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.stopped = true
	for url, timer := range rm.timers {
		timer.Stop()
		delete(rm.timers, url)
	}
}

// TotalRetries reports how many retries were scheduled over the run.
func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}
