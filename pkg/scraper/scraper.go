package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/metrics"
	"github.com/xhad/seek/pkg/processor"
)

// MaxDocuments is the hard cap on the corpus size of one crawl.
const MaxDocuments = 10

type ScraperConfig struct {
	SearchURL      string // search endpoint, queried as <SearchURL>?search=<query>
	ResolveBase    string // base URL for relative result links
	ResultSelector string // selector for result anchors on the search page
	UserAgent      string
	SearchTimeout  time.Duration
	PageTimeout    time.Duration
	MaxDocuments   int
	Workers        int
	RateLimit      float64 // page requests per second, negative for unlimited
	MaxBodyBytes   int64
	OnProgress     func(url string) // called once per page fetch, possibly concurrently
}

type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	pool    *ants.Pool
	base    *url.URL
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.SearchURL == "" {
		config.SearchURL = "https://en.wikipedia.org/w/index.php"
	}
	if config.ResolveBase == "" {
		config.ResolveBase = "https://en.wikipedia.org/"
	}
	if config.ResultSelector == "" {
		config.ResultSelector = "li.mw-search-result a"
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0"
	}
	if config.SearchTimeout == 0 {
		config.SearchTimeout = 10 * time.Second
	}
	if config.PageTimeout == 0 {
		config.PageTimeout = 5 * time.Second
	}
	if config.MaxDocuments <= 0 || config.MaxDocuments > MaxDocuments {
		config.MaxDocuments = MaxDocuments
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 2 << 20
	}

	base, err := url.Parse(config.ResolveBase)
	if err != nil {
		return nil, fmt.Errorf("invalid resolve base %q: %w", config.ResolveBase, err)
	}
	if _, err := url.Parse(config.SearchURL); err != nil {
		return nil, fmt.Errorf("invalid search url %q: %w", config.SearchURL, err)
	}

	limit := rate.Limit(config.RateLimit)
	if config.RateLimit < 0 {
		limit = rate.Inf
	}

	pool, err := ants.NewPool(config.Workers, ants.WithPanicHandler(func(p any) {
		zap.L().Error("Page fetch panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Scraper{
		config:  config,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, config.Workers),
		pool:    pool,
		base:    base,
	}, nil
}

// New returns a Scraper for English Wikipedia with default limits.
func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

// Close releases the worker pool.
func (s *Scraper) Close() {
	s.pool.Release()
}

// Crawl searches for query and fetches up to MaxDocuments result pages, in
// search-rank order. A page that cannot be fetched is replaced by
// models.ErrorDocument; a failed search yields an empty corpus. The only
// error returned is the context's.
func (s *Scraper) Crawl(ctx context.Context, query string) ([]models.Document, error) {
	log := logging.FromContext(ctx)

	links, err := s.search(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("Search request failed, continuing with empty corpus",
			zap.String("query", query),
			zap.Error(err),
		)
		return []models.Document{}, nil
	}

	docs := make([]models.Document, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		i, link := i, link
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			docs[i] = s.page(ctx, link)
		})
		if err != nil {
			wg.Done()
			log.Warn("Failed to schedule page fetch", zap.String("url", link), zap.Error(err))
			docs[i] = models.ErrorDocument(link)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A task that panicked leaves its slot empty.
	for i := range docs {
		if docs[i].URL == "" {
			docs[i] = models.ErrorDocument(links[i])
		}
	}

	log.Debug("Crawl finished", zap.String("query", query), zap.Int("documents", len(docs)))
	return docs, nil
}

// searchURL percent-encodes query (spaces as %20) into the search endpoint.
func (s *Scraper) searchURL(query string) string {
	sep := "?"
	if strings.Contains(s.config.SearchURL, "?") {
		sep = "&"
	}
	return s.config.SearchURL + sep + "search=" + strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
}

// search returns the resolved, de-duplicated result links in rank order.
func (s *Scraper) search(ctx context.Context, query string) ([]string, error) {
	doc, err := s.get(ctx, s.searchURL(query), s.config.SearchTimeout)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, s.config.MaxDocuments)
	seen := make(map[string]bool)

	doc.Find(s.config.ResultSelector).EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		href, exists := selection.Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		absoluteURL := s.base.ResolveReference(ref)
		absoluteURL.Fragment = ""
		if absoluteURL.Scheme != "http" && absoluteURL.Scheme != "https" {
			return true
		}

		link := absoluteURL.String()
		if seen[link] {
			return true
		}
		seen[link] = true
		links = append(links, link)

		return len(links) < s.config.MaxDocuments
	})

	return links, nil
}

// page never fails: errors become a placeholder document.
func (s *Scraper) page(ctx context.Context, link string) models.Document {
	if s.config.OnProgress != nil {
		s.config.OnProgress(link)
	}

	doc, err := s.fetchPage(ctx, link)
	if err != nil {
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		logging.FromContext(ctx).Warn("Page fetch failed, using placeholder",
			zap.String("url", link),
			zap.Error(err),
		)
		return models.ErrorDocument(link)
	}
	metrics.PageFetchesTotal.WithLabelValues("ok").Inc()
	return doc
}

func (s *Scraper) fetchPage(ctx context.Context, link string) (models.Document, error) {
	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return models.Document{}, err
	}

	doc, err := s.get(ctx, link, s.config.PageTimeout)
	if err != nil {
		return models.Document{}, err
	}

	title := processor.CleanText(doc.Find("title").First().Text())
	if title == "" {
		title = models.NoTitle
	}

	paragraphs := make([]string, 0, 2)
	doc.Find("p").EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		paragraphs = append(paragraphs, processor.CleanText(selection.Text()))
		return len(paragraphs) < 2
	})

	return models.Document{
		Title:   title,
		Content: strings.TrimSpace(strings.Join(paragraphs, " ")),
		URL:     link,
	}, nil
}

// get fetches and parses one HTML page within timeout.
func (s *Scraper) get(ctx context.Context, link string, timeout time.Duration) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, link)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", link, err)
	}
	return doc, nil
}
