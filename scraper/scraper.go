package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-patch-report/config"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Getter issues one GET and returns the response body.
type Getter interface {
	Get(ctx context.Context, collection, url string) ([]byte, error)
}

// Fetcher issues the report's requests through one colly collector. Every
// request runs on a clone, and clones share the parent's HTTP backend, so
// all fetches of a run reuse one connection pool.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	transport http.RoundTripper
	cache     *lru.Cache[string, []byte]
	Metrics   *Metrics

	requestCount int64
	errorCount   int64
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	hosts := cfg.Hosts()
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no valid hosts configured")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(hosts...),
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Parallelism * 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	collector.WithTransport(transport)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		transport: transport,
		Metrics:   NewMetrics(),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create response cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// WithTransport replaces the round tripper shared by all requests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
	f.collector.WithTransport(rt)
}

// Close releases the idle connections of the shared pool. The fetcher stays
// usable; later requests dial again.
func (f *Fetcher) Close() {
	if ci, ok := f.transport.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

// Get fetches url and returns the raw body. Any transport failure or non-2xx
// response is returned as a *FetchError.
func (f *Fetcher) Get(ctx context.Context, collection, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Collection: collection, URL: url, Err: err}
	}
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			f.Metrics.IncCacheHit()
			slog.Debug("cache hit", slog.String("collection", collection), slog.String("url", url))
			return body, nil
		}
	}

	var (
		body   []byte
		status int
	)
	c := f.collector.Clone()

	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		current := atomic.AddInt64(&f.requestCount, 1)
		f.Metrics.IncRequest(collection)
		slog.Debug("request",
			slog.Int64("requests", current),
			slog.String("collection", collection),
			slog.String("url", r.URL.String()),
		)
	})

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.Metrics.ObserveDuration(time.Since(start))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, f.fail(collection, url, err, status)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, f.fail(collection, url, nil, status)
	}

	if f.cache != nil {
		f.cache.Add(url, body)
	}
	return body, nil
}

// Stats reports the number of requests issued and failed so far.
func (f *Fetcher) Stats() (requests, errors int) {
	return int(atomic.LoadInt64(&f.requestCount)), int(atomic.LoadInt64(&f.errorCount))
}

func (f *Fetcher) fail(collection, url string, err error, status int) error {
	atomic.AddInt64(&f.errorCount, 1)
	classified := classifyError(err, status)
	if classified == nil {
		classified = fmt.Errorf("request failed")
	}
	category := errorTypeLabel(classified)
	f.Metrics.IncError(category)

	slog.Error("request error",
		slog.String("collection", collection),
		slog.String("url", url),
		slog.String("category", category),
		slog.Any("error", classified),
	)
	return &FetchError{Collection: collection, URL: url, Err: classified}
}
