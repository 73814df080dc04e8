// Package sitemap extracts page URLs from XML sitemaps. Sitemap index
// files are followed to their child sitemaps, bounded by a fixed
// nesting depth.
package sitemap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/goindexer/internal/logger"
)

const (
	// defaultUserAgent identifies sitemap fetches to the origin server.
	defaultUserAgent = "goindexer/1.0"

	// maxIndexDepth bounds recursion through nested sitemap index
	// files: the root document plus two levels of children.
	maxIndexDepth = 3

	// defaultTimeout bounds each sitemap fetch.
	defaultTimeout = 30 * time.Second
)

// URL is one page entry extracted from a sitemap.
type URL struct {
	// Loc is the page URL.
	Loc string
	// LastMod is the raw lastmod value, empty when the sitemap does
	// not provide one.
	LastMod string
}

// Fetcher downloads sitemaps and collects their page URLs.
type Fetcher struct {
	userAgent string
	timeout   time.Duration
	logger    logger.Interface
}

// Params configures a Fetcher. All fields are optional.
type Params struct {
	UserAgent string
	Timeout   time.Duration
	Logger    logger.Interface
}

// NewFetcher creates a Fetcher.
func NewFetcher(p Params) *Fetcher {
	if p.UserAgent == "" {
		p.UserAgent = defaultUserAgent
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}
	return &Fetcher{
		userAgent: p.UserAgent,
		timeout:   p.Timeout,
		logger:    p.Logger,
	}
}

// Fetch downloads the sitemap at sitemapURL and returns its page URLs
// in document order. Index files are followed to their children; a
// child that cannot be fetched is logged and skipped, while an
// unreachable root sitemap is an error.
func (f *Fetcher) Fetch(ctx context.Context, sitemapURL string) ([]URL, error) {
	var urls []URL

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.MaxDepth(maxIndexDepth),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(f.userAgent),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnXML("//urlset/url", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.ChildText("loc"))
		if loc == "" {
			return
		}
		urls = append(urls, URL{
			Loc:     loc,
			LastMod: strings.TrimSpace(e.ChildText("lastmod")),
		})
	})

	c.OnXML("//sitemapindex/sitemap/loc", func(e *colly.XMLElement) {
		child := strings.TrimSpace(e.Text)
		if child == "" {
			return
		}
		f.logger.Debug("Following child sitemap", "url", child)
		if err := e.Request.Visit(child); err != nil {
			f.logger.Warn("Skipping child sitemap", "url", child, "error", err)
		}
	})

	if err := c.Visit(sitemapURL); err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}

	f.logger.Info("Fetched sitemap", "url", sitemapURL, "urls", len(urls))
	return urls, nil
}
