// Package feeds finds RSS feeds and news sections on company websites.
package feeds

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

const (
	UserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultPageTimeout  = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultInterval     = 2 * time.Second
	maxFeedBytes        = 4 << 20
)

var probePaths = []string{
	"/feed", "/rss", "/blog/feed", "/news/feed", "/feed/", "/rss/",
	"/atom.xml", "/rss.xml", "/feed.xml",
}

var newsKeywords = []string{
	"news", "press", "media", "blog", "press-release", "newsroom",
	"announcements", "updates", "press-releases",
}

var (
	feedTypeRe = regexp.MustCompile(`(?i)application/(rss|atom)\+xml`)
	datePathRe = regexp.MustCompile(`/\d{4}/`)
)

type Config struct {
	HTTPClient   *http.Client
	PageTimeout  time.Duration
	ProbeTimeout time.Duration
	Limiter      *rate.Limiter
}

type Result struct {
	RSS  string
	News string
}

type Summary struct {
	Checked int
	Skipped int
	Failed  int
	RSS     int
	News    int
}

type Checker struct {
	cfg Config
}

func NewChecker(cfg Config) *Checker {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
	}
	return &Checker{cfg: cfg}
}

// Run checks every roster company with a webpage and records what it finds
// in the RSS Feed URL and News Section URL columns.
func (c *Checker) Run(ctx context.Context, ros *roster.Roster) (Summary, error) {
	var sum Summary
	ros.Table.EnsureColumn(roster.ColRSSFeed)
	ros.Table.EnsureColumn(roster.ColNewsSection)
	for i, row := range ros.Table.Rows {
		name := row.Get(roster.ColCompany)
		webpage := row.Get(roster.ColWebpage)
		if webpage == "" {
			log.Printf("feeds skip index=%d/%d company=%q reason=no_webpage", i+1, len(ros.Table.Rows), name)
			sum.Skipped++
			continue
		}
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return sum, err
		}
		sum.Checked++
		res, err := c.Check(ctx, webpage)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Printf("feeds check_failed company=%q url=%s err=%q", name, webpage, err.Error())
			sum.Failed++
		}
		row[roster.ColRSSFeed] = res.RSS
		row[roster.ColNewsSection] = res.News
		if res.RSS != "" {
			sum.RSS++
		}
		if res.News != "" {
			sum.News++
		}
		log.Printf("feeds checked company=%q rss=%q news=%q", name, res.RSS, res.News)
	}
	return sum, nil
}

// Check fetches the home page and looks for a feed and a news section.
func (c *Checker) Check(ctx context.Context, webpage string) (Result, error) {
	base, err := url.Parse(sheet.NormalizeURL(webpage))
	if err != nil || base.Host == "" {
		return Result{}, fmt.Errorf("invalid webpage %q", webpage)
	}
	doc, err := c.fetch(ctx, base.String())
	if err != nil {
		return Result{}, err
	}
	return Result{
		RSS:  c.findFeed(ctx, base, doc),
		News: NewsSection(doc, base),
	}, nil
}

func (c *Checker) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// findFeed verifies declared feeds first and falls back to probing the
// usual paths. When nothing parses the first candidate is kept.
func (c *Checker) findFeed(ctx context.Context, base *url.URL, doc *goquery.Document) string {
	declared := FeedLinks(doc, base)
	for _, u := range declared {
		if c.verify(ctx, u) {
			return u
		}
	}
	candidates := append([]string{}, declared...)
	for _, u := range c.probe(ctx, base) {
		if c.verify(ctx, u) {
			return u
		}
		candidates = append(candidates, u)
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// FeedLinks returns absolute hrefs of RSS and Atom link tags.
func FeedLinks(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if !feedTypeRe.MatchString(s.AttrOr("type", "")) {
			return
		}
		if u, ok := resolve(base, s.AttrOr("href", "")); ok {
			out = append(out, u.String())
		}
	})
	return out
}

func (c *Checker) probe(ctx context.Context, base *url.URL) []string {
	root := base.Scheme + "://" + base.Host
	var out []string
	for _, p := range probePaths {
		u := root + p
		pctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		req, err := http.NewRequestWithContext(pctx, http.MethodHead, u, nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("User-Agent", UserAgent)
		resp, err := c.cfg.HTTPClient.Do(req)
		cancel()
		if err != nil {
			continue
		}
		resp.Body.Close()
		ct := strings.ToLower(resp.Header.Get("Content-Type"))
		if resp.StatusCode == http.StatusOK && (strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")) {
			out = append(out, u)
		}
	}
	return out
}

func (c *Checker) verify(ctx context.Context, feedURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		log.Printf("feeds verify_failed url=%s err=%q", feedURL, err.Error())
		return false
	}
	log.Printf("feeds verified url=%s type=%s items=%d", feedURL, feed.FeedType, len(feed.Items))
	return true
}

// NewsSection picks the shortest same-host link whose href or text mentions
// news, skipping date-based article paths.
func NewsSection(doc *goquery.Document, base *url.URL) string {
	var found []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if !mentionsNews(strings.ToLower(href)) && !mentionsNews(text) {
			return
		}
		u, ok := resolve(base, href)
		if !ok || u.Host != base.Host {
			return
		}
		full := u.String()
		if datePathRe.MatchString(full) {
			return
		}
		found = append(found, full)
	})
	if len(found) == 0 {
		return ""
	}
	sort.SliceStable(found, func(i, j int) bool { return len(found[i]) < len(found[j]) })
	return found[0]
}

func mentionsNews(s string) bool {
	for _, k := range newsKeywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}
