// Package digest collects a trailing window of company news in one query
// and merges it into the digest workbook.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/dedup"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/isoweek"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/matcher"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

const (
	ColCompany        = "Company"
	ColCompanyMatched = "Company matched"
	ColPublishingDate = "Publishing Date"
	ColHeadline       = "Headline"
	ColDescription    = "Description"
	ColCategory       = "Category"
	ColSourceCompany  = "Source URL (company)"
	ColSourceOther    = "Source URL (other)"
	ColWeek           = "Week"
	ColRunID          = "Run ID"
	ColID             = "ID"
)

var Columns = []string{
	ColCompany, ColCompanyMatched, ColPublishingDate, ColHeadline, ColDescription,
	ColCategory, ColSourceCompany, ColSourceOther, ColWeek, ColRunID,
}

var urlColumns = []string{ColSourceCompany, ColSourceOther}

const (
	DefaultDays          = 7
	DefaultMaxItems      = 10
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimitWait = 30 * time.Second
)

type Config struct {
	Caller        llm.Caller
	RosterPath    string
	DigestPath    string
	Days          int
	MaxItems      int
	Timeout       time.Duration
	RateLimitWait time.Duration
	// Matcher defaults to the percent metric at 85.
	Matcher *matcher.Matcher
	Now     func() time.Time
	Sleep   func(context.Context, time.Duration) error
	RunID   string
}

// Entry is one accepted item after name reconciliation.
type Entry struct {
	newsitem.Item
	Matched       string
	CompanyURL    string
	OtherURL      string
	Week          string
	NewlyProposed bool
	// Duplicate is set when the URL is already in the digest workbook.
	Duplicate bool
}

type Report struct {
	RunID        string
	Week         isoweek.Week
	From         time.Time
	To           time.Time
	Excluded     int
	Received     int
	Rejected     []newsitem.Rejection
	Entries      []Entry
	Appended     int
	Duplicates   int
	NewCompanies []string
	RosterSize   int
}

// Published returns the entries that were new to the digest workbook.
func (r Report) Published() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if !e.Duplicate {
			out = append(out, e)
		}
	}
	return out
}

// Categories counts published entries per category.
func (r Report) Categories() map[string]int {
	out := map[string]int{}
	for _, e := range r.Published() {
		out[e.Category]++
	}
	return out
}

type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.Days <= 0 {
		cfg.Days = DefaultDays
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = DefaultRateLimitWait
	}
	if cfg.Matcher == nil {
		cfg.Matcher = matcher.NewPercent()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = llm.SleepCtx
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Generator{cfg: cfg}
}

// Run performs one digest pass. Soft upstream and parse failures produce a
// report with no entries and leave both workbooks untouched.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	now := g.cfg.Now()
	rep := Report{
		RunID: g.cfg.RunID,
		Week:  isoweek.Of(now),
		From:  now.AddDate(0, 0, -g.cfg.Days),
		To:    now,
	}

	existing, err := loadDigest(g.cfg.DigestPath)
	if err != nil {
		return rep, err
	}
	exclude := WeekURLs(existing, rep.Week.String())
	rep.Excluded = len(exclude)
	if len(exclude) > 0 {
		log.Printf("digest excluding_urls week=%s count=%d", rep.Week, len(exclude))
	}

	text, err := g.complete(ctx, BuildPrompt(rep.From, rep.To, g.cfg.MaxItems, exclude))
	if err != nil {
		if errors.Is(err, llm.ErrUnauthorized) || ctx.Err() != nil {
			return rep, err
		}
		log.Printf("digest query_failed class=%s err=%q", llm.Classify(err), err.Error())
		return rep, nil
	}

	v := newsitem.NewValidator(newsitem.Options{
		Schema:             newsitem.DigestSchema,
		From:               rep.From,
		To:                 rep.To,
		RequireCategory:    true,
		RejectNonCompanies: true,
	})
	res, err := v.Parse(text)
	if err != nil {
		var pe *newsitem.ParseError
		if errors.As(err, &pe) {
			log.Printf("digest parse_failed err=%q content=%q", pe.Err.Error(), pe.Excerpt)
		}
		return rep, nil
	}
	rep.Received = len(res.Items) + len(res.Rejected)
	rep.Rejected = res.Rejected
	for _, r := range res.Rejected {
		log.Printf("digest item_skipped company=%q reason=%q", r.Company, r.Reason)
	}
	if len(res.Items) == 0 {
		log.Printf("digest no_valid_items received=%d", rep.Received)
		return rep, nil
	}
	items := dedup.Items(res.Items)
	items = dedup.ByKey(items, func(it newsitem.Item) string { return it.URL })
	if dropped := len(res.Items) - len(items); dropped > 0 {
		log.Printf("digest repeated_items_dropped count=%d", dropped)
	}

	ros, err := roster.LoadOrEmpty(g.cfg.RosterPath)
	if err != nil {
		return rep, fmt.Errorf("load roster: %w", err)
	}
	rep.Entries, rep.NewCompanies = g.reconcile(items, ros, now)
	rep.RosterSize = ros.Len()
	if err := ros.Save(g.cfg.RosterPath); err != nil {
		return rep, fmt.Errorf("save roster: %w", err)
	}

	known := map[string]bool{}
	for _, c := range urlColumns {
		for _, u := range existing.Column(c) {
			known[u] = true
		}
	}
	rows := make([]sheet.Row, len(rep.Entries))
	for i, e := range rep.Entries {
		rep.Entries[i].Duplicate = known[e.URL]
		rows[i] = g.row(e)
	}
	merged := dedup.MergeByURL(existing, rows, dedup.MergeOptions{
		URLColumns: urlColumns,
		IDColumn:   ColID,
		Columns:    Columns,
	})
	rep.Appended, rep.Duplicates = merged.Appended, merged.Duplicates
	if merged.Duplicates > 0 {
		log.Printf("digest url_duplicates_removed count=%d", merged.Duplicates)
	}
	if err := sheet.Write(g.cfg.DigestPath, existing); err != nil {
		return rep, fmt.Errorf("save digest: %w", err)
	}
	log.Printf("digest saved path=%s appended=%d total=%d", g.cfg.DigestPath, merged.Appended, existing.Len())
	return rep, nil
}

func (g *Generator) complete(ctx context.Context, p llm.Prompt) (string, error) {
	for attempt := 1; ; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		c, err := g.cfg.Caller.Complete(qctx, p)
		cancel()
		if err == nil {
			return c.Content, nil
		}
		if errors.Is(err, llm.ErrRateLimited) && attempt == 1 {
			log.Printf("digest rate_limited wait=%s", g.cfg.RateLimitWait)
			if serr := g.cfg.Sleep(ctx, g.cfg.RateLimitWait); serr != nil {
				return "", serr
			}
			continue
		}
		return "", err
	}
}

// reconcile matches reported names against the roster. A name that fails
// to match is added once with empty type and webpage; later mentions in the
// same run match it.
func (g *Generator) reconcile(items []newsitem.Item, ros *roster.Roster, now time.Time) ([]Entry, []string) {
	session := matcher.NewSession(g.cfg.Matcher, ros.Names())
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		res := session.Resolve(it.Company)
		e := Entry{Item: it, Week: isoweek.Of(it.Published()).String()}
		if res.New {
			e.NewlyProposed = true
			ros.Add(roster.Company{Name: res.Name}, now)
			log.Printf("digest company_discovered name=%q best_score=%.0f", res.Name, res.Score)
		} else {
			e.Matched = res.Name
			log.Printf("digest company_matched reported=%q name=%q score=%.0f", it.Company, res.Name, res.Score)
		}
		var webpage string
		if e.Matched != "" {
			if c, ok := ros.Find(e.Matched); ok {
				webpage = c.Webpage
			}
		}
		e.CompanyURL, e.OtherURL = SlotURL(it.URL, webpage)
		entries = append(entries, e)
	}
	return entries, session.Added()
}

// SlotURL files url under the company slot when the company webpage, with
// www. removed, appears in it.
func SlotURL(url, webpage string) (companyURL, otherURL string) {
	domain := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(webpage), "www.", ""))
	if domain != "" && strings.Contains(strings.ToLower(url), domain) {
		return url, ""
	}
	return "", url
}

func (g *Generator) row(e Entry) sheet.Row {
	return sheet.Row{
		ColCompany:        e.Company,
		ColCompanyMatched: e.Matched,
		ColPublishingDate: e.Date,
		ColHeadline:       e.Headline,
		ColDescription:    e.Description,
		ColCategory:       e.Category,
		ColSourceCompany:  e.CompanyURL,
		ColSourceOther:    e.OtherURL,
		ColWeek:           e.Week,
		ColRunID:          g.cfg.RunID,
	}
}

func loadDigest(path string) (*sheet.Table, error) {
	t, err := sheet.Read(path)
	if errors.Is(err, sheet.ErrNotFound) {
		return sheet.NewTable(Columns...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read digest: %w", err)
	}
	for _, c := range Columns {
		t.EnsureColumn(c)
	}
	return t, nil
}

// WeekURLs returns the distinct source URLs already recorded for week.
func WeekURLs(t *sheet.Table, week string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		if r.Get(ColWeek) != week {
			continue
		}
		for _, c := range urlColumns {
			if u := r.Get(c); u != "" && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}
