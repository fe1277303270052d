// Package enrich fills empty roster cells with researched company profiles.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

// Fields decide whether a company needs research.
var Fields = []string{
	roster.ColType, roster.ColCountry, roster.ColDescription, roster.ColPrimaryMaterials,
	roster.ColMarketSegments, roster.ColStatus, roster.ColPubliclyListed,
}

// columns are ensured on the roster before research starts.
var columns = append(append([]string{}, Fields...), roster.ColStockTicker)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 30 * time.Second
)

const systemPrompt = "You are a research assistant specializing in the bioplastic industry. Provide accurate, structured information about companies in JSON format."

type Config struct {
	Caller  llm.Caller
	Limiter *rate.Limiter
	Timeout time.Duration
	Now     func() time.Time
}

type Summary struct {
	Processed int
	Enriched  int
	Errors    int
	Removed   []string
}

type Enricher struct {
	cfg Config
}

func New(cfg Config) *Enricher {
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Enricher{cfg: cfg}
}

// Incomplete returns the rows with at least one empty research field.
func Incomplete(t *sheet.Table) []sheet.Row {
	var out []sheet.Row
	for _, r := range t.Rows {
		for _, f := range Fields {
			if r.Get(f) == "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Run researches every incomplete company, fills only empty cells and then
// drops companies whose type resolved to Unknown. An authentication
// failure stops the run; other failures count as errors.
func (e *Enricher) Run(ctx context.Context, ros *roster.Roster) (Summary, error) {
	var sum Summary
	for _, c := range columns {
		ros.Table.EnsureColumn(c)
	}
	todo := Incomplete(ros.Table)
	log.Printf("enrich incomplete count=%d", len(todo))
	for i, row := range todo {
		if err := e.cfg.Limiter.Wait(ctx); err != nil {
			return sum, err
		}
		name := row.Get(roster.ColCompany)
		sum.Processed++
		log.Printf("enrich research index=%d/%d company=%q", i+1, len(todo), name)
		p, err := e.Research(ctx, name, row.Get(roster.ColWebpage))
		if err != nil {
			if errors.Is(err, llm.ErrUnauthorized) || ctx.Err() != nil {
				return sum, err
			}
			log.Printf("enrich research_failed company=%q err=%q", name, err.Error())
			sum.Errors++
			continue
		}
		filled := Fill(row, Clean(p, e.cfg.Now()))
		log.Printf("enrich filled company=%q fields=%s", name, strings.Join(filled, ","))
		sum.Enriched++
	}
	sum.Removed = ros.Remove(func(r sheet.Row) bool { return r.Get(roster.ColType) == Unknown })
	if len(sum.Removed) > 0 {
		log.Printf("enrich removed_unknown count=%d companies=%q", len(sum.Removed), sum.Removed)
	}
	return sum, nil
}

// Fill copies cleaned values into empty cells of row and returns the
// columns it set.
func Fill(row sheet.Row, cleaned map[string]string) []string {
	var filled []string
	for _, col := range append(append([]string{}, columns...), roster.ColWebpage, roster.ColDateAdded) {
		v, ok := cleaned[col]
		if !ok || row.Get(col) != "" {
			continue
		}
		row[col] = v
		filled = append(filled, col)
	}
	return filled
}

var objectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Research asks for one company profile.
func (e *Enricher) Research(ctx context.Context, name, webpage string) (Profile, error) {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	c, err := e.cfg.Caller.Complete(qctx, researchPrompt(name, webpage))
	if err != nil {
		return nil, err
	}
	text := llm.StripCodeFences(c.Content)
	var p Profile
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		m := objectRe.FindString(text)
		if m == "" || json.Unmarshal([]byte(m), &p) != nil {
			return nil, fmt.Errorf("decode profile: %w (content=%q)", err, clamp(text, 200))
		}
	}
	return p, nil
}

func researchPrompt(name, webpage string) llm.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research the bioplastic company %q and provide the following information in JSON format:\n\n", name)
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  \"Type\": \"One of: %s\",\n", strings.Join(ValidTypes, ", "))
	sb.WriteString(`  "Country": "Headquarters country (full name)",
  "Description": "2-3 sentence overview of the company, its products, and specialties",
  "PrimaryMaterials": "Specific bioplastics they produce/use (e.g., PLA, PHA, PBS, starch-based, bio-PE, etc.)",
  "MarketSegments": "Industries served (e.g., packaging, agriculture, automotive, medical, textiles, etc.)",
  "Status": "One of: Active, Acquired, Defunct, Unknown",
  "PubliclyListed": "Yes or No - is the company publicly traded on a stock exchange?",
  "StockTicker": "Stock ticker symbol (e.g., NASDAQ:DNMR, NYSE:AMCR) if publicly listed, otherwise leave blank",
  "Webpage": "Official company website URL (validate and correct if needed)"
}

IMPORTANT:
- Type MUST be exactly one of the listed categories
- Status MUST be one of: Active, Acquired, Defunct, Unknown
- PubliclyListed MUST be "Yes" or "No"
- StockTicker should include exchange prefix if known (e.g., NASDAQ:DNMR, NYSE:AMCR, TSE:4118)
- If not publicly listed, leave StockTicker blank
- Country should be the full name (e.g., "United States" not "USA")
- Description should be concise (50-150 words)
- Focus on bioplastic-related activities
- If information is uncertain, use "Unknown" rather than guessing

Return ONLY valid JSON, no markdown formatting or explanations.
`)
	if webpage != "" {
		fmt.Fprintf(&sb, "\nKnown website: %s\n", webpage)
	}
	return llm.Prompt{System: systemPrompt, User: sb.String()}
}

func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
