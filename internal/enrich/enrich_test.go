package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

var now = time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)

type profileCaller struct {
	answers map[string]string
	errs    map[string]error
	asked   []string
}

func (p *profileCaller) ModelName() string { return "fake" }

func (p *profileCaller) Complete(_ context.Context, pr llm.Prompt) (llm.Completion, error) {
	for name, err := range p.errs {
		if strings.Contains(pr.User, `"`+name+`"`) {
			p.asked = append(p.asked, name)
			return llm.Completion{}, err
		}
	}
	for name, a := range p.answers {
		if strings.Contains(pr.User, `"`+name+`"`) {
			p.asked = append(p.asked, name)
			return llm.Completion{Content: a}, nil
		}
	}
	return llm.Completion{}, errors.New("unexpected prompt")
}

func TestCleanNormalizesProfile(t *testing.T) {
	got := Clean(Profile{
		"Type":           "bioplastic producer of PLA",
		"Country":        "",
		"Description":    strings.Repeat("a", 600),
		"Status":         "Operating",
		"PubliclyListed": "n",
		"StockTicker":    "NYSE:XX",
		"Webpage":        "example.com",
	}, now)
	if got[roster.ColType] != "Bioplastic Producer" {
		t.Fatalf("expected substring type match, got %q", got[roster.ColType])
	}
	if got[roster.ColCountry] != Unknown || got[roster.ColStatus] != Unknown {
		t.Fatalf("expected Unknown country and status, got %q %q", got[roster.ColCountry], got[roster.ColStatus])
	}
	if d := got[roster.ColDescription]; len(d) != 500 || !strings.HasSuffix(d, "...") {
		t.Fatalf("expected truncated description, got len %d", len(d))
	}
	if got[roster.ColPubliclyListed] != "No" || got[roster.ColStockTicker] != "" {
		t.Fatalf("expected unlisted without ticker, got %q %q", got[roster.ColPubliclyListed], got[roster.ColStockTicker])
	}
	if got[roster.ColWebpage] != "https://example.com" {
		t.Fatalf("expected scheme added, got %q", got[roster.ColWebpage])
	}
	if got[roster.ColPrimaryMaterials] != Unknown || got[roster.ColDateAdded] != "2025-10-16" {
		t.Fatalf("unexpected defaults: %v", got)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"Converter":       "Converter",
		"Recycling":       "Recycling Company",
		"Space Agency":    Unknown,
		"":                Unknown,
		"Unknown":         Unknown,
		"PLA Compounder ": "Compounder",
	}
	for in, want := range tests {
		if got := normalizeType(in); got != want {
			t.Fatalf("normalizeType(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestRunFillsOnlyEmptyCellsAndDropsUnknown(t *testing.T) {
	ros := roster.New()
	ros.Add(roster.Company{Name: "Futerro", Type: "Bioplastic Producer", Webpage: "www.futerro.com"}, now)
	ros.Add(roster.Company{Name: "Mystery Corp"}, now)
	ros.Add(roster.Company{Name: "Broken Inc"}, now)

	caller := &profileCaller{
		answers: map[string]string{
			"Futerro":      "```json\n{\"Type\":\"Converter\",\"Country\":\"Belgium\",\"Description\":\"PLA maker.\",\"PrimaryMaterials\":\"PLA\",\"MarketSegments\":\"Packaging\",\"Status\":\"Active\",\"PubliclyListed\":false,\"Webpage\":\"https://other.example.com\"}\n```",
			"Mystery Corp": `Here you go: {"Type":"Unknown","Country":"Unknown"}`,
		},
		errs: map[string]error{"Broken Inc": &llm.StatusError{Code: 500}},
	}
	e := New(Config{Caller: caller, Limiter: rate.NewLimiter(rate.Inf, 1), Now: func() time.Time { return now }})

	sum, err := e.Run(context.Background(), ros)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Processed != 3 || sum.Enriched != 2 || sum.Errors != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.Removed) != 1 || sum.Removed[0] != "Mystery Corp" {
		t.Fatalf("expected Mystery Corp removed, got %v", sum.Removed)
	}
	f, ok := ros.Find("Futerro")
	if !ok || f.Type != "Bioplastic Producer" || f.Webpage != "www.futerro.com" {
		t.Fatalf("expected existing cells kept, got %+v", f)
	}
	var row sheet.Row
	for _, r := range ros.Table.Rows {
		if r.Get(roster.ColCompany) == "Futerro" {
			row = r
		}
	}
	if row.Get(roster.ColCountry) != "Belgium" || row.Get(roster.ColPubliclyListed) != "No" {
		t.Fatalf("expected filled cells, got %v", row)
	}
	if _, ok := ros.Find("Broken Inc"); !ok {
		t.Fatalf("expected failed company kept")
	}
}

func TestRunStopsOnUnauthorized(t *testing.T) {
	ros := roster.New()
	ros.Add(roster.Company{Name: "Futerro"}, now)
	caller := &profileCaller{errs: map[string]error{"Futerro": &llm.StatusError{Code: 401}}}
	e := New(Config{Caller: caller, Limiter: rate.NewLimiter(rate.Inf, 1)})
	if _, err := e.Run(context.Background(), ros); !errors.Is(err, llm.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
