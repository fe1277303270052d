// Package weekly fills the news ledger one ISO week at a time.
package weekly

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/batch"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/dedup"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/isoweek"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/ledger"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/matcher"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
)

type Config struct {
	RosterPath      string
	LedgerPath      string
	BatchSize       int
	RequireCategory bool
	Orchestrator    *batch.Orchestrator
	// Matcher resolves reported names against the roster. Defaults to the
	// sequence metric.
	Matcher *matcher.Matcher
	Now     func() time.Time
	RunID   string
}

type WeekStats struct {
	Week         string
	Batches      int
	Companies    int
	APICalls     int
	NewsFound    int
	NoNews       int
	Errors       int
	NewCompanies int
}

type Runner struct {
	cfg    Config
	roster *roster.Roster
	ledger *ledger.Ledger
}

func NewRunner(cfg Config, r *roster.Roster, l *ledger.Ledger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = batch.DefaultSize
	}
	if cfg.Matcher == nil {
		cfg.Matcher = matcher.NewSequence()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{cfg: cfg, roster: r, ledger: l}
}

func (r *Runner) RunID() string { return r.cfg.RunID }

// Run processes up to weeks target weeks. chooseBatches is called for every
// week with that week's pending batch count and returns how many to run.
func (r *Runner) Run(ctx context.Context, weeks int, chooseBatches func(total int) int) ([]WeekStats, error) {
	var out []WeekStats
	for i := 0; i < weeks; i++ {
		target := ledger.TargetWeek(r.roster.Names(), r.ledger, r.cfg.Now())
		batches := r.Batches(target)
		if limit := chooseBatches(len(batches)); limit >= 0 && len(batches) > limit {
			batches = batches[:limit]
		}
		log.Printf("weekly week_start index=%d/%d week=%s batches=%d run_id=%s", i+1, weeks, target, len(batches), r.cfg.RunID)
		stats, err := r.RunWeek(ctx, target, batches)
		if err != nil {
			return out, err
		}
		out = append(out, stats)
	}
	return out, nil
}

// Batches partitions the roster companies that still lack a definitive
// row for w.
func (r *Runner) Batches(w isoweek.Week) []batch.Batch {
	covered := r.ledger.Covered(w.String())
	var pending []roster.Company
	for _, c := range r.roster.Companies() {
		if !covered[c.Name] {
			pending = append(pending, c)
		}
	}
	return batch.Partition(pending, r.cfg.BatchSize)
}

// RunWeek queries batches for w, reconciles names, appends YES, NO and
// ERROR rows and saves the ledger. Nothing is written for w when the
// orchestrator aborts.
func (r *Runner) RunWeek(ctx context.Context, w isoweek.Week, batches []batch.Batch) (WeekStats, error) {
	stats := WeekStats{Week: w.String(), Batches: len(batches)}
	from, to := w.Range()
	plan := batch.Plan{
		Prompt: PromptFor(w),
		Validator: newsitem.NewValidator(newsitem.Options{
			Schema:          newsitem.WeeklySchema,
			From:            from,
			To:              to,
			RequireCategory: r.cfg.RequireCategory,
		}),
	}
	outcomes, err := r.cfg.Orchestrator.RunAll(ctx, batches, plan)
	var items []newsitem.Item
	unanswered := map[string]bool{}
	for _, o := range outcomes {
		stats.APICalls += o.APICalls
		items = append(items, o.Items...)
		for _, name := range o.Unanswered {
			unanswered[name] = true
		}
	}
	if err != nil {
		return stats, fmt.Errorf("week %s: %w", w, err)
	}
	log.Printf("weekly items_collected week=%s items=%d", w, len(items))
	items = dedup.Items(items)

	items, added := r.reconcile(items)
	stats.NewCompanies = added

	rows := r.rows(w, items, batches, unanswered)
	for _, row := range rows {
		switch row.Detected {
		case ledger.Yes:
			stats.NewsFound++
		case ledger.No:
			stats.NoNews++
		case ledger.Error:
			stats.Errors++
		}
	}
	for _, b := range batches {
		stats.Companies += len(b.Companies)
	}
	r.ledger.Append(rows...)
	if err := r.ledger.Save(r.cfg.LedgerPath); err != nil {
		return stats, fmt.Errorf("save ledger: %w", err)
	}
	log.Printf("weekly week_done week=%s api_calls=%d news=%d no_news=%d errors=%d new_companies=%d",
		w, stats.APICalls, stats.NewsFound, stats.NoNews, stats.Errors, stats.NewCompanies)
	return stats, nil
}

// reconcile maps reported names onto the roster. Unmatched names become
// roster entries and later mentions in the same run resolve to them.
func (r *Runner) reconcile(items []newsitem.Item) ([]newsitem.Item, int) {
	session := matcher.NewSession(r.cfg.Matcher, r.roster.Names())
	now := r.cfg.Now()
	added := 0
	for i, it := range items {
		res := session.Resolve(it.Company)
		if res.New {
			typ := GuessType(it.Description)
			r.roster.Add(roster.Company{Name: res.Name, Type: typ}, now)
			log.Printf("weekly company_discovered name=%q type=%s score=%.2f", res.Name, typ, res.Score)
			added++
		} else if res.Name != it.Company {
			log.Printf("weekly company_matched reported=%q name=%q score=%.2f", it.Company, res.Name, res.Score)
		}
		items[i].Company = res.Name
	}
	if added > 0 {
		if err := r.roster.Save(r.cfg.RosterPath); err != nil {
			log.Printf("weekly roster_save_failed path=%s err=%q", r.cfg.RosterPath, err.Error())
		}
	}
	return items, added
}

func (r *Runner) rows(w isoweek.Week, items []newsitem.Item, batches []batch.Batch, unanswered map[string]bool) []ledger.Row {
	var rows []ledger.Row
	withNews := map[string]bool{}
	for _, it := range items {
		var webpage string
		if c, ok := r.roster.Find(it.Company); ok {
			webpage = c.Webpage
		}
		companyURL, otherURL := SlotURL(it.URL, webpage)
		rows = append(rows, ledger.Row{
			Company:        it.Company,
			Week:           w.String(),
			Detected:       ledger.Yes,
			Category:       it.Category,
			Description:    it.Description,
			CompanyURL:     companyURL,
			OtherURLs:      otherURL,
			PublishingDate: it.Date,
			RunID:          r.cfg.RunID,
		})
		withNews[it.Company] = true
	}
	for _, b := range batches {
		for _, name := range b.Names() {
			if withNews[name] {
				continue
			}
			d := ledger.No
			if unanswered[name] {
				d = ledger.Error
			}
			rows = append(rows, ledger.Row{Company: name, Week: w.String(), Detected: d, RunID: r.cfg.RunID})
		}
	}
	return rows
}
