package batch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/matcher"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
)

const (
	DefaultStages        = 3
	DefaultStageDelay    = 5 * time.Second
	DefaultBatchDelay    = 5 * time.Second
	DefaultRateLimitWait = 30 * time.Second
	DefaultTimeout       = 60 * time.Second
)

type Config struct {
	Caller        llm.Caller
	Stages        int
	StageDelay    time.Duration
	BatchDelay    time.Duration
	RateLimitWait time.Duration
	Timeout       time.Duration
	// Attribution resolves reported names to batch members. Nil means
	// exact comparison after lowercasing and trimming.
	Attribution *matcher.Matcher
	Sleep       func(context.Context, time.Duration) error
}

// Plan is what one run asks for: the prompt for a batch (focus lists the
// members still missing on fill-in stages) and the gate applied to answers.
type Plan struct {
	Prompt    func(b Batch, focus []string) llm.Prompt
	Validator *newsitem.Validator
}

type StageReport struct {
	Stage    int
	Focus    int
	Received int
	Kept     int
	Failed   bool
}

type Outcome struct {
	Items    []newsitem.Item
	APICalls int
	Stages   []StageReport
	// Unanswered lists batch members never confirmed in a batch where no
	// stage got a usable answer.
	Unanswered []string
}

type Orchestrator struct {
	cfg Config
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Stages <= 0 {
		cfg.Stages = DefaultStages
	}
	if cfg.StageDelay < 0 {
		cfg.StageDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Sleep == nil {
		cfg.Sleep = llm.SleepCtx
	}
	return &Orchestrator{cfg: cfg}
}

// RunAll processes batches in order with a pause between them. It stops at
// the first fatal error, returning what was collected so far.
func (o *Orchestrator) RunAll(ctx context.Context, batches []Batch, plan Plan) ([]Outcome, error) {
	var out []Outcome
	for i, b := range batches {
		log.Printf("batch start index=%d/%d type=%q number=%d companies=%d", i+1, len(batches), b.Type, b.Number, len(b.Companies))
		res, err := o.Run(ctx, b, plan)
		out = append(out, res)
		if err != nil {
			return out, err
		}
		if i < len(batches)-1 {
			if err := o.cfg.Sleep(ctx, o.cfg.BatchDelay); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// Run issues up to Stages queries for one batch. Stage one asks about every
// member; later stages list only unconfirmed members and drop answers about
// members confirmed earlier. Only authentication failures and context
// cancellation are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, b Batch, plan Plan) (Outcome, error) {
	var out Outcome
	names := b.Names()
	confirmed := map[string]bool{}
	answered := false

	for stage := 1; stage <= o.cfg.Stages; stage++ {
		var focus []string
		if stage > 1 {
			focus = o.missing(names, confirmed)
			if len(focus) == 0 {
				break
			}
			if err := o.cfg.Sleep(ctx, o.cfg.StageDelay); err != nil {
				return out, err
			}
		}
		report := StageReport{Stage: stage, Focus: len(focus)}
		items, calls, err := o.stage(ctx, plan, b, focus)
		out.APICalls += calls
		if err != nil {
			if errors.Is(err, llm.ErrUnauthorized) || ctx.Err() != nil {
				return out, err
			}
			report.Failed = true
			out.Stages = append(out.Stages, report)
			continue
		}
		answered = true
		report.Received = len(items)

		earlier := make(map[string]bool, len(confirmed))
		for k := range confirmed {
			earlier[k] = true
		}
		for _, it := range items {
			key := o.attribute(it.Company, names)
			if stage > 1 && earlier[key] {
				continue
			}
			confirmed[key] = true
			out.Items = append(out.Items, it)
			report.Kept++
		}
		out.Stages = append(out.Stages, report)
		log.Printf("batch stage_done type=%q number=%d stage=%d focus=%d received=%d kept=%d confirmed=%d/%d",
			b.Type, b.Number, stage, len(focus), report.Received, report.Kept, countMembers(confirmed, names), len(names))
	}
	if !answered {
		out.Unanswered = o.missing(names, confirmed)
	}
	return out, nil
}

func (o *Orchestrator) stage(ctx context.Context, plan Plan, b Batch, focus []string) ([]newsitem.Item, int, error) {
	text, calls, err := o.query(ctx, plan.Prompt(b, focus))
	if err != nil {
		log.Printf("batch query_failed type=%q number=%d class=%s err=%q", b.Type, b.Number, llm.Classify(err), err.Error())
		return nil, calls, err
	}
	res, err := plan.Validator.Parse(text)
	if err != nil {
		var pe *newsitem.ParseError
		if errors.As(err, &pe) {
			log.Printf("batch parse_failed type=%q number=%d err=%q content=%q", b.Type, b.Number, pe.Err.Error(), pe.Excerpt)
		}
		return nil, calls, err
	}
	for _, r := range res.Rejected {
		log.Printf("batch item_rejected type=%q number=%d company=%q reason=%q", b.Type, b.Number, r.Company, r.Reason)
	}
	return res.Items, calls, nil
}

// query sends p and, on a rate limit answer, waits and re-sends it once.
func (o *Orchestrator) query(ctx context.Context, p llm.Prompt) (string, int, error) {
	calls := 0
	for attempt := 1; ; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		c, err := o.cfg.Caller.Complete(qctx, p)
		cancel()
		calls++
		if err == nil {
			return c.Content, calls, nil
		}
		if errors.Is(err, llm.ErrRateLimited) && attempt == 1 {
			log.Printf("batch rate_limited wait=%s", o.cfg.RateLimitWait)
			if serr := o.cfg.Sleep(ctx, o.cfg.RateLimitWait); serr != nil {
				return "", calls, serr
			}
			continue
		}
		return "", calls, err
	}
}

func (o *Orchestrator) attribute(reported string, names []string) string {
	n := matcher.Normalize(reported)
	for _, name := range names {
		if matcher.Normalize(name) == n {
			return name
		}
	}
	if o.cfg.Attribution != nil {
		if name, _, ok := o.cfg.Attribution.Match(reported, names); ok {
			return name
		}
	}
	return n
}

func (o *Orchestrator) missing(names []string, confirmed map[string]bool) []string {
	var out []string
	for _, n := range names {
		if !confirmed[n] {
			out = append(out, n)
		}
	}
	return out
}

func countMembers(confirmed map[string]bool, names []string) int {
	n := 0
	for _, name := range names {
		if confirmed[name] {
			n++
		}
	}
	return n
}
