package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
)

type scriptedCaller struct {
	replies []reply
	prompts []llm.Prompt
}

type reply struct {
	content string
	err     error
}

func (s *scriptedCaller) ModelName() string { return "fake" }

func (s *scriptedCaller) Complete(_ context.Context, p llm.Prompt) (llm.Completion, error) {
	s.prompts = append(s.prompts, p)
	if len(s.replies) == 0 {
		return llm.Completion{Content: "[]"}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return llm.Completion{Content: r.content}, r.err
}

type sleepLog struct{ waits []time.Duration }

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func item(company, date string) string {
	return fmt.Sprintf(`{"date":%q,"company":%q,"category":"Product Launch","description":"d","url":"https://example.com/%s"}`,
		date, company, strings.ToLower(strings.ReplaceAll(company, " ", "-")))
}

func array(items ...string) string { return "[" + strings.Join(items, ",") + "]" }

func testPlan() Plan {
	return Plan{
		Prompt: func(b Batch, focus []string) llm.Prompt {
			if len(focus) == 0 {
				return llm.Prompt{User: "all: " + strings.Join(b.Names(), ", ")}
			}
			return llm.Prompt{User: "missing: " + strings.Join(focus, ", ")}
		},
		Validator: newsitem.NewValidator(newsitem.Options{
			From: time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC),
		}),
	}
}

func testBatch(names ...string) Batch {
	var cs []roster.Company
	for _, n := range names {
		cs = append(cs, roster.Company{Name: n, Type: "Producer"})
	}
	return Batch{Type: "Producer", Companies: cs, Number: 1, TotalInType: len(cs)}
}

func TestPartitionGroupsByTypeInFirstAppearanceOrder(t *testing.T) {
	var cs []roster.Company
	for i := 0; i < 12; i++ {
		cs = append(cs, roster.Company{Name: fmt.Sprintf("P%d", i), Type: "Producer"})
	}
	cs = append([]roster.Company{{Name: "C0", Type: "Compounder"}}, cs...)
	cs = append(cs, roster.Company{Name: "C1", Type: "Compounder"})

	batches := Partition(cs, 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if batches[0].Type != "Compounder" || len(batches[0].Companies) != 2 {
		t.Fatalf("unexpected first batch: %+v", batches[0])
	}
	if batches[1].Type != "Producer" || len(batches[1].Companies) != 10 || batches[1].Number != 1 {
		t.Fatalf("unexpected second batch: %+v", batches[1])
	}
	if len(batches[2].Companies) != 2 || batches[2].Number != 2 || batches[2].TotalInType != 12 {
		t.Fatalf("unexpected third batch: %+v", batches[2])
	}
	if batches[2].Companies[0].Name != "P10" {
		t.Fatalf("expected roster order within type, got %q", batches[2].Companies[0].Name)
	}
}

func TestRunStopsWhenAllConfirmed(t *testing.T) {
	caller := &scriptedCaller{replies: []reply{
		{content: array(item("Alpha", "2025-10-14"), item("Beta", "2025-10-15"))},
	}}
	sl := &sleepLog{}
	o := NewOrchestrator(Config{Caller: caller, Sleep: sl.sleep, StageDelay: 5 * time.Second})

	out, err := o.Run(context.Background(), testBatch("Alpha", "Beta"), testPlan())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.Items) != 2 || out.APICalls != 1 {
		t.Fatalf("expected 2 items from 1 call, got %d items %d calls", len(out.Items), out.APICalls)
	}
	if len(sl.waits) != 0 {
		t.Fatalf("expected no sleeps, got %v", sl.waits)
	}
}

func TestRunFillInAsksOnlyForMissingAndDropsConfirmed(t *testing.T) {
	caller := &scriptedCaller{replies: []reply{
		{content: array(item("Alpha", "2025-10-14"))},
		{content: array(item("Alpha", "2025-10-16"), item("Beta", "2025-10-15"), item("Beta", "2025-10-17"))},
		{content: "[]"},
	}}
	sl := &sleepLog{}
	o := NewOrchestrator(Config{Caller: caller, Sleep: sl.sleep, StageDelay: 5 * time.Second})

	out, err := o.Run(context.Background(), testBatch("Alpha", "Beta", "Gamma"), testPlan())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(caller.prompts) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(caller.prompts))
	}
	if got := caller.prompts[1].User; got != "missing: Beta, Gamma" {
		t.Fatalf("unexpected second prompt %q", got)
	}
	if got := caller.prompts[2].User; got != "missing: Gamma" {
		t.Fatalf("unexpected third prompt %q", got)
	}
	if len(out.Items) != 3 {
		t.Fatalf("expected 3 items, got %d: %+v", len(out.Items), out.Items)
	}
	for _, it := range out.Items[1:] {
		if it.Company != "Beta" {
			t.Fatalf("expected later-stage Alpha item dropped, got %+v", it)
		}
	}
	if len(sl.waits) != 2 || sl.waits[0] != 5*time.Second {
		t.Fatalf("expected two stage delays, got %v", sl.waits)
	}
	if len(out.Unanswered) != 0 {
		t.Fatalf("expected no unanswered companies, got %v", out.Unanswered)
	}
}

func TestRunRetriesRateLimitOnce(t *testing.T) {
	caller := &scriptedCaller{replies: []reply{
		{err: &llm.StatusError{Code: 429}},
		{content: array(item("Alpha", "2025-10-14"))},
	}}
	sl := &sleepLog{}
	o := NewOrchestrator(Config{Caller: caller, Sleep: sl.sleep, RateLimitWait: 30 * time.Second})

	out, err := o.Run(context.Background(), testBatch("Alpha"), testPlan())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.Items) != 1 || out.APICalls != 2 {
		t.Fatalf("expected 1 item from 2 calls, got %d items %d calls", len(out.Items), out.APICalls)
	}
	if len(sl.waits) != 1 || sl.waits[0] != 30*time.Second {
		t.Fatalf("expected one 30s wait, got %v", sl.waits)
	}
}

func TestRunAbortsOnUnauthorized(t *testing.T) {
	caller := &scriptedCaller{replies: []reply{{err: &llm.StatusError{Code: 401}}}}
	o := NewOrchestrator(Config{Caller: caller, Sleep: (&sleepLog{}).sleep})

	_, err := o.Run(context.Background(), testBatch("Alpha"), testPlan())
	if !errors.Is(err, llm.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRunTreatsOtherFailuresAsEmpty(t *testing.T) {
	caller := &scriptedCaller{replies: []reply{
		{err: &llm.StatusError{Code: 502}},
		{content: "no json here"},
		{err: errors.New("connection reset")},
	}}
	o := NewOrchestrator(Config{Caller: caller, Sleep: (&sleepLog{}).sleep})

	out, err := o.Run(context.Background(), testBatch("Alpha", "Beta"), testPlan())
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if len(out.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(out.Items))
	}
	if len(out.Stages) != 3 {
		t.Fatalf("expected 3 stage reports, got %d", len(out.Stages))
	}
	if len(out.Unanswered) != 2 {
		t.Fatalf("expected both companies unanswered, got %v", out.Unanswered)
	}
}

func TestRunAllSleepsBetweenBatches(t *testing.T) {
	caller := &scriptedCaller{}
	sl := &sleepLog{}
	o := NewOrchestrator(Config{Caller: caller, Sleep: sl.sleep, Stages: 1, BatchDelay: 5 * time.Second})

	outs, err := o.RunAll(context.Background(), []Batch{testBatch("A"), testBatch("B"), testBatch("C")}, testPlan())
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(outs) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outs))
	}
	if len(sl.waits) != 2 {
		t.Fatalf("expected 2 inter-batch waits, got %v", sl.waits)
	}
}
