package checkapi

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
)

type fakeCaller struct {
	calls int
	err   error
}

func (f *fakeCaller) ModelName() string { return "fake" }

func (f *fakeCaller) Complete(_ context.Context, p llm.Prompt) (llm.Completion, error) {
	f.calls++
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{
		Content:   "ok",
		Citations: []string{"https://example.com"},
		Usage:     llm.Usage{TotalTokens: 12},
		Raw:       json.RawMessage(`{"id":"x"}`),
	}, nil
}

var now = time.Date(2025, 10, 16, 9, 30, 0, 0, time.UTC)

func TestQueriesCoverTrailingWeek(t *testing.T) {
	qs := Queries(now)
	if len(qs) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(qs))
	}
	user := qs[1].Prompt.User
	if !strings.Contains(user, "NatureWorks") || !strings.Contains(user, "October 09, 2025") || !strings.Contains(user, "October 16, 2025") {
		t.Fatalf("unexpected company query: %s", user)
	}
}

func TestRunSavesRawResponses(t *testing.T) {
	dir := t.TempDir()
	caller := &fakeCaller{}
	results := Run(context.Background(), caller, dir, now)
	if len(results) != 2 || caller.calls != 2 {
		t.Fatalf("expected 2 results and calls, got %d/%d", len(results), caller.calls)
	}
	for _, r := range results {
		if !r.OK() {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		data, err := os.ReadFile(r.RawPath)
		if err != nil {
			t.Fatalf("read raw: %v", err)
		}
		if string(data) != `{"id":"x"}` {
			t.Fatalf("unexpected raw body %s", data)
		}
	}
	if !strings.HasSuffix(results[0].RawPath, "api_test_general_20251016_093000.json") {
		t.Fatalf("unexpected raw path %s", results[0].RawPath)
	}
}

func TestRunStopsOnUnauthorized(t *testing.T) {
	caller := &fakeCaller{err: &llm.StatusError{Code: 401}}
	results := Run(context.Background(), caller, "", now)
	if len(results) != 1 || caller.calls != 1 {
		t.Fatalf("expected a single failed query, got %d results", len(results))
	}
	if !strings.HasPrefix(Explain(results[0].Err), "Authentication failed") {
		t.Fatalf("unexpected hint %q", Explain(results[0].Err))
	}
}

func TestRunContinuesAfterRateLimit(t *testing.T) {
	caller := &fakeCaller{err: &llm.StatusError{Code: 429}}
	results := Run(context.Background(), caller, "", now)
	if len(results) != 2 {
		t.Fatalf("expected both queries attempted, got %d", len(results))
	}
	if !strings.HasPrefix(Explain(results[1].Err), "Rate limited") {
		t.Fatalf("unexpected hint %q", Explain(results[1].Err))
	}
}

func TestExplainOtherErrors(t *testing.T) {
	if Explain(nil) != "" {
		t.Fatalf("expected empty hint for nil")
	}
	if got := Explain(context.DeadlineExceeded); !strings.Contains(got, "timed out") {
		t.Fatalf("unexpected timeout hint %q", got)
	}
	if got := Explain(&llm.StatusError{Code: 400, Body: "bad model"}); !strings.Contains(got, "rejected") {
		t.Fatalf("unexpected client hint %q", got)
	}
}
