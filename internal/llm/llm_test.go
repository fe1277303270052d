package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(_ string) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

func TestAnthropicCallerJoinsTextBlocks(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: "[{\"a\":"}, {Type: "text", Text: "1}]"}},
	}}
	defer withMockClient(mock)()

	c, err := NewAnthropicCaller("key", "", 0, 0.2)
	if err != nil {
		t.Fatalf("new caller: %v", err)
	}
	got, err := c.Complete(context.Background(), Prompt{System: "sys", User: "find news"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Content != "[{\"a\":1}]" {
		t.Fatalf("unexpected content %q", got.Content)
	}
	if c.ModelName() != DefaultAnthropicModel {
		t.Fatalf("expected default model, got %s", c.ModelName())
	}
	if len(mock.params.System) != 1 || mock.params.System[0].Text != "sys" {
		t.Fatalf("expected system prompt to be forwarded, got %+v", mock.params.System)
	}
	if mock.params.MaxTokens != 2000 {
		t.Fatalf("expected default max tokens 2000, got %d", mock.params.MaxTokens)
	}
}

func TestAnthropicCallerMapsAPIErrorStatus(t *testing.T) {
	defer withMockClient(&mockMessager{err: &anthropic.Error{StatusCode: 401}})()
	c, err := NewAnthropicCaller("key", "m", 100, 0)
	if err != nil {
		t.Fatalf("new caller: %v", err)
	}
	_, err = c.Complete(context.Background(), Prompt{User: "x"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNewAnthropicCallerRequiresKey(t *testing.T) {
	if _, err := NewAnthropicCaller("  ", "", 0, 0); err == nil {
		t.Fatal("expected error without key")
	}
}

func TestStatusErrorSentinels(t *testing.T) {
	if !errors.Is(&StatusError{Code: 401}, ErrUnauthorized) {
		t.Fatal("expected 401 to be ErrUnauthorized")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", &StatusError{Code: 429}), ErrRateLimited) {
		t.Fatal("expected wrapped 429 to be ErrRateLimited")
	}
	if errors.Is(&StatusError{Code: 500}, ErrRateLimited) || errors.Is(&StatusError{Code: 500}, ErrUnauthorized) {
		t.Fatal("expected 500 to match no sentinel")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want FailureClass
	}{
		{nil, FailureNone},
		{context.DeadlineExceeded, FailureTimeout},
		{&StatusError{Code: 401}, FailureAuth},
		{&StatusError{Code: 429}, FailureRateLimit},
		{&StatusError{Code: 503}, FailureServer},
		{&StatusError{Code: 404}, FailureClient},
		{errors.New("POST failed: status code: 502"), FailureServer},
		{errors.New("rate limit exceeded"), FailureRateLimit},
		{errors.New("connection reset"), FailureServer},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v): expected %s, got %s", tc.err, tc.want, got)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": "{\"a\":1}",
		"```\n[1]\n```":           "[1]",
		"  {\"b\":2}  ":           "{\"b\":2}",
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Fatalf("StripCodeFences(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestFencedBlockIgnoresLanguageTag(t *testing.T) {
	for _, in := range []string{
		"Results:\n```\n[1]\n```",
		"```JSON\n[1]\n```",
		"```js [1] ```",
	} {
		got, ok := FencedBlock(in)
		if !ok || got != "[1]" {
			t.Fatalf("FencedBlock(%q): expected [1], got %q ok=%v", in, got, ok)
		}
	}
	if _, ok := FencedBlock("```json\n[1]"); ok {
		t.Fatalf("expected unclosed fence to be rejected")
	}
}

func TestTruncateRunesKeepsRunesWhole(t *testing.T) {
	if got := TruncateRunes("héllo", 2); got != "h" {
		t.Fatalf("expected cut before the split rune, got %q", got)
	}
	if got := TruncateRunes("héllo", 3); got != "hé" {
		t.Fatalf("expected whole rune kept, got %q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Fatalf("expected short text unchanged, got %q", got)
	}
	long := ""
	for i := 0; i < 300; i++ {
		long += "é"
	}
	got := TruncateRunes(long, 501)
	if !utf8.ValidString(got) || len(got) != 500 {
		t.Fatalf("expected 500 valid bytes, got %d valid=%v", len(got), utf8.ValidString(got))
	}
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepCtx(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
