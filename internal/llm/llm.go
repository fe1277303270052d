package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnauthorized aborts a run: no later request can succeed.
	ErrUnauthorized = errors.New("upstream authentication failed")
	// ErrRateLimited asks the caller to back off and retry.
	ErrRateLimited = errors.New("upstream rate limited")
)

// StatusError is a non-200 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status code: %d", e.Code)
	}
	return fmt.Sprintf("status code: %d body=%s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == 401
	case ErrRateLimited:
		return e.Code == 429
	}
	return false
}

type Prompt struct {
	System string
	User   string
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Content   string
	Citations []string
	Usage     Usage
	// Raw is the undecoded response body.
	Raw json.RawMessage
}

// Caller sends one prompt and returns the completion text.
type Caller interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
	ModelName() string
}

type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureTimeout
	FailureRateLimit
	FailureAuth
	FailureServer
	FailureClient
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureRateLimit:
		return "rate_limit"
	case FailureAuth:
		return "auth"
	case FailureServer:
		return "server"
	case FailureClient:
		return "client"
	}
	return "unknown"
}

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

// Classify buckets a transport error for logging and retry decisions.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	var se *StatusError
	if errors.As(err, &se) {
		return classifyCode(se.Code)
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		var code int
		fmt.Sscanf(m[1], "%d", &code)
		return classifyCode(code)
	}
	if strings.Contains(msg, "rate limit") {
		return FailureRateLimit
	}
	return FailureServer
}

func classifyCode(code int) FailureClass {
	switch {
	case code == 401:
		return FailureAuth
	case code == 429:
		return FailureRateLimit
	case code >= 500:
		return FailureServer
	case code >= 400:
		return FailureClient
	}
	return FailureServer
}

var fencedBlockRe = regexp.MustCompile("(?s)```[A-Za-z]*[ \\t]*\\r?\\n?(.*?)\\s*```")

// FencedBlock returns the body of the first ``` or ```json fence in s.
func FencedBlock(s string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// TruncateRunes cuts s to at most n bytes without splitting a rune.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// StripCodeFences removes a surrounding ``` or ```json fence.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if body, ok := FencedBlock(s); ok {
			return body
		}
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	return s
}

// SleepCtx blocks for d or until ctx is done.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
