// Package checkapi sends a pair of probe queries to the configured
// completion provider and keeps the raw responses for inspection.
package checkapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
)

const probeDateLayout = "January 02, 2006"

type Query struct {
	Name   string
	Prompt llm.Prompt
}

type Result struct {
	Query      string
	Completion llm.Completion
	Err        error
	// RawPath is where the undecoded response was saved, if anywhere.
	RawPath string
}

func (r Result) OK() bool { return r.Err == nil }

// Queries returns a general question and a company-specific news search
// covering the seven days before now.
func Queries(now time.Time) []Query {
	from := now.AddDate(0, 0, -7)
	return []Query{
		{
			Name: "general",
			Prompt: llm.Prompt{
				System: "Be precise and concise.",
				User:   "What are the latest developments in bioplastics? Give a brief answer.",
			},
		},
		{
			Name: "natureworks",
			Prompt: llm.Prompt{
				System: "You are a news research assistant. Return only factual news with dates and sources.",
				User: fmt.Sprintf("Find news about NatureWorks published between %s and %s. "+
					"List each item with its date, headline and source URL. If there is no news, say so.",
					from.Format(probeDateLayout), now.Format(probeDateLayout)),
			},
		},
	}
}

// Run sends each query in order. An authentication failure stops the run
// because no later query can succeed. Raw responses are written to outDir
// when it is set.
func Run(ctx context.Context, caller llm.Caller, outDir string, now time.Time) []Result {
	var results []Result
	for _, q := range Queries(now) {
		log.Printf("check-api query_start name=%s model=%s", q.Name, caller.ModelName())
		comp, err := caller.Complete(ctx, q.Prompt)
		res := Result{Query: q.Name, Completion: comp, Err: err}
		if err != nil {
			log.Printf("check-api query_failed name=%s class=%s err=%q", q.Name, llm.Classify(err), err.Error())
			results = append(results, res)
			if errors.Is(err, llm.ErrUnauthorized) || ctx.Err() != nil {
				break
			}
			continue
		}
		if outDir != "" && len(comp.Raw) > 0 {
			path, err := SaveRaw(outDir, q.Name, now, comp.Raw)
			if err != nil {
				log.Printf("check-api save_failed name=%s err=%q", q.Name, err.Error())
			} else {
				res.RawPath = path
			}
		}
		log.Printf("check-api query_done name=%s citations=%d total_tokens=%d", q.Name, len(comp.Citations), comp.Usage.TotalTokens)
		results = append(results, res)
	}
	return results
}

// SaveRaw writes raw as api_test_<name>_<timestamp>.json under dir.
func SaveRaw(dir, name string, now time.Time, raw []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("api_test_%s_%s.json", name, now.Format("20060102_150405")))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Explain turns a query error into an operator hint.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrUnauthorized):
		return "Authentication failed: the API key is invalid or expired. Check the key in your .env file."
	case errors.Is(err, llm.ErrRateLimited):
		return "Rate limited: too many requests. Wait a minute and try again."
	}
	switch llm.Classify(err) {
	case llm.FailureTimeout:
		return "The request timed out. The API may be slow or unreachable."
	case llm.FailureClient:
		return "The API rejected the request: " + strings.TrimSpace(err.Error())
	}
	return "Request failed: " + strings.TrimSpace(err.Error())
}
