package newsitem

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
)

var bracketRe = regexp.MustCompile(`(?s)\[.*\]`)

const excerptLen = 500

// ParseError reports text from which no JSON array could be extracted.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no json array in response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractArray pulls a JSON array out of free-form text. A code fence wins
// over the first-to-last bracket span, which wins over the whole text.
func ExtractArray(text string) ([]json.RawMessage, error) {
	candidate := text
	if body, ok := llm.FencedBlock(text); ok {
		candidate = body
	} else if m := bracketRe.FindString(text); m != "" {
		candidate = m
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &items); err != nil {
		return nil, &ParseError{Excerpt: Excerpt(text), Err: err}
	}
	return items, nil
}

func Excerpt(text string) string {
	return llm.TruncateRunes(text, excerptLen)
}
