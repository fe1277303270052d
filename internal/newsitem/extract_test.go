package newsitem

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractArrayPrefersFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n[{\"a\":1}]\n```\nand also [1,2,3]"
	items, err := ExtractArray(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected fenced array with 1 item, got %d", len(items))
	}
}

func TestExtractArrayFallsBackToBracketSpan(t *testing.T) {
	items, err := ExtractArray("Found these items: [{\"a\":1},{\"a\":2}] hope that helps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestExtractArrayWholeTextEmptyArray(t *testing.T) {
	items, err := ExtractArray("  []  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestExtractArrayParseError(t *testing.T) {
	for _, text := range []string{"no news this week", "{\"company\":\"BASF\"}", "[not json]"} {
		_, err := ExtractArray(text)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", text, err)
		}
		if pe.Excerpt != text {
			t.Fatalf("expected excerpt of short text to be the text, got %q", pe.Excerpt)
		}
	}
}

func TestParseErrorExcerptIsBounded(t *testing.T) {
	_, err := ExtractArray(strings.Repeat("x", 2000))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if len(pe.Excerpt) != 500 {
		t.Fatalf("expected 500 char excerpt, got %d", len(pe.Excerpt))
	}
}

func TestExtractArrayReadsUntaggedFence(t *testing.T) {
	text := "I found [2] stories:\n```\n[{\"a\":1},{\"a\":2}]\n```"
	items, err := ExtractArray(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items from untagged fence, got %d", len(items))
	}
}

func TestParseErrorExcerptKeepsRunesWhole(t *testing.T) {
	_, err := ExtractArray("x" + strings.Repeat("ü", 600))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !utf8.ValidString(pe.Excerpt) {
		t.Fatalf("expected excerpt to be valid UTF-8")
	}
	if len(pe.Excerpt) > 500 || len(pe.Excerpt) < 499 {
		t.Fatalf("expected excerpt just under 500 bytes, got %d", len(pe.Excerpt))
	}
}
