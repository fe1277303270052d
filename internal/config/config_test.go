package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.applyEnv(envMap(map[string]string{
		"PERPLEXITY_API_KEY":       " pplx-1234567890abcdef ",
		"NEWSGEN_MAX_TOKENS":       "4000",
		"NEWSGEN_TEMPERATURE":      "0.5",
		"NEWSGEN_REQUIRE_CATEGORY": "true",
		"NEWSGEN_BATCH_SIZE":       "abc",
		"NEWSGEN_PROVIDER":         "Perplexity",
	}))
	if cfg.PerplexityAPIKey != "pplx-1234567890abcdef" {
		t.Fatalf("expected trimmed key, got %q", cfg.PerplexityAPIKey)
	}
	if cfg.MaxTokens != 4000 || cfg.Temperature != 0.5 || !cfg.RequireCategory {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.BatchSize != 10 {
		t.Fatalf("expected invalid batch size to keep default, got %d", cfg.BatchSize)
	}
	if cfg.Provider != ProviderPerplexity {
		t.Fatalf("expected lowercased provider, got %q", cfg.Provider)
	}
}

func TestMergeFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsgen.yaml")
	body := "model: sonar-pro\ndays_to_search: 14\nnews_file: ledger.xlsx\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		t.Fatalf("merge: %v", err)
	}
	cfg.applyEnv(envMap(map[string]string{"NEWSGEN_DAYS_TO_SEARCH": "3"}))
	if cfg.Model != "sonar-pro" || cfg.NewsFile != "ledger.xlsx" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.DaysToSearch != 3 {
		t.Fatalf("expected env to win, got %d", cfg.DaysToSearch)
	}
	if cfg.CompaniesFile != "companies.xlsx" {
		t.Fatalf("expected untouched default, got %q", cfg.CompaniesFile)
	}
}

func TestValidateMissingCredential(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	cfg.Provider = ProviderAnthropic
	cfg.PerplexityAPIKey = "x"
	if err := cfg.Validate(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential for anthropic, got %v", err)
	}
	if _, err := cfg.Caller(0); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected caller construction to fail, got %v", err)
	}
}

func TestCallerSelectsProvider(t *testing.T) {
	cfg := Defaults()
	cfg.PerplexityAPIKey = "pplx-test"
	c, err := cfg.Caller(0)
	if err != nil {
		t.Fatalf("caller: %v", err)
	}
	if c.ModelName() != "sonar" {
		t.Fatalf("expected sonar, got %q", c.ModelName())
	}
}

func TestMask(t *testing.T) {
	if got := Mask("pplx-abcdefghijklmnop1234"); got != "pplx-abcde...1234" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Mask(""); got != "(not set)" {
		t.Fatalf("unexpected empty mask %q", got)
	}
	if got := Mask("short"); got != "*****" {
		t.Fatalf("unexpected short mask %q", got)
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Defaults()
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.HugoContentDir = filepath.Join(root, "content", "news")
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, d := range []string{cfg.OutputDir, cfg.HugoContentDir} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Fatalf("expected dir %s", d)
		}
	}
}
