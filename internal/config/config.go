package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/perplexity"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"
)

var ErrMissingCredential = errors.New("missing API credential")

// Config is the settings value handed to every tool. Field tags name the
// keys accepted in the optional YAML file.
type Config struct {
	Provider             string  `yaml:"provider"`
	PerplexityAPIKey     string  `yaml:"perplexity_api_key"`
	PerplexityURL        string  `yaml:"perplexity_api_url"`
	Model                string  `yaml:"model"`
	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`
	AnthropicModel       string  `yaml:"anthropic_model"`
	MaxTokens            int     `yaml:"max_tokens"`
	Temperature          float64 `yaml:"temperature"`
	DaysToSearch         int     `yaml:"days_to_search"`
	MaxResultsPerCompany int     `yaml:"max_results_per_company"`
	BatchSize            int     `yaml:"batch_size"`
	RequireCategory      bool    `yaml:"require_category"`
	OutputDir            string  `yaml:"output_dir"`
	HugoContentDir       string  `yaml:"hugo_content_dir"`
	CompaniesFile        string  `yaml:"companies_file"`
	NewsFile             string  `yaml:"news_file"`
	DigestFile           string  `yaml:"digest_file"`
}

func Defaults() Config {
	return Config{
		Provider:             ProviderPerplexity,
		PerplexityURL:        perplexity.DefaultURL,
		Model:                perplexity.DefaultModel,
		AnthropicModel:       llm.DefaultAnthropicModel,
		MaxTokens:            perplexity.DefaultMaxTokens,
		Temperature:          perplexity.DefaultTemperature,
		DaysToSearch:         7,
		MaxResultsPerCompany: 3,
		BatchSize:            10,
		OutputDir:            "./output",
		HugoContentDir:       "./content/news",
		CompaniesFile:        "companies.xlsx",
		NewsFile:             "companies_news.xlsx",
		DigestFile:           "news_digest.xlsx",
	}
}

// Load layers defaults, a .env file in the working directory, the YAML file
// named by NEWSGEN_CONFIG and finally the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config dotenv_skipped err=%q", err.Error())
	}
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("NEWSGEN_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("config invalid_int key=%s value=%q", key, v)
			return
		}
		*dst = n
	}
	str("NEWSGEN_PROVIDER", &c.Provider)
	str("PERPLEXITY_API_KEY", &c.PerplexityAPIKey)
	str("PERPLEXITY_API_URL", &c.PerplexityURL)
	str("NEWSGEN_MODEL", &c.Model)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	str("NEWSGEN_ANTHROPIC_MODEL", &c.AnthropicModel)
	num("NEWSGEN_MAX_TOKENS", &c.MaxTokens)
	num("NEWSGEN_DAYS_TO_SEARCH", &c.DaysToSearch)
	num("NEWSGEN_MAX_RESULTS_PER_COMPANY", &c.MaxResultsPerCompany)
	num("NEWSGEN_BATCH_SIZE", &c.BatchSize)
	str("NEWSGEN_OUTPUT_DIR", &c.OutputDir)
	str("NEWSGEN_HUGO_CONTENT_DIR", &c.HugoContentDir)
	str("NEWSGEN_COMPANIES_FILE", &c.CompaniesFile)
	str("NEWSGEN_NEWS_FILE", &c.NewsFile)
	str("NEWSGEN_DIGEST_FILE", &c.DigestFile)
	if v := strings.TrimSpace(getenv("NEWSGEN_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		} else {
			log.Printf("config invalid_float key=NEWSGEN_TEMPERATURE value=%q", v)
		}
	}
	if v := strings.TrimSpace(getenv("NEWSGEN_REQUIRE_CATEGORY")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RequireCategory = b
		} else {
			log.Printf("config invalid_bool key=NEWSGEN_REQUIRE_CATEGORY value=%q", v)
		}
	}
	c.Provider = strings.ToLower(c.Provider)
}

// Validate reports a missing credential for the selected provider.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderPerplexity:
		if c.PerplexityAPIKey == "" {
			return fmt.Errorf("%w: PERPLEXITY_API_KEY is not set", ErrMissingCredential)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.OutputDir, c.HugoContentDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Caller builds the completion client for the selected provider with the
// given per-request timeout.
func (c Config) Caller(timeout time.Duration) (llm.Caller, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Provider == ProviderAnthropic {
		a, err := llm.NewAnthropicCaller(c.AnthropicAPIKey, c.AnthropicModel, c.MaxTokens, c.Temperature)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	p, err := perplexity.New(perplexity.Config{
		APIKey:      c.PerplexityAPIKey,
		URL:         c.PerplexityURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c Config) Key() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.PerplexityAPIKey
}

// Mask shows the first 10 and last 4 characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 14 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:10] + "..." + secret[len(secret)-4:]
}

// Describe lists the effective settings as label/value pairs.
func (c Config) Describe() [][2]string {
	model := c.Model
	endpoint := c.PerplexityURL
	if c.Provider == ProviderAnthropic {
		model = c.AnthropicModel
		endpoint = "anthropic messages API"
	}
	return [][2]string{
		{"Provider", c.Provider},
		{"API key", Mask(c.Key())},
		{"Endpoint", endpoint},
		{"Model", model},
		{"Max tokens", strconv.Itoa(c.MaxTokens)},
		{"Temperature", strconv.FormatFloat(c.Temperature, 'f', -1, 64)},
		{"Days to search", strconv.Itoa(c.DaysToSearch)},
		{"Batch size", strconv.Itoa(c.BatchSize)},
		{"Require category", strconv.FormatBool(c.RequireCategory)},
		{"Output dir", c.OutputDir},
		{"Hugo content dir", c.HugoContentDir},
		{"Companies file", c.CompaniesFile},
		{"News file", c.NewsFile},
		{"Digest file", c.DigestFile},
	}
}
