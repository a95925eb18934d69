package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides. Nested keys use a double
// underscore, e.g. ZANZARA_OPENAI__ANALYSIS_MODEL.
const EnvPrefix = "ZANZARA_"

// DefaultFile is picked up from the working directory when no path is given.
const DefaultFile = "zanzara.toml"

type Config struct {
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`
	Port        string `koanf:"port"`

	OpenAI    OpenAI    `koanf:"openai"`
	Templates Templates `koanf:"templates"`
	Media     Media     `koanf:"media"`
	Mock      Mock      `koanf:"mock"`
	Dataset   Dataset   `koanf:"dataset"`
}

type OpenAI struct {
	APIKey             string  `koanf:"api_key"`
	BaseURL            string  `koanf:"base_url"`
	TranscriptionModel string  `koanf:"transcription_model"`
	AnalysisModel      string  `koanf:"analysis_model"`
	Temperature        float32 `koanf:"temperature"`
	// Timeout bounds each vendor HTTP call. Zero keeps the client default.
	Timeout time.Duration `koanf:"timeout"`
}

type Templates struct {
	PromptFile     string `koanf:"prompt_file"`
	ExamplesDir    string `koanf:"examples_dir"`
	ExamplePattern string `koanf:"example_pattern"`
	NumExamples    int    `koanf:"num_examples"`
}

type Media struct {
	MaxBytes        int64         `koanf:"max_bytes"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout"`
	FetchMaxElapsed time.Duration `koanf:"fetch_max_elapsed"`
}

type Mock struct {
	Transcribe bool `koanf:"transcribe"`
	LLM        bool `koanf:"llm"`
}

type Dataset struct {
	Path      string `koanf:"path"`
	DemoLimit int    `koanf:"demo_limit"`
}

// legacyEnv keeps the plain variable names the service has always read.
var legacyEnv = map[string]string{
	"OPENAI_API_KEY":      "openai.api_key",
	"OPENAI_BASE_URL":     "openai.base_url",
	"PORT":                "port",
	"ENVIRONMENT":         "environment",
	"LOG_LEVEL":           "log_level",
	"USE_MOCK_TRANSCRIBE": "mock.transcribe",
	"USE_MOCK_LLM":        "mock.llm",
	"DATASET_PATH":        "dataset.path",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"environment":                "local",
		"log_level":                  "info",
		"port":                       "8080",
		"openai.base_url":            "",
		"openai.transcription_model": "whisper-1",
		"openai.analysis_model":      "gpt-4o",
		"openai.temperature":         0.8,
		"openai.timeout":             time.Duration(0),
		"templates.prompt_file":      "prompt.txt",
		"templates.examples_dir":     "esempi",
		"templates.example_pattern":  "zanzara%d.txt",
		"templates.num_examples":     6,
		"media.max_bytes":            int64(25 * 1024 * 1024),
		"media.fetch_timeout":        30 * time.Second,
		"media.fetch_max_elapsed":    20 * time.Second,
		"mock.transcribe":            false,
		"mock.llm":                   false,
		"dataset.path":               "",
		"dataset.demo_limit":         5,
	}
}

// Load layers defaults, an optional TOML file and the environment. A .env
// file in the working directory is read first and never overrides variables
// that are already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return legacyEnv[key], value
	}), nil); err != nil {
		return nil, fmt.Errorf("load legacy env: %w", err)
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKey(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.TranscriptionModel == "" {
		errs = append(errs, errors.New("openai.transcription_model is required"))
	}
	if c.OpenAI.AnalysisModel == "" {
		errs = append(errs, errors.New("openai.analysis_model is required"))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature %.2f outside [0, 2]", c.OpenAI.Temperature))
	}
	if c.Templates.PromptFile == "" {
		errs = append(errs, errors.New("templates.prompt_file is required"))
	}
	if c.Templates.NumExamples < 0 {
		errs = append(errs, fmt.Errorf("templates.num_examples %d is negative", c.Templates.NumExamples))
	}
	if c.Templates.NumExamples > 0 && !strings.Contains(c.Templates.ExamplePattern, "%d") {
		errs = append(errs, fmt.Errorf("templates.example_pattern %q needs a %%d verb", c.Templates.ExamplePattern))
	}
	if c.Media.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("media.max_bytes %d must be positive", c.Media.MaxBytes))
	}
	return errors.Join(errs...)
}

// MockOnly reports whether neither stage talks to the vendor.
func (c *Config) MockOnly() bool {
	return c.Mock.Transcribe && c.Mock.LLM
}
