package llm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the `llm:` block of config.yaml. BaseURL points Chat at any
// OpenAI-compatible endpoint; an empty APIKey falls back to the provider's
// conventional environment variable.
type Config struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type configFile struct {
	LLM Config `yaml:"llm"`
}

// Timeout returns the per-request deadline; zero means no explicit timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("Config: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return errors.New("Config: missing model_name")
	}
	if c.APIKey == "" {
		return errors.New("Config: missing api_key (set it in config.yaml or the environment)")
	}
	return nil
}

// LoadConfig reads the YAML file at path and resolves environment fallbacks.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: parse %s: %w", path, err)
	}

	cfg := f.LLM
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv(cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}
	return cfg, nil
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
