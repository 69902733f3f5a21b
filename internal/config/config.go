package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the agent's behaviour. Tests inject their own Config instead of
// relying on these.
const (
	DefaultOllamaModel         = "llama3.2"
	DefaultGeminiModel         = "gemini-2.5-flash"
	DefaultTemperature         = 0.1
	DefaultMaxCorrectionPasses = 2
	DefaultRateLimitDelay      = 1.0 // seconds between processed definitions
	DefaultPort                = 8000
	DefaultOllamaBaseURL       = "http://localhost:11434"
)

// Config is the immutable configuration value threaded into the processor and
// orchestrator at construction. Nothing reads ambient globals at run time.
type Config struct {
	Provider            string  `yaml:"provider"`
	Model               string  `yaml:"model"`
	Temperature         float64 `yaml:"temperature"`
	MaxCorrectionPasses int     `yaml:"max_correction_passes"`
	RateLimitDelay      float64 `yaml:"rate_limit_delay"` // seconds

	Ollama struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"ollama"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"gemini"`
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// Default returns a Config populated with the package defaults.
func Default() *Config {
	cfg := &Config{
		Provider:            "auto",
		Temperature:         DefaultTemperature,
		MaxCorrectionPasses: DefaultMaxCorrectionPasses,
		RateLimitDelay:      DefaultRateLimitDelay,
	}
	cfg.Ollama.BaseURL = DefaultOllamaBaseURL
	cfg.Server.Port = DefaultPort
	return cfg
}

// Load builds the configuration in three layers: defaults, an optional YAML
// file, then environment variables (a .env file is honoured if present). A
// missing config file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("DOCAGENT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("DOCAGENT_MODEL"); v != "" {
		cfg.Model = v
	}

	return cfg, nil
}
