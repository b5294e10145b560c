// Package config loads certlister settings from an optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "certlister.toml"

// maxDelaySeconds matches the cap the batch processor enforces on request delays.
const maxDelaySeconds = 3600

// Server contains HTTP listener settings.
type Server struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// PSA contains credentials and endpoints for certificate lookups.
type PSA struct {
	APIToken       string `toml:"api_token"`
	BaseURL        string `toml:"base_url"`
	WebBaseURL     string `toml:"web_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains the LLM provider used for image extraction.
type Vision struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	OllamaURL      string `toml:"ollama_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Batch contains defaults for batch lookups.
type Batch struct {
	DelaySeconds float64 `toml:"delay_seconds"`
}

type Config struct {
	Server Server `toml:"server"`
	PSA    PSA    `toml:"psa"`
	Vision Vision `toml:"vision"`
	Batch  Batch  `toml:"batch"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port: "8888",
		},
		PSA: PSA{
			BaseURL:        "https://api.psacard.com/publicapi",
			WebBaseURL:     "https://www.psacard.com",
			TimeoutSeconds: 15,
		},
		Vision: Vision{
			Provider:       "openai",
			OllamaURL:      "http://localhost:11434",
			TimeoutSeconds: 30,
		},
		Batch: Batch{
			DelaySeconds: 1.0,
		},
	}
}

// Load reads the TOML file at path when it exists, then applies environment
// overrides. A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("PORT", &c.Server.Port)
	str("PSA_API_TOKEN", &c.PSA.APIToken)
	str("PSA_BASE_URL", &c.PSA.BaseURL)
	str("OPENAI_API_KEY", &c.Vision.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &c.Vision.OpenAIBaseURL)
	str("GEMINI_API_KEY", &c.Vision.GeminiAPIKey)
	str("OLLAMA_URL", &c.Vision.OllamaURL)
	str("VISION_PROVIDER", &c.Vision.Provider)
	str("VISION_MODEL", &c.Vision.Model)

	if v, ok := lookup("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("BATCH_DELAY_SECONDS"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid BATCH_DELAY_SECONDS %q: %w", v, err)
		}
		c.Batch.DelaySeconds = f
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port == "" {
		problems = append(problems, "server.port must be set")
	} else if _, err := strconv.Atoi(c.Server.Port); err != nil {
		problems = append(problems, fmt.Sprintf("server.port %q is not a number", c.Server.Port))
	}
	if c.PSA.TimeoutSeconds <= 0 {
		problems = append(problems, "psa.timeout_seconds must be positive")
	}
	if c.Vision.TimeoutSeconds <= 0 {
		problems = append(problems, "vision.timeout_seconds must be positive")
	}
	if c.Batch.DelaySeconds < 0 {
		problems = append(problems, "batch.delay_seconds must not be negative")
	} else if c.Batch.DelaySeconds > maxDelaySeconds {
		problems = append(problems, fmt.Sprintf("batch.delay_seconds must be at most %d", maxDelaySeconds))
	}
	switch strings.ToLower(c.Vision.Provider) {
	case "openai", "gemini", "ollama":
	default:
		problems = append(problems, fmt.Sprintf("vision.provider %q is not one of openai, gemini, ollama", c.Vision.Provider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) PSATimeout() time.Duration {
	return time.Duration(c.PSA.TimeoutSeconds) * time.Second
}

func (c *Config) VisionTimeout() time.Duration {
	return time.Duration(c.Vision.TimeoutSeconds) * time.Second
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Batch.DelaySeconds * float64(time.Second))
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
