package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
)

const envPrefix = "CITYGUIDE_"

var serverModes = []string{gin.DebugMode, gin.ReleaseMode, gin.TestMode}

// Config holds every setting the chat backend reads at startup.
type Config struct {
	Server struct {
		Addr string `koanf:"addr"`
		Mode string `koanf:"mode"`
	} `koanf:"server"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`

	OpenAI struct {
		APIKey         string        `koanf:"api_key"`
		BaseURL        string        `koanf:"base_url"`
		Model          string        `koanf:"model"`
		AssistantID    string        `koanf:"assistant_id"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"openai"`

	Maps struct {
		APIKey            string  `koanf:"api_key"`
		BaseURL           string  `koanf:"base_url"`
		Language          string  `koanf:"language"`
		RequestsPerSecond float64 `koanf:"requests_per_second"`
	} `koanf:"maps"`

	Events struct {
		BaseURL   string        `koanf:"base_url"`
		Timeout   time.Duration `koanf:"timeout"`
		UserAgent string        `koanf:"user_agent"`
	} `koanf:"events"`

	City struct {
		Name    string `koanf:"name"`
		Country string `koanf:"country"`
	} `koanf:"city"`

	Assistant struct {
		PollInterval  time.Duration `koanf:"poll_interval"`
		MaxWait       time.Duration `koanf:"max_wait"`
		MaxToolRounds int           `koanf:"max_tool_rounds"`
	} `koanf:"assistant"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":               ":8080",
		"server.mode":               "release",
		"log.level":                 "info",
		"log.pretty":                false,
		"openai.model":              "gpt-4o-mini",
		"openai.request_timeout":    "30s",
		"maps.base_url":             "https://maps.googleapis.com/maps/api",
		"maps.language":             "en",
		"maps.requests_per_second":  5.0,
		"events.base_url":           "https://kalendars.liepaja.lv/lv/",
		"events.timeout":            "10s",
		"events.user_agent":         "LiepajaStudyBot/1.0 (+http://example.com)",
		"city.name":                 "Liepāja",
		"city.country":              "Latvia",
		"assistant.poll_interval":   "1s",
		"assistant.max_wait":        "60s",
		"assistant.max_tool_rounds": 1,
	}
}

// LoadConfig layers defaults, an optional TOML file and CITYGUIDE_* environment
// variables, in that order.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	// CITYGUIDE_OPENAI_API_KEY -> openai.api_key; only the first underscore
	// separates the section from the key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = GetOpenAIKey()
	}
	if cfg.Maps.APIKey == "" {
		cfg.Maps.APIKey = GetMapsKey()
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot run with. Missing API keys are
// not errors: the affected services report themselves as unavailable instead.
func Validate(cfg *Config) error {
	if !lo.Contains(serverModes, cfg.Server.Mode) {
		return fmt.Errorf("server mode %q must be one of %s", cfg.Server.Mode, strings.Join(serverModes, ", "))
	}
	if cfg.OpenAI.RequestTimeout <= 0 {
		return fmt.Errorf("openai request_timeout must be positive")
	}
	if cfg.City.Name == "" {
		return fmt.Errorf("city name is required")
	}
	if cfg.Assistant.PollInterval <= 0 {
		return fmt.Errorf("assistant poll_interval must be positive")
	}
	if cfg.Assistant.MaxWait < cfg.Assistant.PollInterval {
		return fmt.Errorf("assistant max_wait must be at least poll_interval")
	}
	if cfg.Assistant.MaxToolRounds < 1 {
		return fmt.Errorf("assistant max_tool_rounds must be at least 1")
	}
	return nil
}

func GetOpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func GetMapsKey() string {
	return os.Getenv("MAPS_API_KEY")
}
