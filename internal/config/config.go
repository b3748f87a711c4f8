package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
)

// APIKeyEnv is consulted when llm.api_key is left empty.
const APIKeyEnv = "DEEPSEEK_API_KEY"

type Config struct {
	OutputPath   string          `yaml:"output_path"`
	LookbackDays int             `yaml:"lookback_days"`
	Schedule     string          `yaml:"schedule"`
	RunOnStart   bool            `yaml:"run_on_start"`
	LLM          LLMConfig       `yaml:"llm"`
	Publisher    PublisherConfig `yaml:"publisher"`
	History      HistoryConfig   `yaml:"history"`
}

type LLMConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	APIKey             string        `yaml:"api_key"`
	Temperature        *float64      `yaml:"temperature"`
	MaxTokens          int           `yaml:"max_tokens"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	MaxRetries         int           `yaml:"max_retries"`
}

type PublisherConfig struct {
	Web     WebConfig     `yaml:"web"`
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	PageURL    string `yaml:"page_url"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.OutputPath == "" {
		cfg.OutputPath = "index.html"
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = brief.DefaultLookbackDays
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = brief.DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.LLM.BaseURL, "/") {
		cfg.LLM.BaseURL += "/"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = brief.DefaultModel
	}
	// An unexpanded ${VAR} means the variable is unset.
	if envVarRegex.MatchString(cfg.LLM.APIKey) {
		cfg.LLM.APIKey = ""
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(APIKeyEnv)
	}
	if cfg.LLM.Temperature == nil {
		t := brief.DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = brief.DefaultMaxTokens
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = brief.DefaultTimeout
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
}

// validate checks everything except the API key, whose absence is reported
// by the generator itself.
func validate(cfg *Config) error {
	if cfg.LookbackDays < 1 {
		return fmt.Errorf("config: lookback_days must be at least 1, got %d", cfg.LookbackDays)
	}
	if t := *cfg.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("config: llm.temperature must be between 0 and 2, got %v", t)
	}
	if cfg.LLM.MaxTokens < 1 {
		return fmt.Errorf("config: llm.max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("config: llm.max_retries must not be negative, got %d", cfg.LLM.MaxRetries)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("config: invalid schedule %q: %w", cfg.Schedule, err)
		}
	}
	if cfg.Publisher.Email.SMTPHost != "" {
		if len(cfg.Publisher.Email.To) == 0 {
			return fmt.Errorf("config: publisher.email.to is required for email publisher")
		}
		if cfg.Publisher.Email.From == "" {
			return fmt.Errorf("config: publisher.email.from is required for email publisher")
		}
	}
	return nil
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	var cfg Config
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault is Load, falling back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return cfg, err
}
