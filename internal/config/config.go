package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, resolved once at
// startup and injected into every component. Nothing reads bot
// credentials per request.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	AI       AIConfig       `yaml:"ai"`
	Webview  WebviewConfig  `yaml:"webview"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	// UseMemoryStore swaps Postgres for the in-memory store (testing only)
	UseMemoryStore bool `yaml:"use_memory_store"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	// WebhookSecret is compared against X-Telegram-Bot-Api-Secret-Token
	WebhookSecret string `yaml:"webhook_secret"`
}

// WhatsAppConfig selects one of two outbound transports: the Meta Cloud
// API (default, matches the inbound webhook shape) or Twilio.
type WhatsAppConfig struct {
	Transport     string `yaml:"transport"` // "meta" or "twilio"
	PhoneNumberID string `yaml:"phone_number_id"`
	AccessToken   string `yaml:"access_token"`
	VerifyToken   string `yaml:"verify_token"`
	AppSecret     string `yaml:"app_secret"`

	TwilioAccountSID string `yaml:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token"`
	TwilioFrom       string `yaml:"twilio_from"`
}

type AIConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     Duration `yaml:"timeout"`
}

// Duration wraps time.Duration so YAML values like "30s" parse
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type WebviewConfig struct {
	// BaseURL hosts the PIN-entry confirmation surface
	BaseURL string `yaml:"base_url"`
}

// Load reads the YAML config at path, after loading .env so ${VAR}
// references resolve from the environment.
func Load(path string) (*Config, error) {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "gestpay",
			SSLMode: "disable",
		},
		Log: LogConfig{Level: "info"},
		WhatsApp: WhatsAppConfig{
			Transport: "meta",
		},
		AI: AIConfig{
			BaseURL:     "https://api.a4f.co/v1",
			Model:       "provider-3/gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   300,
			Timeout:     Duration{30 * time.Second},
		},
	}
}

func (c *Config) validate() error {
	switch c.WhatsApp.Transport {
	case "meta", "twilio":
	default:
		return fmt.Errorf("whatsapp.transport must be meta or twilio, got %q", c.WhatsApp.Transport)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature out of range: %v", c.AI.Temperature)
	}
	return nil
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}
