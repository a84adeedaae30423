package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// HTTPConfig describes the public listener serving webhooks, health and metrics.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
	// BodyLimitBytes caps inbound webhook payloads; 0 -> 1 MiB.
	BodyLimitBytes int64 `yaml:"body_limit_bytes" envconfig:"HTTP_BODY_LIMIT_BYTES"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	Token         string `yaml:"token" envconfig:"WHATSAPP_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `yaml:"verify_token" envconfig:"VERIFY_TOKEN"`
	// AppSecret enables X-Hub-Signature-256 verification when set.
	AppSecret  string `yaml:"app_secret" envconfig:"WHATSAPP_APP_SECRET"`
	APIBaseURL string `yaml:"api_base_url" envconfig:"WHATSAPP_API_BASE_URL"`
	APIVersion string `yaml:"api_version" envconfig:"WHATSAPP_API_VERSION"`
}

// TelegramConfig enables the optional Telegram transport.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// AIConfig configures the OpenAI-compatible chat completion endpoint.
type AIConfig struct {
	APIKey      string  `yaml:"api_key" envconfig:"DEEPSEEK_API_KEY"`
	BaseURL     string  `yaml:"base_url" envconfig:"AI_BASE_URL"`
	Model       string  `yaml:"model" envconfig:"AI_MODEL"`
	MaxTokens   int64   `yaml:"max_tokens" envconfig:"AI_MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" envconfig:"AI_TEMPERATURE"`
}

// ConversationConfig tunes the dialog engine.
type ConversationConfig struct {
	// CollaboratorTimeoutMS bounds every directory, credential and AI call.
	CollaboratorTimeoutMS int `yaml:"collaborator_timeout_ms" envconfig:"CONVERSATION_COLLABORATOR_TIMEOUT_MS"`
	// MaxAttempts bounds optimistic re-evaluation when a sender's session changes mid-flight.
	MaxAttempts int `yaml:"max_attempts" envconfig:"CONVERSATION_MAX_ATTEMPTS"`
}

// OutboundConfig controls the reply dispatcher.
type OutboundConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"OUTBOUND_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"OUTBOUND_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"OUTBOUND_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"OUTBOUND_RETRY_BACKOFF_MS"`
	MaxDurationMS  int `yaml:"max_duration_ms" envconfig:"OUTBOUND_MAX_DURATION_MS"`
}

// DedupConfig bounds the inbound message-id retention window.
type DedupConfig struct {
	WindowSeconds int `yaml:"window_seconds" envconfig:"DEDUP_WINDOW_SECONDS"`
	MaxEntries    int `yaml:"max_entries" envconfig:"DEDUP_MAX_ENTRIES"`
}

// RateLimitConfig holds per-sender rate limiting settings. IntervalMS 0 disables limiting.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst      int `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// CredentialConfig configures secret hashing.
type CredentialConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST"`
}

// TracingConfig enables OTLP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" envconfig:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" envconfig:"OTEL_SERVICE_NAME"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	defaultHTTPPort      = 3000
	defaultBodyLimit     = 1 << 20
	defaultWhatsAppAPI   = "https://graph.facebook.com"
	defaultWhatsAppVer   = "v20.0"
	defaultAIBaseURL     = "https://api.deepseek.com"
	defaultAIModel       = "deepseek-chat"
	defaultAIMaxTokens   = 300
	defaultAITemperature = 0.7
	defaultCollabTimeout = 10000
	defaultMaxAttempts   = 4
	defaultDedupWindow   = 600
	defaultDedupEntries  = 10000
	defaultBcryptCost    = 10
	defaultServiceName   = "arafat-chatbot"
)

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	WhatsApp     WhatsAppConfig     `yaml:"whatsapp"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	AI           AIConfig           `yaml:"ai"`
	Conversation ConversationConfig `yaml:"conversation"`
	Outbound     OutboundConfig     `yaml:"outbound"`
	Dedup        DedupConfig        `yaml:"dedup"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Credential   CredentialConfig   `yaml:"credential"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so the bot can run from environment alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path and then from the environment.
// dst may be any struct carrying yaml/envconfig tags, which lets binaries
// extend Config with their own sections.
func Decode(path string, dst any) error {
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, dst); err != nil {
				return fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultHTTPPort
	}
	if cfg.HTTP.Port < 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	if cfg.HTTP.BodyLimitBytes <= 0 {
		cfg.HTTP.BodyLimitBytes = defaultBodyLimit
	}

	if strings.TrimSpace(cfg.WhatsApp.Token) == "" && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("at least one transport is required: set whatsapp.token or telegram.token")
	}
	if strings.TrimSpace(cfg.WhatsApp.Token) != "" {
		if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
			return fmt.Errorf("whatsapp.phone_number_id is required when whatsapp.token is set")
		}
		if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
			return fmt.Errorf("whatsapp.verify_token is required when whatsapp.token is set")
		}
	}
	if cfg.WhatsApp.APIBaseURL == "" {
		cfg.WhatsApp.APIBaseURL = defaultWhatsAppAPI
	}
	cfg.WhatsApp.APIBaseURL = strings.TrimRight(cfg.WhatsApp.APIBaseURL, "/")
	if cfg.WhatsApp.APIVersion == "" {
		cfg.WhatsApp.APIVersion = defaultWhatsAppVer
	}

	if err := normalizeTelegram(cfg); err != nil {
		return err
	}

	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultAIModel
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = defaultAIMaxTokens
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = defaultAITemperature
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2]")
	}

	if cfg.Conversation.CollaboratorTimeoutMS <= 0 {
		cfg.Conversation.CollaboratorTimeoutMS = defaultCollabTimeout
	}
	if cfg.Conversation.MaxAttempts <= 0 {
		cfg.Conversation.MaxAttempts = defaultMaxAttempts
	}

	if cfg.Outbound.MaxRetries < 0 {
		return fmt.Errorf("outbound.max_retries must be >= 0")
	}

	if cfg.Dedup.WindowSeconds == 0 {
		cfg.Dedup.WindowSeconds = defaultDedupWindow
	}
	if cfg.Dedup.MaxEntries == 0 {
		cfg.Dedup.MaxEntries = defaultDedupEntries
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}

	if cfg.Credential.BcryptCost == 0 {
		cfg.Credential.BcryptCost = defaultBcryptCost
	}
	if cfg.Credential.BcryptCost < 4 || cfg.Credential.BcryptCost > 31 {
		return fmt.Errorf("credential.bcrypt_cost must be within [4, 31]")
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = defaultServiceName
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return nil
	}
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port == cfg.HTTP.Port {
			return fmt.Errorf("webhook.port must differ from http.port")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

// CollaboratorTimeout returns the per-call collaborator deadline.
func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.Conversation.CollaboratorTimeoutMS) * time.Millisecond
}

// WhatsAppEnabled reports whether the WhatsApp transport is configured.
func (c *Config) WhatsAppEnabled() bool {
	return strings.TrimSpace(c.WhatsApp.Token) != ""
}

// TelegramEnabled reports whether the Telegram transport is configured.
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.Telegram.Token) != ""
}
