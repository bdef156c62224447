package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	DatabasePath string `json:"database_path"`
	APIPort      string `json:"api_port"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	JWTSecret    string `json:"jwt_secret"`
	CORSOrigins  string `json:"cors_origins"` // 逗号分隔，* 表示全部

	// Scheduler
	PollIntervalMinutes    int `json:"poll_interval_minutes"`
	RespondIntervalMinutes int `json:"respond_interval_minutes"`
	HealthIntervalMinutes  int `json:"health_interval_minutes"`
	SummaryHour            int `json:"summary_hour"` // hour of day (0-23) for the daily summary
	BatchSize              int `json:"batch_size"`

	// Auto-response
	MaxResponseLength int `json:"max_response_length"`

	// LLM providers
	DefaultProvider string `json:"default_provider"`
	OpenAIAPIKey    string `json:"openai_api_key"`
	OpenAIBaseURL   string `json:"openai_base_url"`
	OpenAIModel     string `json:"openai_model"`
	DeepSeekAPIKey  string `json:"deepseek_api_key"`
	DeepSeekBaseURL string `json:"deepseek_base_url"`
	DeepSeekModel   string `json:"deepseek_model"`

	// Inbound mailbox (IMAP/SMTP)
	IMAPHost           string `json:"imap_host"`
	IMAPPort           int    `json:"imap_port"`
	SMTPHost           string `json:"smtp_host"`
	SMTPPort           int    `json:"smtp_port"`
	MailUsername       string `json:"mail_username"`
	MailPassword       string `json:"mail_password"`
	MailUseSSL         bool   `json:"mail_use_ssl"`
	MailAuthType       string `json:"mail_auth_type"` // password or oauth2
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleRefreshToken string `json:"google_refresh_token"`

	// Push channel (Twilio WhatsApp)
	TwilioAccountSID string `json:"twilio_account_sid"`
	TwilioAuthToken  string `json:"twilio_auth_token"`
	TwilioFromNumber string `json:"twilio_from_number"`
}

// Default configuration values
const (
	DefaultDatabasePath    = "data/assistant.db"
	DefaultAPIPort         = "8080"
	DefaultLogLevel        = "INFO"
	DefaultDataDir         = "data"
	DefaultJWTSecret       = "email-assistant-default-secret-change-in-production"
	DefaultCORSOrigins     = "*"
	DefaultPollInterval    = 5
	DefaultRespondInterval = 10
	DefaultHealthInterval  = 60
	DefaultSummaryHour     = 20
	DefaultBatchSize       = 50
	DefaultMaxRespLength   = 1000
	DefaultProviderName    = "openai"
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:           DefaultDatabasePath,
		APIPort:                DefaultAPIPort,
		LogLevel:               DefaultLogLevel,
		DataDir:                DefaultDataDir,
		JWTSecret:              DefaultJWTSecret,
		CORSOrigins:            DefaultCORSOrigins,
		PollIntervalMinutes:    DefaultPollInterval,
		RespondIntervalMinutes: DefaultRespondInterval,
		HealthIntervalMinutes:  DefaultHealthInterval,
		SummaryHour:            DefaultSummaryHour,
		BatchSize:              DefaultBatchSize,
		MaxResponseLength:      DefaultMaxRespLength,
		DefaultProvider:        DefaultProviderName,
		IMAPPort:               993,
		SMTPPort:               587,
		MailUseSSL:             true,
		MailAuthType:           "password",
	}

	// Config file is optional
	_ = cfg.loadFromFile()

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return json.Unmarshal(data, c)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	setStr := func(dst *string, key string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(dst *int, key string) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}

	setStr(&c.DatabasePath, "ASSISTANT_DATABASE_PATH")
	setStr(&c.APIPort, "ASSISTANT_API_PORT")
	setStr(&c.LogLevel, "ASSISTANT_LOG_LEVEL")
	setStr(&c.DataDir, "ASSISTANT_DATA_DIR")
	setStr(&c.JWTSecret, "ASSISTANT_JWT_SECRET")
	setStr(&c.CORSOrigins, "ASSISTANT_CORS_ORIGINS")

	setInt(&c.PollIntervalMinutes, "ASSISTANT_POLL_INTERVAL_MINUTES")
	setInt(&c.RespondIntervalMinutes, "ASSISTANT_RESPOND_INTERVAL_MINUTES")
	setInt(&c.HealthIntervalMinutes, "ASSISTANT_HEALTH_INTERVAL_MINUTES")
	setInt(&c.SummaryHour, "ASSISTANT_SUMMARY_HOUR")
	setInt(&c.BatchSize, "ASSISTANT_BATCH_SIZE")
	setInt(&c.MaxResponseLength, "ASSISTANT_MAX_RESPONSE_LENGTH")

	setStr(&c.DefaultProvider, "ASSISTANT_DEFAULT_PROVIDER")
	setStr(&c.OpenAIAPIKey, "ASSISTANT_OPENAI_API_KEY")
	setStr(&c.OpenAIBaseURL, "ASSISTANT_OPENAI_BASE_URL")
	setStr(&c.OpenAIModel, "ASSISTANT_OPENAI_MODEL")
	setStr(&c.DeepSeekAPIKey, "ASSISTANT_DEEPSEEK_API_KEY")
	setStr(&c.DeepSeekBaseURL, "ASSISTANT_DEEPSEEK_BASE_URL")
	setStr(&c.DeepSeekModel, "ASSISTANT_DEEPSEEK_MODEL")

	setStr(&c.IMAPHost, "ASSISTANT_IMAP_HOST")
	setInt(&c.IMAPPort, "ASSISTANT_IMAP_PORT")
	setStr(&c.SMTPHost, "ASSISTANT_SMTP_HOST")
	setInt(&c.SMTPPort, "ASSISTANT_SMTP_PORT")
	setStr(&c.MailUsername, "ASSISTANT_MAIL_USERNAME")
	setStr(&c.MailPassword, "ASSISTANT_MAIL_PASSWORD")
	setStr(&c.MailAuthType, "ASSISTANT_MAIL_AUTH_TYPE")
	setStr(&c.GoogleClientID, "GOOGLE_CLIENT_ID")
	setStr(&c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	setStr(&c.GoogleRefreshToken, "GOOGLE_REFRESH_TOKEN")

	setStr(&c.TwilioAccountSID, "TWILIO_ACCOUNT_SID")
	setStr(&c.TwilioAuthToken, "TWILIO_AUTH_TOKEN")
	setStr(&c.TwilioFromNumber, "TWILIO_FROM_NUMBER")
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
