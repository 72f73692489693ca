package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	Telegram TelegramConfig
	Stooq    StooqConfig
	Finviz   FinvizConfig
	Finnhub  FinnhubConfig

	// Analysis
	Scan      ScanConfig
	Estimator EstimatorConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// TelegramConfig holds Telegram Bot API configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Enabled  bool
}

// StooqConfig holds the daily OHLCV CSV endpoint configuration
type StooqConfig struct {
	BaseURL string
}

// FinvizConfig holds the quote-scrape fallback configuration
type FinvizConfig struct {
	BaseURL string
}

// FinnhubConfig holds the realtime trade feed configuration
type FinnhubConfig struct {
	APIKey string
	WSURL  string
}

// ScanConfig holds the daily scan parameters
type ScanConfig struct {
	Universe        []string // symbols swept by the daily scan
	MinProbability  float64  // alerts below this final probability are dropped
	StrikeOffsetPct float64
	DaysToExpiry    int
	MinDaysToExpiry int // allowed contract horizon
	MaxDaysToExpiry int
	Schedule        string // cron expression (with seconds)
}

// EstimatorConfig holds Monte Carlo defaults
type EstimatorConfig struct {
	NumPaths     int
	RiskFreeRate float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
		},

		Stooq: StooqConfig{
			BaseURL: getEnv("STOOQ_BASE_URL", "https://stooq.com"),
		},

		Finviz: FinvizConfig{
			BaseURL: getEnv("FINVIZ_BASE_URL", "https://finviz.com"),
		},

		Finnhub: FinnhubConfig{
			APIKey: getEnv("FINNHUB_API_KEY", ""),
			WSURL:  getEnv("FINNHUB_WS_URL", "wss://ws.finnhub.io"),
		},

		Scan: ScanConfig{
			Universe:        getEnvAsList("SCAN_UNIVERSE", "SPY,QQQ,AAPL,MSFT,NVDA,AMZN,GOOGL,META,TSLA,AMD"),
			MinProbability:  getEnvAsFloat("SCAN_MIN_PROBABILITY", 65),
			StrikeOffsetPct: getEnvAsFloat("SCAN_STRIKE_OFFSET_PCT", 4),
			DaysToExpiry:    getEnvAsInt("SCAN_DAYS_TO_EXPIRY", 30),
			MinDaysToExpiry: getEnvAsInt("SCAN_MIN_DAYS_TO_EXPIRY", 7),
			MaxDaysToExpiry: getEnvAsInt("SCAN_MAX_DAYS_TO_EXPIRY", 45),
			// Weekdays at 09:35 ET, after the open settles
			Schedule: getEnv("SCAN_SCHEDULE", "0 35 9 * * 1-5"),
		},

		Estimator: EstimatorConfig{
			NumPaths:     getEnvAsInt("ESTIMATOR_NUM_PATHS", 10000),
			RiskFreeRate: getEnvAsFloat("ESTIMATOR_RISK_FREE_RATE", 0.045),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED=true")
	}

	if c.Scan.MinDaysToExpiry < 1 || c.Scan.MaxDaysToExpiry < c.Scan.MinDaysToExpiry {
		return fmt.Errorf("invalid expiry horizon: min=%d max=%d", c.Scan.MinDaysToExpiry, c.Scan.MaxDaysToExpiry)
	}
	if c.Scan.DaysToExpiry < c.Scan.MinDaysToExpiry || c.Scan.DaysToExpiry > c.Scan.MaxDaysToExpiry {
		return fmt.Errorf("SCAN_DAYS_TO_EXPIRY=%d outside horizon %d-%d",
			c.Scan.DaysToExpiry, c.Scan.MinDaysToExpiry, c.Scan.MaxDaysToExpiry)
	}

	if len(c.Scan.Universe) == 0 {
		return fmt.Errorf("SCAN_UNIVERSE must contain at least one symbol")
	}

	if c.Estimator.NumPaths <= 0 {
		return fmt.Errorf("ESTIMATOR_NUM_PATHS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
