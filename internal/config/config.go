package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Workbook sources.
const (
	SourceUpload = "upload"
	SourceGoogle = "google"
)

type Config struct {
	// HTTP server
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Dashboard
	DashboardTitle string `yaml:"dashboard_title"`
	MonthlyBudget  int64  `yaml:"monthly_budget"`
	HeaderRow      int    `yaml:"header_row"`
	ExportPrefix   string `yaml:"export_prefix"`
	SampleSeed     uint64 `yaml:"sample_seed"`

	// Uploads and sessions
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SessionMax     int           `yaml:"session_max"`

	// Workbook source: "upload" or "google"
	WorkbookSource           string `yaml:"workbook_source"`
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleServiceAccountJSON string `yaml:"-"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`

	// Charts
	ChartFormat   string `yaml:"chart_format"`
	ChartFontFile string `yaml:"chart_font_file"`

	// problems found while reading env values; reported by Validate.
	problems []string
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:           "8081",
		LogLevel:       "info",
		DashboardTitle: "뀨군뀨양 가계부 대시보드",
		MonthlyBudget:  400000,
		HeaderRow:      7,
		ExportPrefix:   "뀨군뀨양_가계부",
		SampleSeed:     42,
		MaxUploadBytes: 20 << 20,
		SessionTTL:     30 * time.Minute,
		SessionMax:     500,
		WorkbookSource: SourceUpload,
		ChartFormat:    "svg",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DashboardTitle = getEnv("DASHBOARD_TITLE", c.DashboardTitle)
	c.MonthlyBudget = c.getEnvInt64("MONTHLY_BUDGET", c.MonthlyBudget)
	c.HeaderRow = int(c.getEnvInt64("HEADER_ROW", int64(c.HeaderRow)))
	c.ExportPrefix = getEnv("EXPORT_PREFIX", c.ExportPrefix)
	c.SampleSeed = c.getEnvUint64("SAMPLE_SEED", c.SampleSeed)
	c.MaxUploadBytes = c.getEnvInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.SessionTTL = c.getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.SessionMax = int(c.getEnvInt64("SESSION_MAX", int64(c.SessionMax)))
	c.WorkbookSource = strings.ToLower(getEnv("WORKBOOK_SOURCE", c.WorkbookSource))
	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.ChartFormat = strings.ToLower(getEnv("CHART_FORMAT", c.ChartFormat))
	c.ChartFontFile = getEnv("CHART_FONT_FILE", c.ChartFontFile)
}

// Budget returns MonthlyBudget as a decimal amount.
func (c *Config) Budget() decimal.Decimal {
	return decimal.NewFromInt(c.MonthlyBudget)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MonthlyBudget < 0 {
		problems = append(problems, fmt.Sprintf("invalid monthly budget %d: must not be negative", c.MonthlyBudget))
	}
	if c.HeaderRow < 1 {
		problems = append(problems, fmt.Sprintf("invalid header row %d: must be at least 1", c.HeaderRow))
	}
	if strings.ContainsAny(c.ExportPrefix, `/\"`) {
		problems = append(problems, fmt.Sprintf("invalid export prefix '%s': must not contain path separators or quotes", c.ExportPrefix))
	}
	if c.MaxUploadBytes < 1024 {
		problems = append(problems, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}
	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at most 24 hours", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		problems = append(problems, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}

	validSources := []string{SourceUpload, SourceGoogle}
	if !slices.Contains(validSources, c.WorkbookSource) {
		problems = append(problems, fmt.Sprintf("invalid workbook source '%s': must be one of %v", c.WorkbookSource, validSources))
	}
	if c.WorkbookSource == SourceGoogle {
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "GOOGLE_SPREADSHEET_ID is required when using the google workbook source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, os.ErrNotExist) {
				problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	validFormats := []string{"svg", "png"}
	if !slices.Contains(validFormats, c.ChartFormat) {
		problems = append(problems, fmt.Sprintf("invalid chart format '%s': must be one of %v", c.ChartFormat, validFormats))
	}
	if c.ChartFontFile != "" {
		if _, err := os.Stat(c.ChartFontFile); errors.Is(err, os.ErrNotExist) {
			problems = append(problems, fmt.Sprintf("chart font file does not exist: %s", c.ChartFontFile))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(strings.ReplaceAll(value, "_", ""), 10, 64)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be an integer", key, value))
		return defaultValue
	}
	return i
}

func (c *Config) getEnvUint64(key string, defaultValue uint64) uint64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be a non-negative integer", key, value))
		return defaultValue
	}
	return u
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be a duration like 30m", key, value))
		return defaultValue
	}
	return d
}
