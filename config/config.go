package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingPushover is returned when the Pushover user key or API token is not configured.
	ErrMissingPushover = errors.New("pushover user key and API token are required (PUSHOVER_USER_KEY, PUSHOVER_API_TOKEN)")
	// ErrInvalidTime is returned for schedule times that are not 24-hour HH:MM.
	ErrInvalidTime = errors.New("invalid time of day, want HH:MM")
)

// TomorrowDisabled turns off the tomorrow preview when used as TOMORROW_SUMMARY_TIME.
const TomorrowDisabled = "off"

// Config holds the application configuration.
type Config struct {
	Timezone            string
	CalendarID          string
	SummaryTime         string
	TomorrowSummaryTime string

	PushoverUserKey  string
	PushoverAPIToken string
	PushoverPriority int

	// ConfigDir holds credentials.json, token.json and an optional config.yaml.
	ConfigDir      string
	RequestTimeout time.Duration
	CalendarQPS    float64

	LogLevel    string
	LogEncoding string
	LogFile     string
}

// Load reads configuration from the environment, an optional .env file and an
// optional config.yaml, in that order of precedence. envFile defaults to ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("godotenv.Load(%s): %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaultDir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}
	setDefaults(v, defaultDir)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("config_dir"))
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Timezone:            v.GetString("timezone"),
		CalendarID:          v.GetString("google_calendar_id"),
		SummaryTime:         v.GetString("summary_time"),
		TomorrowSummaryTime: v.GetString("tomorrow_summary_time"),
		PushoverUserKey:     v.GetString("pushover_user_key"),
		PushoverAPIToken:    v.GetString("pushover_api_token"),
		PushoverPriority:    v.GetInt("pushover_priority"),
		ConfigDir:           v.GetString("config_dir"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		CalendarQPS:         v.GetFloat64("calendar_qps"),
		LogLevel:            v.GetString("log_level"),
		LogEncoding:         v.GetString("log_encoding"),
		LogFile:             v.GetString("log_file"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("google_calendar_id", "primary")
	v.SetDefault("summary_time", "08:00")
	v.SetDefault("tomorrow_summary_time", "22:00")
	v.SetDefault("pushover_priority", 0)
	v.SetDefault("config_dir", configDir)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("calendar_qps", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "console")
	v.SetDefault("log_file", "")
}

func defaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to find user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".daybrief"), nil
}

// Validate checks the timezone and the schedule times.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, _, err := ParseClock(c.SummaryTime); err != nil {
		return fmt.Errorf("SUMMARY_TIME: %w", err)
	}
	if c.TomorrowEnabled() {
		if _, _, err := ParseClock(c.TomorrowSummaryTime); err != nil {
			return fmt.Errorf("TOMORROW_SUMMARY_TIME: %w", err)
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.CalendarQPS <= 0 {
		return fmt.Errorf("CALENDAR_QPS must be positive, got %v", c.CalendarQPS)
	}
	return nil
}

// ValidatePushover fails fast when delivery credentials are missing.
func (c *Config) ValidatePushover() error {
	if strings.TrimSpace(c.PushoverUserKey) == "" || strings.TrimSpace(c.PushoverAPIToken) == "" {
		return ErrMissingPushover
	}
	return nil
}

// Location returns the display timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TomorrowEnabled reports whether the tomorrow preview is scheduled.
func (c *Config) TomorrowEnabled() bool {
	s := strings.TrimSpace(strings.ToLower(c.TomorrowSummaryTime))
	return s != "" && s != TomorrowDisabled
}

// ParseClock parses a 24-hour "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Hour(), t.Minute(), nil
}
