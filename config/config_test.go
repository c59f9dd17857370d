package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	for _, k := range []string{"TIMEZONE", "GOOGLE_CALENDAR_ID", "SUMMARY_TIME", "TOMORROW_SUMMARY_TIME", "PUSHOVER_USER_KEY", "PUSHOVER_API_TOKEN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("Expected Timezone 'America/New_York', got '%s'", cfg.Timezone)
	}
	if cfg.CalendarID != "primary" {
		t.Errorf("Expected CalendarID 'primary', got '%s'", cfg.CalendarID)
	}
	if cfg.SummaryTime != "08:00" || cfg.TomorrowSummaryTime != "22:00" {
		t.Errorf("unexpected schedule %q / %q", cfg.SummaryTime, cfg.TomorrowSummaryTime)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.RequestTimeout)
	}
	if !cfg.TomorrowEnabled() {
		t.Errorf("tomorrow preview should be enabled by default")
	}
	if err := cfg.ValidatePushover(); !errors.Is(err, ErrMissingPushover) {
		t.Errorf("Expected ErrMissingPushover, got %v", err)
	}
}

func TestLoadFromEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("TIMEZONE", "Europe/Oslo")
	t.Setenv("TOMORROW_SUMMARY_TIME", "off")
	t.Setenv("LOG_FILE", filepath.Join(dir, "daybrief.log"))
	os.Unsetenv("PUSHOVER_USER_KEY")
	os.Unsetenv("PUSHOVER_API_TOKEN")
	t.Cleanup(func() {
		os.Unsetenv("PUSHOVER_USER_KEY")
		os.Unsetenv("PUSHOVER_API_TOKEN")
	})

	envFile := filepath.Join(dir, ".env")
	content := "PUSHOVER_USER_KEY=user-123\nPUSHOVER_API_TOKEN=token-456\nTIMEZONE=Asia/Tokyo\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timezone != "Europe/Oslo" {
		t.Errorf("environment should win over .env, got %q", cfg.Timezone)
	}
	if cfg.PushoverUserKey != "user-123" || cfg.PushoverAPIToken != "token-456" {
		t.Errorf("unexpected pushover credentials %q / %q", cfg.PushoverUserKey, cfg.PushoverAPIToken)
	}
	if cfg.TomorrowEnabled() {
		t.Errorf("tomorrow preview should be disabled")
	}
	if cfg.LogFile != filepath.Join(dir, "daybrief.log") {
		t.Errorf("unexpected log file %q", cfg.LogFile)
	}
	if err := cfg.ValidatePushover(); err != nil {
		t.Errorf("ValidatePushover: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Timezone:            "America/New_York",
		SummaryTime:         "08:00",
		TomorrowSummaryTime: "22:00",
		RequestTimeout:      time.Second,
		CalendarQPS:         1,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		ok      bool
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{name: "bad summary time", mutate: func(c *Config) { c.SummaryTime = "25:00" }, wantErr: ErrInvalidTime},
		{name: "bad tomorrow time", mutate: func(c *Config) { c.TomorrowSummaryTime = "noon" }, wantErr: ErrInvalidTime},
		{name: "tomorrow disabled", mutate: func(c *Config) { c.TomorrowSummaryTime = "off" }, ok: true},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			switch {
			case tt.ok:
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
				}
			default:
				if err == nil {
					t.Errorf("Validate() = nil, want error")
				}
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("8:05")
	if err != nil || h != 8 || m != 5 {
		t.Errorf("ParseClock(8:05) = %d, %d, %v", h, m, err)
	}
	if _, _, err := ParseClock("8pm"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
}

func TestFileLoaderToken(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	loader := NewFileLoader(dir)

	if _, err := loader.LoadToken(); err == nil {
		t.Fatalf("expected error for missing token")
	}

	if err := loader.SaveToken([]byte(`{"access_token":"a"}`)); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}
	if err := loader.SaveToken([]byte(`{"access_token":"b"}`)); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	got, err := loader.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken failed: %v", err)
	}
	if string(got) != `{"access_token":"b"}` {
		t.Errorf("unexpected token %s", got)
	}

	info, err := os.Stat(filepath.Join(dir, "token.json"))
	if err != nil {
		t.Fatalf("stat token: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 perms, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only token.json in %s, found %d entries", dir, len(entries))
	}
}

func TestFileLoaderCredentials(t *testing.T) {
	dir := t.TempDir()
	loader := NewFileLoader(dir)
	if _, err := loader.LoadCredentials(); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
	if err := os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := loader.LoadCredentials()
	if err != nil || string(b) != `{}` {
		t.Errorf("LoadCredentials = %q, %v", b, err)
	}
}
