// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Booking     BookingConfig     `mapstructure:"booking" yaml:"booking"`
	Pacing      PacingConfig      `mapstructure:"pacing" yaml:"pacing"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" yaml:"classifier"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chrome instance driven over CDP.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`

	// Mobile persona applied to every session. The venue portal is a
	// WeChat mini-program shell, so the profile must look like one.
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
	ViewportWidth  int64  `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int64  `mapstructure:"viewport_height" yaml:"viewport_height"`
	Locale         string `mapstructure:"locale" yaml:"locale"`
}

// BookingConfig describes the target venue and the release instant.
type BookingConfig struct {
	PortalURL string   `mapstructure:"portal_url" yaml:"portal_url"`
	Venue     string   `mapstructure:"venue" yaml:"venue"`
	Courts    []string `mapstructure:"courts" yaml:"courts"`
	TimeSlots []string `mapstructure:"time_slots" yaml:"time_slots"`

	// TargetTime is the wall-clock release instant, hh:mm:ss:SSS.
	TargetTime string `mapstructure:"target_time" yaml:"target_time"`

	// Automated bypasses the deadline wait and fixes pacing, for CI and
	// other environments where racing the clock makes no sense.
	Automated bool `mapstructure:"automated" yaml:"automated"`

	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
}

// PacingConfig tunes the randomized pre-action delays.
type PacingConfig struct {
	NormalMin time.Duration `mapstructure:"normal_min" yaml:"normal_min"`
	NormalMax time.Duration `mapstructure:"normal_max" yaml:"normal_max"`
	FastMin   time.Duration `mapstructure:"fast_min" yaml:"fast_min"`
	FastMax   time.Duration `mapstructure:"fast_max" yaml:"fast_max"`
	Automated time.Duration `mapstructure:"automated" yaml:"automated"`

	// MaxActionsPerSecond caps the click rate in human-paced mode so a
	// burst of fallback attempts does not trip server-side rate limits.
	MaxActionsPerSecond float64 `mapstructure:"max_actions_per_second" yaml:"max_actions_per_second"`
}

// ClassifierConfig keeps the outcome matchers as data so new phrasings can
// be added without touching control flow.
type ClassifierConfig struct {
	SuccessPattern string        `mapstructure:"success_pattern" yaml:"success_pattern"`
	SuccessTimeout time.Duration `mapstructure:"success_timeout" yaml:"success_timeout"`
	FailurePattern string        `mapstructure:"failure_pattern" yaml:"failure_pattern"`
	FailureTimeout time.Duration `mapstructure:"failure_timeout" yaml:"failure_timeout"`

	// PauseOnUnknown escalates ambiguous outcomes to error-level logging
	// so a human verifies them; continuation behavior is unchanged.
	PauseOnUnknown bool `mapstructure:"pause_on_unknown" yaml:"pause_on_unknown"`
}

// DatabaseConfig enables the optional Postgres attempt ledger when URL is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// DiagnosticsConfig controls failure artifacts.
type DiagnosticsConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Screenshots bool   `mapstructure:"screenshots" yaml:"screenshots"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courtdash")
	v.SetDefault("logger.log_file", "courtdash.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 "+
			"(KHTML, like Gecko) Mobile/15E148 MicroMessenger/8.0.15(0x18000f2e) NetType/WIFI Language/zh_CN")
	v.SetDefault("browser.viewport_width", 390)
	v.SetDefault("browser.viewport_height", 844)
	v.SetDefault("browser.locale", "zh-CN")

	// -- Booking --
	v.SetDefault("booking.portal_url", "http://cgzx.scu.edu.cn/venue/")
	v.SetDefault("booking.venue", "望江西区网球场")
	v.SetDefault("booking.courts", []string{"1号场", "2号场", "3号场"})
	v.SetDefault("booking.time_slots", []string{"18:00-19:00", "19:00-20:00", "20:00-21:00"})
	v.SetDefault("booking.target_time", "08:30:00:000")
	v.SetDefault("booking.automated", false)

	// -- Pacing --
	v.SetDefault("pacing.normal_min", 500*time.Millisecond)
	v.SetDefault("pacing.normal_max", 1200*time.Millisecond)
	v.SetDefault("pacing.fast_min", 100*time.Millisecond)
	v.SetDefault("pacing.fast_max", 300*time.Millisecond)
	v.SetDefault("pacing.automated", 200*time.Millisecond)
	v.SetDefault("pacing.max_actions_per_second", 5.0)

	// -- Classifier --
	v.SetDefault("classifier.success_pattern", "预约成功|提交成功")
	v.SetDefault("classifier.success_timeout", 4*time.Second)
	v.SetDefault("classifier.failure_pattern", "失败|错误|超限|频繁|取消.*次|已达上限")
	v.SetDefault("classifier.failure_timeout", 1*time.Second)
	v.SetDefault("classifier.pause_on_unknown", false)

	// -- Diagnostics --
	v.SetDefault("diagnostics.dir", ".")
	v.SetDefault("diagnostics.screenshots", true)
}

// NewFromViper builds and validates a Config from a prepared viper instance.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// Credentials are never read from the config file.
	v.BindEnv("booking.username", "BOOKING_USERNAME")
	v.BindEnv("booking.password", "BOOKING_PASSWORD")
	v.BindEnv("database.url", "COURTDASH_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// GitHub Actions implies the bypass/automated profile, matching the
	// environment the tool is most often scheduled from.
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		cfg.Booking.Automated = true
		cfg.Browser.Headless = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var targetTimeRe = regexp.MustCompile(`^\d{1,2}:\d{1,2}:\d{1,2}:\d{1,3}$`)

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Booking.PortalURL == "" {
		return fmt.Errorf("booking.portal_url is required")
	}
	if len(c.Booking.Courts) == 0 {
		return fmt.Errorf("booking.courts must name at least one court")
	}
	if len(c.Booking.TimeSlots) == 0 {
		return fmt.Errorf("booking.time_slots must name at least one slot")
	}
	for _, slot := range c.Booking.TimeSlots {
		if !strings.Contains(slot, "-") {
			return fmt.Errorf("booking.time_slots entry %q is not of the form start-end", slot)
		}
	}
	if !targetTimeRe.MatchString(c.Booking.TargetTime) {
		return fmt.Errorf("booking.target_time %q is not of the form hh:mm:ss:SSS", c.Booking.TargetTime)
	}
	if c.Pacing.NormalMin > c.Pacing.NormalMax {
		return fmt.Errorf("pacing.normal_min must not exceed pacing.normal_max")
	}
	if c.Pacing.FastMin > c.Pacing.FastMax {
		return fmt.Errorf("pacing.fast_min must not exceed pacing.fast_max")
	}
	if c.Pacing.MaxActionsPerSecond <= 0 {
		return fmt.Errorf("pacing.max_actions_per_second must be positive")
	}
	if c.Classifier.SuccessTimeout <= 0 || c.Classifier.FailureTimeout <= 0 {
		return fmt.Errorf("classifier probe timeouts must be positive")
	}
	if _, err := regexp.Compile(c.Classifier.SuccessPattern); err != nil {
		return fmt.Errorf("classifier.success_pattern: %w", err)
	}
	if _, err := regexp.Compile(c.Classifier.FailurePattern); err != nil {
		return fmt.Errorf("classifier.failure_pattern: %w", err)
	}
	return nil
}

// RequireCredentials enforces the presence of the portal credentials. Kept
// separate from Validate so offline commands (version, dry runs against a
// stub surface) do not demand secrets.
func (c *Config) RequireCredentials() error {
	if c.Booking.Username == "" || c.Booking.Password == "" {
		return fmt.Errorf(
			"missing BOOKING_USERNAME or BOOKING_PASSWORD; set them as repository " +
				"secrets when running under GitHub Actions, or export them locally")
	}
	return nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}
