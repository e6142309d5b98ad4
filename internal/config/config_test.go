package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViperWithDefaults() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "08:30:00:000", cfg.Booking.TargetTime)
	assert.Len(t, cfg.Booking.Courts, 3)
	assert.Len(t, cfg.Booking.TimeSlots, 3)
	assert.Equal(t, 4*time.Second, cfg.Classifier.SuccessTimeout)
	assert.Equal(t, time.Second, cfg.Classifier.FailureTimeout)
	assert.Contains(t, cfg.Browser.UserAgent, "MicroMessenger")
}

func TestCredentialsComeFromEnv(t *testing.T) {
	t.Setenv("BOOKING_USERNAME", "student42")
	t.Setenv("BOOKING_PASSWORD", "hunter2")

	cfg, err := NewFromViper(newViperWithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "student42", cfg.Booking.Username)
	assert.Equal(t, "hunter2", cfg.Booking.Password)
	require.NoError(t, cfg.RequireCredentials())
}

func TestRequireCredentialsMissing(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Booking.Username = ""
	cfg.Booking.Password = ""

	err := cfg.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKING_USERNAME")
}

func TestGitHubActionsImpliesAutomated(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")

	cfg, err := NewFromViper(newViperWithDefaults())
	require.NoError(t, err)

	assert.True(t, cfg.Booking.Automated)
	assert.True(t, cfg.Browser.Headless)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "malformed target time",
			mutate: func(c *Config) { c.Booking.TargetTime = "8:30" },
			want:   "target_time",
		},
		{
			name:   "no courts",
			mutate: func(c *Config) { c.Booking.Courts = nil },
			want:   "courts",
		},
		{
			name:   "slot without range separator",
			mutate: func(c *Config) { c.Booking.TimeSlots = []string{"1800"} },
			want:   "time_slots",
		},
		{
			name:   "inverted pacing bounds",
			mutate: func(c *Config) { c.Pacing.FastMin = time.Second; c.Pacing.FastMax = time.Millisecond },
			want:   "fast_min",
		},
		{
			name:   "broken success pattern",
			mutate: func(c *Config) { c.Classifier.SuccessPattern = "(" },
			want:   "success_pattern",
		},
		{
			name:   "zero probe timeout",
			mutate: func(c *Config) { c.Classifier.FailureTimeout = 0 },
			want:   "timeouts",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
