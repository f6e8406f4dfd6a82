package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("CRON_SECRET", "cron-secret-0123456789")
}

func TestLoadProductionConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultEngineConfig(), cfg.Engine)
	assert.Equal(t, DefaultHousepartyConfig(), cfg.Houseparty)
	assert.Equal(t, DefaultReportsConfig(), cfg.Reports)
	assert.Equal(t, "Europe/London", cfg.Engine.Timezone)
	assert.Equal(t, 5, cfg.Engine.RolloverHour)
	assert.Empty(t, cfg.Admin.Emails)
}

func TestLoadProductionConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENGINE_ROLLOVER_HOUR", "6")
	t.Setenv("HOUSEPARTY_QUOTA_PER_NIGHT", "4")
	t.Setenv("ADMIN_EMAILS", "Ops@Example.com, mod@example.com")
	t.Setenv("REPORTS_REVIEW_WINDOW", "12h")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Engine.RolloverHour)
	assert.Equal(t, 4, cfg.Houseparty.QuotaPerNight)
	assert.Equal(t, []string{"ops@example.com", "mod@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, "12h0m0s", cfg.Reports.ReviewWindow.String())
}

func TestLoadProductionConfig_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "short")
	t.Setenv("CRON_SECRET", "")

	_, err := LoadProductionConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	assert.Contains(t, err.Error(), "CRON_SECRET")
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
		want   string
	}{
		{"defaults are valid", func(*EngineConfig) {}, ""},
		{"factor above one", func(c *EngineConfig) { c.NearFactor = 1.2 }, "ENGINE_NEAR_FACTOR"},
		{"zero factor", func(c *EngineConfig) { c.OldFactor = 0 }, "ENGINE_OLD_FACTOR"},
		{"maybe above yes", func(c *EngineConfig) { c.IntentMaybeFactor = 1; c.IntentYesFactor = 0.9 }, "ENGINE_INTENT_MAYBE_FACTOR"},
		{"distance bands descending", func(c *EngineConfig) { c.MidMeters = 500 }, "ENGINE_MID_METERS"},
		{"recency bands descending", func(c *EngineConfig) { c.StaleMinutes = 60 }, "ENGINE_STALE_MINUTES"},
		{"unknown timezone", func(c *EngineConfig) { c.Timezone = "Mars/Olympus" }, "ENGINE_TIMEZONE"},
		{"rollover out of range", func(c *EngineConfig) { c.RolloverHour = 24 }, "ENGINE_ROLLOVER_HOUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if tt.want == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestSchedulerConfig_ValidateBackfillBounds(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.Empty(t, cfg.Validate())

	cfg.BackfillMaxNights = 61
	assert.NotEmpty(t, cfg.Validate())
}
