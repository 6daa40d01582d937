package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3, cfg.Settlement.HoldDays)
	assert.Equal(t, 15*time.Minute, cfg.Settlement.SchedulerEvery)
	assert.Equal(t, "UTC", cfg.Availability.DefaultTimezone)
	assert.Equal(t, time.Minute, cfg.Availability.CacheTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SETTLEMENT_HOLD_DAYS", 7)
	v.Set("AVAILABILITY_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")

	cfg := fromViper(v)

	assert.Equal(t, 7, cfg.Settlement.HoldDays)
	assert.Equal(t, time.Minute, cfg.Availability.CacheTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestNonPositiveHoldDaysFallsBackToDefault(t *testing.T) {
	for _, days := range []int{0, -1} {
		v := viper.New()
		setDefaults(v)
		v.Set("SETTLEMENT_HOLD_DAYS", days)

		assert.Equal(t, 3, fromViper(v).Settlement.HoldDays, "hold days %d", days)
	}
}
