package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifierConfig_DailyTime(t *testing.T) {
	cfg := NotifierConfig{DailyAt: "09:00"}
	hour, minute, err := cfg.DailyTime()
	assert.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 0, minute)

	cfg.DailyAt = "23:59"
	hour, minute, err = cfg.DailyTime()
	assert.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	for _, bad := range []string{"24:00", "12:60", "noon", ""} {
		cfg.DailyAt = bad
		_, _, err = cfg.DailyTime()
		assert.Error(t, err, "daily_at=%q", bad)
	}
}

func TestNotifierConfig_Location(t *testing.T) {
	loc, err := NotifierConfig{Timezone: "Europe/Berlin"}.Location()
	assert.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	loc, err = NotifierConfig{}.Location()
	assert.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = NotifierConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
