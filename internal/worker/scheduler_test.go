package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartdoc/tracker-api/pkg/logger"
)

func TestNextFire(t *testing.T) {
	s := NewScheduler(9, 0, time.UTC, nil, logger.NewLogger(nil))

	// Before today's slot: fires today.
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), s.nextFire(now))

	// After today's slot: fires tomorrow.
	now = time.Date(2026, 3, 10, 9, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), s.nextFire(now))

	// Exactly at the slot: strictly after, so tomorrow.
	now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), s.nextFire(now))
}

func TestNextFire_CrossesMonthBoundary(t *testing.T) {
	s := NewScheduler(9, 30, time.UTC, nil, logger.NewLogger(nil))

	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC), s.nextFire(now))
}
