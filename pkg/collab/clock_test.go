package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	assert.Equal(t, start, clock.Now())

	advanced := clock.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), advanced)
	assert.Equal(t, start.Add(time.Hour), clock.Now())
}

func TestFixedClockSet(t *testing.T) {
	clock := NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	next := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	clock.Set(next)
	assert.Equal(t, next, clock.Now())
}

func TestSystemClockReturnsRealTime(t *testing.T) {
	before := time.Now()
	got := SystemClock{}.Now()
	after := time.Now()

	assert.True(t, !got.Before(before) && !got.After(after))
}
