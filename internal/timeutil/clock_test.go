package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())

	c.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), c.Now())
	assert.Equal(t, 5*time.Second, c.Since(start))

	c.Set(start)
	c.SetStep(time.Millisecond)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Millisecond), c.Now())
	assert.Equal(t, 2*time.Millisecond, c.Since(start))
}
