package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	c := NewFakeClock(time.Unix(100, 0))
	var fired []string

	c.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "late") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "early") })
	stop := c.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "stopped") })

	assert.True(t, stop())
	assert.False(t, stop(), "second stop reports nothing pending")
	assert.Equal(t, 2, c.Pending())

	c.Advance(5 * time.Millisecond)
	assert.Empty(t, fired)

	c.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, time.Unix(100, 0).Add(30*time.Millisecond), c.Now())
	assert.Zero(t, c.Pending())
}

func TestFakeClockCallbackMaySchedule(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	n := 0
	var tick func()
	tick = func() {
		n++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(time.Second)
	assert.Equal(t, 1, n)
	c.Advance(time.Second)
	assert.Equal(t, 2, n)
}
