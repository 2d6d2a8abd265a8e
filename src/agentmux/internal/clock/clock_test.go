package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.NotNil(t, New())
}

func TestSleep(t *testing.T) {
	assert.NotPanics(t, func() {
		clock{}.Sleep(1 * time.Microsecond)
	})
}

func TestSince(t *testing.T) {
	c := New()
	start := c.Now()
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewFake(start)

	t.Run("time stands still until advanced", func(t *testing.T) {
		assert.Equal(t, start, c.Now())
		c.Advance(1500 * time.Millisecond)
		assert.Equal(t, 1500*time.Millisecond, c.Since(start))
	})

	t.Run("after fires once the deadline passes", func(t *testing.T) {
		ch := c.After(time.Second)
		select {
		case <-ch:
			t.Fatal("fired early")
		default:
		}

		c.Advance(999 * time.Millisecond)
		select {
		case <-ch:
			t.Fatal("fired early")
		default:
		}

		c.Advance(time.Millisecond)
		select {
		case <-ch:
		default:
			t.Fatal("did not fire")
		}
	})

	t.Run("non-positive duration fires immediately", func(t *testing.T) {
		select {
		case <-c.After(0):
		default:
			t.Fatal("did not fire")
		}
	})
}
