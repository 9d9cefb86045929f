package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DelayDoublesUpToCap(t *testing.T) {
	b := Backoff{Base: 200 * time.Millisecond, Cap: 3 * time.Second}

	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 400*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(3))
	assert.Equal(t, 1600*time.Millisecond, b.Delay(4))
	// 3.2s would exceed the cap
	assert.Equal(t, 3*time.Second, b.Delay(5))
	assert.Equal(t, 3*time.Second, b.Delay(10))
}

func TestBackoff_DelayClampsBadAttempt(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Cap: time.Second}

	assert.Equal(t, b.Delay(1), b.Delay(0))
	assert.Equal(t, b.Delay(1), b.Delay(-3))
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Cap: time.Second, Jitter: 50 * time.Millisecond}

	for i := 0; i < 100; i++ {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}

func TestBackoff_WaitUsesInjectedSleep(t *testing.T) {
	var slept []time.Duration
	b := Backoff{
		Base:  10 * time.Millisecond,
		Cap:   time.Second,
		Sleep: func(d time.Duration) { slept = append(slept, d) },
	}

	b.Wait(1)
	b.Wait(2)

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, slept)
}
