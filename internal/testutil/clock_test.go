package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_DefaultsToReferenceTime(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.True(t, clock.Now().Equal(ReferenceTime))
	assert.Equal(t, "2024-03-09 18:30:00", clock.Now().Format("2006-01-02 15:04:05"))
}

func TestFixedClock_DoesNotMoveOnItsOwn(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	first := clock.Now()
	time.Sleep(time.Millisecond)
	assert.True(t, first.Equal(clock.Now()))
}

func TestFixedClock_Advance(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	clock.Advance(90 * time.Second)
	assert.Equal(t, "2024-03-09 18:31:30", clock.Now().Format("2006-01-02 15:04:05"))
}

func TestFixedClock_ConcurrentAccess(t *testing.T) {
	clock := NewFixedClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50*time.Second, clock.Now().Sub(ReferenceTime))
}
