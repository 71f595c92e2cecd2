package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	t.Run("Get and Put", func(t *testing.T) {
		timer := GetTimer(20 * time.Millisecond)
		assert.NotNil(t, timer)
		<-timer.C
		PutTimer(timer)

		reused := GetTimer(20 * time.Millisecond)
		begin := time.Now()
		<-reused.C
		assert.GreaterOrEqual(t, time.Since(begin), 15*time.Millisecond)
		PutTimer(reused)
	})

	t.Run("Put active timer does not fire later", func(t *testing.T) {
		timer := GetTimer(10 * time.Millisecond)
		PutTimer(timer)

		select {
		case <-timer.C:
			t.Error("stopped timer fired")
		case <-time.After(30 * time.Millisecond):
		}
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}

func TestSleep(t *testing.T) {
	assert.True(t, Sleep(0, nil))
	assert.True(t, Sleep(5*time.Millisecond, nil))

	done := make(chan struct{})
	close(done)
	assert.False(t, Sleep(time.Second, done))
}
