package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulate_GapEndsResponse(t *testing.T) {
	recv := make(chan []byte, 4)
	recv <- []byte{0x80}
	recv <- []byte{0x01, 0x02}

	raw, elapsed, err := accumulate(context.Background(), recv,
		ReadPolicy{InactivityGap: 10 * time.Millisecond, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x01, 0x02}, raw)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestAccumulate_NoResponse(t *testing.T) {
	recv := make(chan []byte)

	raw, elapsed, err := accumulate(context.Background(), recv,
		ReadPolicy{InactivityGap: 5 * time.Millisecond, Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, ErrNoResponse)
	assert.Nil(t, raw)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestAccumulate_ClosedChannel(t *testing.T) {
	recv := make(chan []byte, 1)
	close(recv)

	_, _, err := accumulate(context.Background(), recv,
		ReadPolicy{InactivityGap: 5 * time.Millisecond, Timeout: time.Second})
	require.ErrorIs(t, err, ErrTransportClosed)

	recv = make(chan []byte, 1)
	recv <- []byte{0x04}
	close(recv)

	raw, _, err := accumulate(context.Background(), recv,
		ReadPolicy{InactivityGap: time.Second, Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04}, raw)
}

func TestAccumulate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := accumulate(ctx, make(chan []byte),
		ReadPolicy{InactivityGap: 5 * time.Millisecond, Timeout: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrain(t *testing.T) {
	recv := make(chan []byte, 4)
	assert.Equal(t, 0, drain(recv))

	recv <- []byte{0x01, 0x02}
	recv <- []byte{0x03}
	assert.Equal(t, 3, drain(recv))
	assert.Empty(t, recv)

	close(recv)
	assert.Equal(t, 0, drain(recv))
}

func TestDrainUntilSilence_WaitsForLateBytes(t *testing.T) {
	recv := make(chan []byte, 4)
	go func() {
		time.Sleep(20 * time.Millisecond)
		recv <- []byte{0xEE}
		time.Sleep(3 * time.Millisecond)
		recv <- []byte{0xEE, 0xEE}
	}()

	n, err := drainUntilSilence(context.Background(), recv,
		time.Now().Add(40*time.Millisecond), 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, recv)
}

func TestDrainUntilSilence_QuietLine(t *testing.T) {
	start := time.Now()

	n, err := drainUntilSilence(context.Background(), make(chan []byte),
		time.Time{}, 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDrainUntilSilence_LimitCapsStreaming(t *testing.T) {
	recv := make(chan []byte)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case recv <- []byte{0x80}:
			case <-done:
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	start := time.Now()
	n, err := drainUntilSilence(context.Background(), recv,
		time.Time{}, 20*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDrainUntilSilence_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drainUntilSilence(ctx, make(chan []byte),
		time.Now().Add(time.Second), 10*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
