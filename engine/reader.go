package engine

import (
	"context"
	"time"

	"github.com/cedinu/flexicart-control/internal/pool"
)

// ReadPolicy decides where a response ends.
//
// Neither protocol frames its responses, so a response is complete once the
// line has been silent for InactivityGap after at least one byte. Timeout
// bounds the wait for the first byte and is also a hard ceiling on the whole
// accumulation, so a device that keeps streaming cannot hold the endpoint.
type ReadPolicy struct {
	InactivityGap time.Duration
	Timeout       time.Duration
}

// accumulate collects chunks from recv under policy.
//
// It returns ErrNoResponse when the timeout elapses with zero bytes and
// ErrTransportClosed when recv is closed before any byte arrived. Bytes
// collected before a ceiling or channel close are returned without error.
// A cancelled ctx returns ctx.Err() and whatever was collected; bytes still
// in flight are left for the next drain.
func accumulate(ctx context.Context, recv <-chan []byte, policy ReadPolicy) ([]byte, time.Duration, error) {
	start := time.Now()

	ceiling := pool.GetTimer(policy.Timeout)
	defer pool.PutTimer(ceiling)

	var (
		buf  []byte
		gap  *time.Timer
		gapC <-chan time.Time
	)
	defer func() {
		if gap != nil {
			pool.PutTimer(gap)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return buf, time.Since(start), ctx.Err()

		case chunk, ok := <-recv:
			if !ok {
				if len(buf) == 0 {
					return nil, time.Since(start), ErrTransportClosed
				}

				return buf, time.Since(start), nil
			}

			buf = append(buf, chunk...)
			if gap == nil {
				gap = pool.GetTimer(policy.InactivityGap)
				gapC = gap.C
			} else {
				gap.Reset(policy.InactivityGap)
			}

		case <-gapC:
			return buf, time.Since(start), nil

		case <-ceiling.C:
			if len(buf) == 0 {
				return nil, time.Since(start), ErrNoResponse
			}

			return buf, time.Since(start), nil
		}
	}
}

// drain discards every chunk already queued on recv without blocking and
// returns the number of bytes dropped.
func drain(recv <-chan []byte) int {
	n := 0
	for {
		select {
		case chunk, ok := <-recv:
			if !ok {
				return n
			}
			n += len(chunk)
		default:
			return n
		}
	}
}

// drainUntilSilence discards input until notBefore has passed and the line
// has then been quiet for quiet, or until limit elapses. It returns the number
// of bytes dropped. A closed recv ends the drain without error; the next
// write reports the closed transport.
func drainUntilSilence(ctx context.Context, recv <-chan []byte, notBefore time.Time, quiet, limit time.Duration) (int, error) {
	idleFor := func() time.Duration {
		return max(time.Until(notBefore), quiet)
	}

	ceiling := pool.GetTimer(limit)
	defer pool.PutTimer(ceiling)

	idle := pool.GetTimer(idleFor())
	defer pool.PutTimer(idle)

	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()

		case chunk, ok := <-recv:
			if !ok {
				return n, nil
			}
			n += len(chunk)
			idle.Reset(idleFor())

		case <-idle.C:
			return n, nil

		case <-ceiling.C:
			return n, nil
		}
	}
}
