package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cedinu/flexicart-control/internal/pool"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/transport"
)

// PollSession tracks the completion polling of one Macro command.
// It is owned by the executing call and never shared.
type PollSession struct {
	Target      protocol.DeviceAddress
	Command     string
	Attempts    int
	MaxAttempts int
	Interval    time.Duration
	Start       time.Time
}

// Executor runs commands against the devices behind one transport endpoint.
//
// At most one command is in flight per endpoint: Execute holds the executor
// lock from the first write until the final response, Macro polling included.
// Executors for different endpoints are independent.
type Executor struct {
	endpoint protocol.EndpointID
	tr       transport.Transport
	cfg      *Config
	logger   logger.Logger

	mu sync.Mutex
	// unsettled is set when a wait ended while the device may still be
	// answering; settleUntil is when that answer is no longer expected.
	unsettled   bool
	settleUntil time.Time

	metrics Metrics
}

// NewExecutor creates an executor driving tr.
func NewExecutor(endpoint protocol.EndpointID, tr transport.Transport, cfg *Config) *Executor {
	return &Executor{
		endpoint: endpoint,
		tr:       tr,
		cfg:      cfg,
		logger:   cfg.GetLogger().With("endpoint", string(endpoint)),
	}
}

// Endpoint returns the endpoint the executor drives.
func (e *Executor) Endpoint() protocol.EndpointID {
	return e.endpoint
}

// Metrics returns the executor counters.
func (e *Executor) Metrics() *Metrics {
	return &e.metrics
}

// ExecuteNamed resolves name through the configured catalog and executes it.
func (e *Executor) ExecuteNamed(ctx context.Context, name string, addr protocol.DeviceAddress, timeout time.Duration) (*protocol.ResponseFrame, error) {
	spec, ok := e.cfg.catalog.Lookup(name)
	if !ok {
		return nil, &ExecError{Command: name, Address: addr, Err: ErrUnknownCommand}
	}

	return e.Execute(ctx, spec, addr, timeout)
}

// Execute sends spec to addr and returns the classified response.
//
// A non-positive timeout selects the configured response timeout. Immediate
// and Control commands return the frame whatever its classification. A Macro
// command must be acknowledged and then completes when a status poll returns
// data; NACK fails with ErrCommandRejected and is never retried. Every error
// is an *ExecError.
//
// Cancelling ctx abandons the current wait but not a command already written;
// its late response is drained before the next command.
func (e *Executor) Execute(ctx context.Context, spec protocol.CommandSpec, addr protocol.DeviceAddress, timeout time.Duration) (*protocol.ResponseFrame, error) {
	if addr.Endpoint != "" && addr.Endpoint != e.endpoint {
		return nil, &ExecError{Command: spec.Name, Address: addr, Err: ErrEndpointMismatch}
	}
	addr.Endpoint = e.endpoint

	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.InflightGauge.Store(1)
	defer e.metrics.InflightGauge.Store(0)

	policy := e.cfg.ReadPolicy(timeout)

	frame, err := e.roundTrip(ctx, spec, addr, policy)
	if err != nil {
		return nil, &ExecError{Command: spec.Name, Address: addr, Err: err}
	}

	if spec.Category != protocol.Macro {
		return frame, nil
	}

	switch frame.Class {
	case protocol.Ack:
	case protocol.Nack:
		e.metrics.incRejectedCount()
		e.logger.Warn("engine: command rejected", "command", spec.Name, "unit", addr.Unit)

		return nil, &ExecError{Command: spec.Name, Address: addr, Frame: frame, Err: ErrCommandRejected}
	default:
		e.logger.Warn("engine: unexpected response to macro command",
			"command", spec.Name, "unit", addr.Unit, "response", frame.String())

		return nil, &ExecError{Command: spec.Name, Address: addr, Frame: frame, Err: ErrUnexpectedResponse}
	}

	return e.poll(ctx, spec, addr, policy, frame)
}

// poll queries the catalog's status command until it returns data or the
// attempts run out. Each query is preceded by the poll interval.
//
// A missing, NACK or BUSY answer to a poll does not end the session; only a
// write failure, a closed transport or a cancelled ctx does.
func (e *Executor) poll(ctx context.Context, spec protocol.CommandSpec, addr protocol.DeviceAddress, policy ReadPolicy, ack *protocol.ResponseFrame) (*protocol.ResponseFrame, error) {
	status := e.cfg.catalog.StatusQuery()
	ps := &PollSession{
		Target:      addr,
		Command:     spec.Name,
		MaxAttempts: e.cfg.maxPollAttempts,
		Interval:    e.cfg.pollInterval,
		Start:       time.Now(),
	}
	last := ack

	fail := func(err error) error {
		return &ExecError{Command: spec.Name, Address: addr, Frame: last, Attempts: ps.Attempts, Err: err}
	}

	for ps.Attempts < ps.MaxAttempts {
		if !pool.Sleep(ps.Interval, ctx.Done()) {
			return nil, fail(ctx.Err())
		}

		ps.Attempts++
		e.metrics.incPollCount()

		frame, err := e.roundTrip(ctx, status, addr, policy)
		if err != nil {
			if errors.Is(err, ErrNoResponse) {
				e.logger.Debug("engine: status poll unanswered",
					"command", spec.Name, "unit", addr.Unit, "attempt", ps.Attempts)

				continue
			}

			return nil, fail(err)
		}

		last = frame
		if frame.HasData() {
			e.metrics.incMacroCompletedCount()
			e.logger.Debug("engine: macro command completed",
				"command", spec.Name, "unit", addr.Unit,
				"attempts", ps.Attempts, "elapsed", time.Since(ps.Start))

			return frame, nil
		}
	}

	e.metrics.incMacroTimeoutCount()
	e.logger.Warn("engine: macro command did not complete",
		"command", spec.Name, "unit", addr.Unit,
		"attempts", ps.Attempts, "elapsed", time.Since(ps.Start))

	return nil, fail(ErrOperationTimeout)
}

// roundTrip drains stale input, writes one packet and accumulates its response.
func (e *Executor) roundTrip(ctx context.Context, spec protocol.CommandSpec, addr protocol.DeviceAddress, policy ReadPolicy) (*protocol.ResponseFrame, error) {
	if err := e.settle(ctx, policy); err != nil {
		return nil, err
	}

	pkt := e.cfg.encoder.Encode(spec, addr)
	if err := e.tr.Write(pkt); err != nil {
		e.logger.Error("engine: write failed", "command", spec.Name, "unit", addr.Unit, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransportWriteFailed, err)
	}
	sentAt := time.Now()
	e.metrics.incCommandSendCount()
	e.logger.Debug("engine: command sent", "command", spec.Name, "unit", addr.Unit, "packet", fmt.Sprintf("% X", pkt))

	raw, elapsed, err := accumulate(ctx, e.tr.Recv(), policy)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the device may still answer within the abandoned wait
		e.markUnsettled(sentAt.Add(policy.Timeout))
	case errors.Is(err, ErrNoResponse):
		e.markUnsettled(sentAt)
	case err == nil && elapsed >= policy.Timeout:
		// cut at the ceiling while the device was still sending
		e.markUnsettled(sentAt)
	}
	if err != nil {
		if errors.Is(err, ErrNoResponse) {
			e.metrics.incNoResponseCount()
			e.logger.Debug("engine: no response", "command", spec.Name, "unit", addr.Unit, "timeout", policy.Timeout)
		}

		return nil, err
	}

	e.metrics.incResponseCount()
	frame := protocol.NewResponseFrame(raw, elapsed, e.cfg.responseProfile)
	e.logger.Debug("engine: response received", "command", spec.Name, "unit", addr.Unit, "response", frame.String())

	return frame, nil
}

func (e *Executor) markUnsettled(until time.Time) {
	e.unsettled = true
	e.settleUntil = until
}

// settle discards input left over from earlier commands. After an abandoned
// or unanswered wait it blocks until the line has been quiet for the
// inactivity gap, bounded by the response timeout past the point the late
// answer was still expected.
func (e *Executor) settle(ctx context.Context, policy ReadPolicy) error {
	n := 0
	if e.unsettled {
		limit := max(time.Until(e.settleUntil), 0) + policy.Timeout

		dropped, err := drainUntilSilence(ctx, e.tr.Recv(), e.settleUntil, policy.InactivityGap, limit)
		n += dropped
		if err != nil {
			e.metrics.addStaleByteCount(n)
			return err
		}
		e.unsettled = false
	}

	n += drain(e.tr.Recv())
	if n > 0 {
		e.metrics.addStaleByteCount(n)
		e.logger.Debug("engine: discarded stale bytes", "count", n)
	}

	return nil
}

// close closes the underlying transport. A command in flight fails with
// ErrTransportWriteFailed or ErrTransportClosed.
func (e *Executor) close() error {
	return e.tr.Close()
}
