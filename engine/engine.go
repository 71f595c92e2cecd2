package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/timecode"
	"github.com/cedinu/flexicart-control/transport"
)

// Engine is the entry point for callers: it owns one Executor per endpoint,
// opening transports on first use and keeping them open so scans, commands
// and polls reuse the same channel.
type Engine struct {
	cfg    *Config
	opener transport.Opener
	logger logger.Logger

	executors *xsync.MapOf[protocol.EndpointID, *Executor]
	openMu    sync.Mutex
	closed    atomic.Bool
}

// New creates an engine. opener may be nil when every endpoint is
// registered with Attach.
func New(cfg *Config, opener transport.Opener) *Engine {
	return &Engine{
		cfg:       cfg,
		opener:    opener,
		logger:    cfg.GetLogger(),
		executors: xsync.NewMapOf[protocol.EndpointID, *Executor](),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Catalog returns the command catalog.
func (e *Engine) Catalog() *protocol.Catalog {
	return e.cfg.catalog
}

// Attach registers an already-open transport for endpoint. The engine takes
// ownership of tr and closes it on Close or Detach.
func (e *Engine) Attach(endpoint protocol.EndpointID, tr transport.Transport) (*Executor, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	e.openMu.Lock()
	defer e.openMu.Unlock()

	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	ex, loaded := e.executors.LoadOrStore(endpoint, NewExecutor(endpoint, tr, e.cfg))
	if loaded {
		return ex, fmt.Errorf("engine: endpoint %s already attached", endpoint)
	}

	return ex, nil
}

// Detach closes the transport of endpoint and forgets it; the next command
// for the endpoint opens it again.
func (e *Engine) Detach(endpoint protocol.EndpointID) error {
	ex, ok := e.executors.LoadAndDelete(endpoint)
	if !ok {
		return nil
	}

	return ex.close()
}

// Executor returns the executor for endpoint, opening its transport if needed.
func (e *Engine) Executor(endpoint protocol.EndpointID) (*Executor, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	if ex, ok := e.executors.Load(endpoint); ok {
		return ex, nil
	}

	e.openMu.Lock()
	defer e.openMu.Unlock()

	// Close may have run while waiting for the lock
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if ex, ok := e.executors.Load(endpoint); ok {
		return ex, nil
	}
	if e.opener == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOpener, endpoint)
	}

	tr, err := e.opener(endpoint)
	if err != nil {
		return nil, fmt.Errorf("engine: open endpoint %s: %w", endpoint, err)
	}

	ex := NewExecutor(endpoint, tr, e.cfg)
	e.executors.Store(endpoint, ex)
	e.logger.Debug("engine: endpoint opened", "endpoint", string(endpoint))

	return ex, nil
}

// ExecuteCommand looks up name in the catalog and executes it against addr.
//
// A failed or closed transport detaches the endpoint so the next call
// reopens it.
func (e *Engine) ExecuteCommand(ctx context.Context, name string, addr protocol.DeviceAddress, timeout time.Duration) (*protocol.ResponseFrame, error) {
	spec, ok := e.cfg.catalog.Lookup(name)
	if !ok {
		return nil, &ExecError{Command: name, Address: addr, Err: ErrUnknownCommand}
	}

	return e.Execute(ctx, spec, addr, timeout)
}

// Execute runs spec against addr; see Executor.Execute. An address without
// an endpoint fails with ErrNoEndpoint.
func (e *Engine) Execute(ctx context.Context, spec protocol.CommandSpec, addr protocol.DeviceAddress, timeout time.Duration) (*protocol.ResponseFrame, error) {
	ex, err := e.Executor(addr.Endpoint)
	if err != nil {
		return nil, err
	}

	frame, err := ex.Execute(ctx, spec, addr, timeout)
	e.detachOnTransportError(ex, err)

	return frame, err
}

// detachOnTransportError detaches ex when err reports a failed or closed
// transport and reports whether it did.
func (e *Engine) detachOnTransportError(ex *Executor, err error) bool {
	if !errors.Is(err, ErrTransportClosed) && !errors.Is(err, ErrTransportWriteFailed) {
		return false
	}

	e.logger.Warn("engine: endpoint transport failed, detaching", "endpoint", string(ex.endpoint), "error", err)
	e.detachExecutor(ex)

	return true
}

// ScanDevices probes every endpoint/address pair with the catalog's probe
// command; see Scan.
func (e *Engine) ScanDevices(ctx context.Context, endpoints []protocol.EndpointID, addresses []byte) ([]protocol.DeviceAddress, error) {
	return e.Scan(ctx, endpoints, addresses, e.cfg.catalog.Probe())
}

// DecodeTimecode decodes a raw timecode payload.
func (e *Engine) DecodeTimecode(raw []byte) (timecode.Timecode, bool) {
	return timecode.Decode(raw)
}

// Endpoints returns the endpoints currently open.
func (e *Engine) Endpoints() []protocol.EndpointID {
	out := make([]protocol.EndpointID, 0, e.executors.Size())
	e.executors.Range(func(endpoint protocol.EndpointID, _ *Executor) bool {
		out = append(out, endpoint)
		return true
	})

	return out
}

// Close closes every transport the engine owns. Further commands fail with
// ErrEngineClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.openMu.Lock()
	defer e.openMu.Unlock()

	var errs []error
	e.executors.Range(func(endpoint protocol.EndpointID, ex *Executor) bool {
		if err := ex.close(); err != nil {
			errs = append(errs, fmt.Errorf("engine: close endpoint %s: %w", endpoint, err))
		}
		return true
	})
	e.executors.Clear()

	return errors.Join(errs...)
}

// detachExecutor removes ex only if it is still the registered executor, so a
// concurrent reopen is not undone.
func (e *Engine) detachExecutor(ex *Executor) {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	if cur, ok := e.executors.Load(ex.endpoint); ok && cur == ex {
		e.executors.Delete(ex.endpoint)
		_ = ex.close()
	}
}
