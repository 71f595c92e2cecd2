package engine

import (
	"context"

	"github.com/cedinu/flexicart-control/internal/pool"
	"github.com/cedinu/flexicart-control/protocol"
)

// Scan sends probe to every (endpoint, unit) pair and returns the pairs that
// answered, in probe order.
//
// Probes run one at a time with the configured scan timeout each and the
// probe delay between consecutive probes. A pair is reachable when it answers
// with data, or with an ACK frame carrying at least one byte. A probe that
// fails is logged and skipped; an endpoint that cannot be opened contributes
// no devices. A failed or closed transport is detached and the rest of its
// units are skipped, so the next scan reopens it. Only ctx cancellation ends a scan early, in which case the
// devices found so far are returned with ctx.Err().
func (e *Engine) Scan(ctx context.Context, endpoints []protocol.EndpointID, units []byte, probe protocol.CommandSpec) ([]protocol.DeviceAddress, error) {
	var found []protocol.DeviceAddress
	first := true

	for _, endpoint := range endpoints {
		ex, err := e.Executor(endpoint)
		if err != nil {
			e.logger.Warn("engine: scan skipped endpoint", "endpoint", string(endpoint), "error", err)
			continue
		}

		for _, unit := range units {
			if !first && !pool.Sleep(e.cfg.probeDelay, ctx.Done()) {
				return found, ctx.Err()
			}
			first = false

			addr := protocol.DeviceAddress{Endpoint: endpoint, Unit: unit}
			frame, err := ex.Execute(ctx, probe, addr, e.cfg.scanTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return found, ctx.Err()
				}
				if e.detachOnTransportError(ex, err) {
					break
				}
				e.logger.Debug("engine: probe failed", "address", addr.String(), "error", err)

				continue
			}

			if reachable(frame) {
				e.logger.Debug("engine: device found", "address", addr.String(), "response", frame.String())
				found = append(found, addr)
			}
		}
	}

	e.logger.Info("engine: scan finished",
		"endpoints", len(endpoints), "units", len(units), "found", len(found))

	return found, nil
}

func reachable(f *protocol.ResponseFrame) bool {
	switch f.Class {
	case protocol.Data:
		return true
	case protocol.Ack:
		return f.Len() > 0
	default:
		return false
	}
}
