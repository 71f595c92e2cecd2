package engine

import (
	"sync/atomic"
)

// Metrics contains atomic counters for one endpoint executor.
// They can back prometheus CounterFunc or GaugeFunc values.
type Metrics struct {
	// CommandSendCount counts packets written, status polls and probes included.
	CommandSendCount atomic.Uint64
	// ResponseCount counts responses accumulated with at least one byte.
	ResponseCount atomic.Uint64
	// NoResponseCount counts waits that ended with zero bytes.
	NoResponseCount atomic.Uint64
	// RejectedCount counts Macro commands answered with NACK.
	RejectedCount atomic.Uint64
	// PollCount counts status polls issued for Macro commands.
	PollCount atomic.Uint64
	// MacroCompletedCount counts Macro commands whose polling observed data.
	MacroCompletedCount atomic.Uint64
	// MacroTimeoutCount counts Macro commands that exhausted their polls.
	MacroTimeoutCount atomic.Uint64
	// StaleByteCount counts bytes discarded before a command was written.
	StaleByteCount atomic.Uint64
	// InflightGauge is 1 while a command holds the endpoint.
	InflightGauge atomic.Int32
}

func (m *Metrics) incCommandSendCount()    { m.CommandSendCount.Add(1) }
func (m *Metrics) incResponseCount()       { m.ResponseCount.Add(1) }
func (m *Metrics) incNoResponseCount()     { m.NoResponseCount.Add(1) }
func (m *Metrics) incRejectedCount()       { m.RejectedCount.Add(1) }
func (m *Metrics) incPollCount()           { m.PollCount.Add(1) }
func (m *Metrics) incMacroCompletedCount() { m.MacroCompletedCount.Add(1) }
func (m *Metrics) incMacroTimeoutCount()   { m.MacroTimeoutCount.Add(1) }

func (m *Metrics) addStaleByteCount(n int) {
	m.StaleByteCount.Add(uint64(n)) //nolint:gosec // n is a non-negative byte count
}
