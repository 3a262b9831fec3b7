package window

import (
	"github.com/TrieuQuan2005/IdsService/internal/engine/statistic"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// HostEngine keeps a sliding window per source address.
type HostEngine struct {
	size    float64
	buffers map[model.HostKey]*buffer
}

// NewHostEngine creates a host engine with a window of size seconds.
func NewHostEngine(size float64) *HostEngine {
	return &HostEngine{
		size:    size,
		buffers: make(map[model.HostKey]*buffer),
	}
}

// Process adds pkt to its source host window and returns the rebuilt snapshot.
func (e *HostEngine) Process(pkt model.PacketRecord) model.HostWindowSnapshot {
	key := model.HostKey{SrcIP: pkt.SrcIP}
	buf, ok := e.buffers[key]
	if !ok {
		buf = &buffer{}
		e.buffers[key] = buf
	}
	buf.push(pkt, e.size)

	stats := statistic.NewHostStats()
	for i := range buf.packets {
		stats.Add(&buf.packets[i])
	}

	start := pkt.Timestamp - e.size
	duration := pkt.Timestamp - start
	return model.HostWindowSnapshot{
		SrcIP:          key,
		WindowStart:    start,
		WindowEnd:      pkt.Timestamp,
		WindowDuration: duration,

		PacketCount:   stats.Packets,
		ByteCount:     stats.Bytes,
		PacketsPerSec: rate(float64(stats.Packets), duration),

		UniqueDstIPs:   stats.UniqueDstIPs(),
		UniqueDstPorts: stats.UniqueDstPorts(),
		PortEntropy:    stats.PortEntropy(),

		ConnectionAttempts:    stats.ConnAttempts,
		ConnectionRate:        rate(float64(stats.ConnAttempts), duration),
		FailedConnections:     stats.FailedConns,
		FailedConnectionRatio: ratio(stats.FailedConns, stats.ConnAttempts),

		SynCount:     stats.Flags.SYN,
		AckCount:     stats.Flags.ACK,
		RstCount:     stats.Flags.RST,
		FinCount:     stats.Flags.FIN,
		SynOnlyRatio: ratio(stats.SynOnly, stats.Flags.SYN),

		MeanFlowDuration:     stats.FlowDuration.Mean(),
		FlowDurationVariance: stats.FlowDuration.Variance(),
	}
}

// Reclaim drops every host whose newest packet fell out of the window at now.
func (e *HostEngine) Reclaim(now float64) int {
	removed := 0
	for key, buf := range e.buffers {
		if buf.newest() < now-e.size {
			delete(e.buffers, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of active hosts.
func (e *HostEngine) Len() int {
	return len(e.buffers)
}

// Size returns the window size in seconds.
func (e *HostEngine) Size() float64 {
	return e.size
}
