package window

import (
	"github.com/TrieuQuan2005/IdsService/internal/engine/statistic"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// FlowEngine keeps a sliding window per FlowKey.
type FlowEngine struct {
	size    float64
	buffers map[model.FlowKey]*buffer
}

// NewFlowEngine creates a flow engine with a window of size seconds.
func NewFlowEngine(size float64) *FlowEngine {
	return &FlowEngine{
		size:    size,
		buffers: make(map[model.FlowKey]*buffer),
	}
}

// Process adds pkt to its flow window and returns the rebuilt snapshot.
func (e *FlowEngine) Process(pkt model.PacketRecord) model.FlowWindowSnapshot {
	key := model.FlowKeyOf(&pkt)
	buf, ok := e.buffers[key]
	if !ok {
		buf = &buffer{}
		e.buffers[key] = buf
	}
	buf.push(pkt, e.size)

	var stats statistic.FlowStats
	for i := range buf.packets {
		stats.Add(&buf.packets[i])
	}

	start := pkt.Timestamp - e.size
	duration := pkt.Timestamp - start
	return model.FlowWindowSnapshot{
		Key:            key,
		WindowStart:    start,
		WindowEnd:      pkt.Timestamp,
		WindowDuration: duration,

		PacketCount:   stats.Packets,
		ByteCount:     stats.Bytes,
		FwdPackets:    stats.FwdPackets,
		BwdPackets:    stats.BwdPackets,
		PacketsPerSec: rate(float64(stats.Packets), duration),
		BytesPerSec:   rate(float64(stats.Bytes), duration),

		FlowDuration:         stats.Duration(),
		InterArrivalMean:     stats.InterArrival.Mean(),
		InterArrivalVariance: stats.InterArrival.Variance(),

		SynCount: stats.Flags.SYN,
		AckCount: stats.Flags.ACK,
		RstCount: stats.Flags.RST,
		FinCount: stats.Flags.FIN,
		SynRatio: ratio(stats.Flags.SYN, stats.Packets),
		RstRatio: ratio(stats.Flags.RST, stats.Packets),
	}
}

// Reclaim drops every flow whose newest packet fell out of the window at now.
// It returns the number of flows removed.
func (e *FlowEngine) Reclaim(now float64) int {
	removed := 0
	for key, buf := range e.buffers {
		if buf.newest() < now-e.size {
			delete(e.buffers, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of active flows.
func (e *FlowEngine) Len() int {
	return len(e.buffers)
}

// Size returns the window size in seconds.
func (e *FlowEngine) Size() float64 {
	return e.size
}
