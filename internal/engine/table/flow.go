// Package table keeps lifetime statistics per flow and per host until they
// are evicted by a timeout sweep.
package table

import (
	"sort"

	"github.com/TrieuQuan2005/IdsService/internal/engine/statistic"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// FlowTable accumulates statistics for every flow seen within the timeout.
// It is not safe for concurrent use; readers on other goroutines use Snapshot.
type FlowTable struct {
	timeout float64
	flows   map[model.FlowKey]*statistic.FlowStats
}

// NewFlowTable creates a table whose entries expire after timeout idle seconds.
func NewFlowTable(timeout float64) *FlowTable {
	return &FlowTable{
		timeout: timeout,
		flows:   make(map[model.FlowKey]*statistic.FlowStats),
	}
}

// OnPacket folds pkt into its flow entry, creating it if needed.
func (t *FlowTable) OnPacket(pkt *model.PacketRecord) {
	key := model.FlowKeyOf(pkt)
	stats, ok := t.flows[key]
	if !ok {
		stats = &statistic.FlowStats{}
		t.flows[key] = stats
	}
	stats.Add(pkt)
}

// Cleanup removes flows idle for longer than the timeout and returns how many were removed.
func (t *FlowTable) Cleanup(now float64) int {
	removed := 0
	for key, stats := range t.flows {
		if now-stats.LastSeen > t.timeout {
			delete(t.flows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked flows.
func (t *FlowTable) Len() int {
	return len(t.flows)
}

// Snapshot returns a copy of all entries ordered by key.
func (t *FlowTable) Snapshot() []model.FlowEntry {
	entries := make([]model.FlowEntry, 0, len(t.flows))
	for key, s := range t.flows {
		entries = append(entries, model.FlowEntry{
			Key:                  key,
			FirstSeen:            s.FirstSeen,
			LastSeen:             s.LastSeen,
			Packets:              s.Packets,
			Bytes:                s.Bytes,
			FwdPackets:           s.FwdPackets,
			BwdPackets:           s.BwdPackets,
			InterArrivalMean:     s.InterArrival.Mean(),
			InterArrivalVariance: s.InterArrival.Variance(),
			SynCount:             s.Flags.SYN,
			AckCount:             s.Flags.ACK,
			RstCount:             s.Flags.RST,
			FinCount:             s.Flags.FIN,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries
}
