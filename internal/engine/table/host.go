package table

import (
	"sort"

	"github.com/TrieuQuan2005/IdsService/internal/engine/statistic"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// HostTable accumulates statistics for every source host seen within the timeout.
type HostTable struct {
	timeout float64
	hosts   map[model.HostKey]*statistic.HostStats
}

// NewHostTable creates a table whose entries expire after timeout idle seconds.
func NewHostTable(timeout float64) *HostTable {
	return &HostTable{
		timeout: timeout,
		hosts:   make(map[model.HostKey]*statistic.HostStats),
	}
}

// OnPacket folds pkt into the entry of its source address.
func (t *HostTable) OnPacket(pkt *model.PacketRecord) {
	key := model.HostKey{SrcIP: pkt.SrcIP}
	stats, ok := t.hosts[key]
	if !ok {
		stats = statistic.NewHostStats()
		t.hosts[key] = stats
	}
	stats.Add(pkt)
}

// Cleanup removes hosts idle for longer than the timeout and returns how many were removed.
func (t *HostTable) Cleanup(now float64) int {
	removed := 0
	for key, stats := range t.hosts {
		if now-stats.LastSeen > t.timeout {
			delete(t.hosts, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked hosts.
func (t *HostTable) Len() int {
	return len(t.hosts)
}

// Snapshot returns a copy of all entries ordered by address.
func (t *HostTable) Snapshot() []model.HostEntry {
	entries := make([]model.HostEntry, 0, len(t.hosts))
	for key, s := range t.hosts {
		entries = append(entries, model.HostEntry{
			Key:                key,
			FirstSeen:          s.FirstSeen,
			LastSeen:           s.LastSeen,
			Packets:            s.Packets,
			Bytes:              s.Bytes,
			UniqueDstIPs:       s.UniqueDstIPs(),
			UniqueDstPorts:     s.UniqueDstPorts(),
			PortEntropy:        s.PortEntropy(),
			ConnectionAttempts: s.ConnAttempts,
			FailedConnections:  s.FailedConns,
			SynCount:           s.Flags.SYN,
			AckCount:           s.Flags.ACK,
			RstCount:           s.Flags.RST,
			FinCount:           s.Flags.FIN,
			MeanFlowDuration:   s.FlowDuration.Mean(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.SrcIP.Less(entries[j].Key.SrcIP)
	})
	return entries
}
