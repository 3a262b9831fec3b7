package statistic

import (
	"net/netip"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// HostStats aggregates the packets sent by one source address.
type HostStats struct {
	FirstSeen float64
	LastSeen  float64
	Packets   int
	Bytes     int

	DstIPs   map[netip.Addr]struct{}
	DstPorts map[uint16]int // histogram, one entry per distinct port

	ConnAttempts int
	SynOnly      int
	FailedConns  int
	Flags        FlagCounts

	// FlowDuration samples the host's activity span each time a FIN or RST closes a connection.
	FlowDuration Welford
}

// NewHostStats creates empty host aggregates.
func NewHostStats() *HostStats {
	return &HostStats{
		DstIPs:   make(map[netip.Addr]struct{}),
		DstPorts: make(map[uint16]int),
	}
}

// Add updates the aggregates with p. Packets must be added in timestamp order.
func (s *HostStats) Add(p *model.PacketRecord) {
	if s.Packets == 0 {
		s.FirstSeen = p.Timestamp
	}
	s.LastSeen = p.Timestamp
	s.Packets++
	s.Bytes += p.Size

	s.DstIPs[p.DstIP] = struct{}{}
	s.DstPorts[p.DstPort]++

	s.Flags.add(p)
	if !p.HasFlags {
		return
	}

	if p.SYN && !p.ACK {
		s.ConnAttempts++
		s.SynOnly++
	}
	// approximation: a bare RST fails at most one outstanding SYN
	if p.RST && !p.ACK && s.FailedConns < s.SynOnly {
		s.FailedConns++
	}
	if p.FIN || p.RST {
		s.FlowDuration.Add(s.LastSeen - s.FirstSeen)
	}
}

// UniqueDstIPs returns the number of distinct destination addresses.
func (s *HostStats) UniqueDstIPs() int { return len(s.DstIPs) }

// UniqueDstPorts returns the number of distinct destination ports.
func (s *HostStats) UniqueDstPorts() int { return len(s.DstPorts) }

// PortEntropy returns the entropy of the destination-port histogram.
func (s *HostStats) PortEntropy() float64 { return PortEntropy(s.DstPorts) }
