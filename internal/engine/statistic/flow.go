package statistic

import "github.com/TrieuQuan2005/IdsService/internal/model"

// FlagCounts counts packets carrying each TCP flag.
type FlagCounts struct {
	SYN int
	ACK int
	RST int
	FIN int
}

func (f *FlagCounts) add(p *model.PacketRecord) {
	if !p.HasFlags {
		return
	}
	if p.SYN {
		f.SYN++
	}
	if p.ACK {
		f.ACK++
	}
	if p.RST {
		f.RST++
	}
	if p.FIN {
		f.FIN++
	}
}

// FlowStats aggregates the packets of one flow.
type FlowStats struct {
	FirstSeen  float64
	LastSeen   float64
	Packets    int
	Bytes      int
	FwdPackets int
	BwdPackets int

	InterArrival Welford
	Flags        FlagCounts
}

// Add updates the aggregates with p. Packets must be added in timestamp order.
func (s *FlowStats) Add(p *model.PacketRecord) {
	if s.Packets == 0 {
		s.FirstSeen = p.Timestamp
	} else {
		s.InterArrival.Add(p.Timestamp - s.LastSeen)
	}
	s.LastSeen = p.Timestamp
	s.Packets++
	s.Bytes += p.Size

	if p.Direction == model.Forward {
		s.FwdPackets++
	} else {
		s.BwdPackets++
	}
	s.Flags.add(p)
}

// Duration returns the time between the first and last packet.
func (s *FlowStats) Duration() float64 {
	return s.LastSeen - s.FirstSeen
}
