package statistic

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

var (
	hostA = netip.MustParseAddr("192.168.1.165")
	hostB = netip.MustParseAddr("10.0.0.1")
)

func TestWelford(t *testing.T) {
	var w Welford
	assert.Equal(t, 0.0, w.Mean())
	assert.Equal(t, 0.0, w.Variance())

	w.Add(2)
	assert.Equal(t, 1, w.Count())
	assert.Equal(t, 2.0, w.Mean())
	assert.Equal(t, 0.0, w.Variance())

	for _, x := range []float64{4, 4, 4, 5, 5, 7, 9} {
		w.Add(x)
	}
	// samples 2,4,4,4,5,5,7,9: mean 5, sum of squares 32
	assert.InDelta(t, 5.0, w.Mean(), 1e-12)
	assert.InDelta(t, 32.0/7.0, w.Variance(), 1e-12)

	w.Reset()
	assert.Equal(t, 0, w.Count())
}

func TestPortEntropy(t *testing.T) {
	assert.Equal(t, 0.0, PortEntropy(nil))
	assert.Equal(t, 0.0, PortEntropy(map[uint16]int{80: 12}))
	assert.InDelta(t, 1.0, PortEntropy(map[uint16]int{80: 3, 443: 3}), 1e-12)
	assert.InDelta(t, 2.0, PortEntropy(map[uint16]int{21: 1, 22: 1, 23: 1, 25: 1}), 1e-12)

	uneven := PortEntropy(map[uint16]int{21: 5, 22: 1, 23: 1, 25: 1})
	assert.Less(t, uneven, 2.0)
	assert.Greater(t, uneven, 0.0)
}

func tcp(ts float64, dir model.Direction, dst netip.Addr, port uint16, syn, ack, rst, fin bool) *model.PacketRecord {
	return &model.PacketRecord{
		Timestamp: ts, Direction: dir, SrcIP: hostA, DstIP: dst, DstPort: port,
		Protocol: model.ProtocolTCP, Size: 60, HasFlags: true,
		SYN: syn, ACK: ack, RST: rst, FIN: fin,
	}
}

func TestFlowStats(t *testing.T) {
	var s FlowStats
	s.Add(tcp(10, model.Forward, hostB, 80, true, false, false, false))
	s.Add(tcp(11, model.Backward, hostB, 80, true, true, false, false))
	s.Add(tcp(13, model.Forward, hostB, 80, false, true, false, true))

	assert.Equal(t, 3, s.Packets)
	assert.Equal(t, 180, s.Bytes)
	assert.Equal(t, 2, s.FwdPackets)
	assert.Equal(t, 1, s.BwdPackets)
	assert.Equal(t, 3.0, s.Duration())
	assert.Equal(t, 2, s.InterArrival.Count())
	assert.InDelta(t, 1.5, s.InterArrival.Mean(), 1e-12)
	assert.InDelta(t, 0.5, s.InterArrival.Variance(), 1e-12)
	assert.Equal(t, FlagCounts{SYN: 2, ACK: 2, FIN: 1}, s.Flags)
}

func TestFlowStatsIgnoresUDPFlags(t *testing.T) {
	var s FlowStats
	s.Add(&model.PacketRecord{Timestamp: 1, Direction: model.Forward, Protocol: model.ProtocolUDP, Size: 10, SYN: true})
	assert.Equal(t, FlagCounts{}, s.Flags)
}

func TestHostStatsConnectionHeuristics(t *testing.T) {
	s := NewHostStats()
	s.Add(tcp(1, model.Forward, hostB, 22, true, false, false, false))
	s.Add(tcp(2, model.Forward, hostB, 23, true, false, false, false))
	// RST+ACK does not count as a failure
	s.Add(tcp(3, model.Forward, hostB, 22, false, true, true, false))
	s.Add(tcp(4, model.Forward, hostB, 22, false, false, true, false))
	s.Add(tcp(5, model.Forward, hostB, 23, false, false, true, false))
	// no outstanding SYN left to fail
	s.Add(tcp(6, model.Forward, hostB, 23, false, false, true, false))

	assert.Equal(t, 2, s.ConnAttempts)
	assert.Equal(t, 2, s.SynOnly)
	assert.Equal(t, 2, s.FailedConns)
	assert.Equal(t, 4, s.Flags.RST)
	assert.Equal(t, 1, s.UniqueDstIPs())
	assert.Equal(t, 2, s.UniqueDstPorts())
	assert.InDelta(t, 1.0, s.PortEntropy(), 1e-12)

	// durations sampled at ts 3,4,5,6 relative to first_seen 1
	assert.Equal(t, 4, s.FlowDuration.Count())
	assert.InDelta(t, 3.5, s.FlowDuration.Mean(), 1e-12)
}
