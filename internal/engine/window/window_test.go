package window

import (
	"fmt"
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

var (
	local   = netip.MustParseAddr("192.168.1.165")
	servers = []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.2"),
		netip.MustParseAddr("10.0.0.3"),
		netip.MustParseAddr("10.0.0.4"),
	}
)

func udp(ts float64, size int) model.PacketRecord {
	return model.PacketRecord{
		Timestamp: ts, Direction: model.Forward,
		SrcIP: local, DstIP: servers[0], SrcPort: 5000, DstPort: 53,
		Protocol: model.ProtocolUDP, Size: size,
	}
}

func syn(ts float64, dst netip.Addr, port uint16) model.PacketRecord {
	return model.PacketRecord{
		Timestamp: ts, Direction: model.Forward,
		SrcIP: local, DstIP: dst, SrcPort: 40000, DstPort: port,
		Protocol: model.ProtocolTCP, Size: 60, HasFlags: true, SYN: true,
	}
}

func TestFlowEngineTwoPacketUDP(t *testing.T) {
	e := NewFlowEngine(10)
	e.Process(udp(100, 100))
	snap := e.Process(udp(102, 50))

	assert.Equal(t, 2, snap.PacketCount)
	assert.Equal(t, 150, snap.ByteCount)
	assert.InDelta(t, 0.2, snap.PacketsPerSec, 1e-12)
	assert.InDelta(t, 15.0, snap.BytesPerSec, 1e-12)
	assert.Equal(t, 2.0, snap.InterArrivalMean)
	assert.Equal(t, 0.0, snap.InterArrivalVariance)
	assert.Equal(t, 2.0, snap.FlowDuration)
	assert.Equal(t, 92.0, snap.WindowStart)
	assert.Equal(t, 102.0, snap.WindowEnd)
	assert.Equal(t, 10.0, snap.WindowDuration)
	assert.Equal(t, 2, snap.FwdPackets)
	assert.Equal(t, 0, snap.SynCount)
	assert.Equal(t, 0.0, snap.SynRatio)
}

func TestFlowEngineEvictsOldPackets(t *testing.T) {
	e := NewFlowEngine(5)
	e.Process(udp(0, 10))
	e.Process(udp(1, 10))
	e.Process(udp(4, 10))
	snap := e.Process(udp(7, 10))

	// packets at 0 and 1 are older than 7-5
	assert.Equal(t, 2, snap.PacketCount)
	assert.Equal(t, 3.0, snap.InterArrivalMean)
	assert.Equal(t, 3.0, snap.FlowDuration)

	// a packet exactly at the boundary stays
	snap = e.Process(udp(9, 10))
	assert.Equal(t, 3, snap.PacketCount)
}

func TestFlowEngineContainment(t *testing.T) {
	const size = 3.0
	e := NewFlowEngine(size)
	rng := rand.New(rand.NewSource(7))

	var history []model.PacketRecord
	ts := 0.0
	for i := 0; i < 500; i++ {
		ts += rng.Float64()
		pkt := udp(ts, 1+rng.Intn(1400))
		if rng.Intn(3) == 0 {
			pkt.Direction = model.Backward
		}
		history = append(history, pkt)

		snap := e.Process(pkt)

		want, bytes := 0, 0
		for _, p := range history {
			if p.Direction == pkt.Direction && p.Timestamp >= ts-size {
				want++
				bytes += p.Size
			}
		}
		require.Equal(t, want, snap.PacketCount, "packet %d", i)
		require.Equal(t, bytes, snap.ByteCount, "packet %d", i)
		for _, p := range e.buffers[model.FlowKeyOf(&pkt)].packets {
			require.GreaterOrEqual(t, p.Timestamp, ts-size)
		}
	}
}

func TestFlowEngineZeroWindow(t *testing.T) {
	e := NewFlowEngine(0)
	e.Process(udp(5, 10))
	snap := e.Process(udp(5, 20))

	assert.Equal(t, 0.0, snap.WindowDuration)
	assert.Equal(t, 0.0, snap.PacketsPerSec)
	assert.Equal(t, 0.0, snap.BytesPerSec)
	assert.Equal(t, 2, snap.PacketCount)
}

func TestFlowEngineRatios(t *testing.T) {
	e := NewFlowEngine(10)
	var snap model.FlowWindowSnapshot
	for i := 0; i < 4; i++ {
		p := syn(float64(i), servers[0], 80)
		p.RST = i%2 == 0
		snap = e.Process(p)
	}
	assert.Equal(t, 1.0, snap.SynRatio)
	assert.Equal(t, 0.5, snap.RstRatio)
	assert.GreaterOrEqual(t, snap.RstRatio, 0.0)
	assert.LessOrEqual(t, snap.RstRatio, 1.0)
}

func TestFlowEngineSeparatesDirections(t *testing.T) {
	e := NewFlowEngine(10)
	fwd := syn(1, servers[0], 443)
	bwd := fwd
	bwd.Direction = model.Backward

	e.Process(fwd)
	snap := e.Process(bwd)
	assert.Equal(t, 1, snap.PacketCount)
	assert.Equal(t, 1, snap.BwdPackets)
	assert.Equal(t, 2, e.Len())
}

func TestFlowEngineReclaim(t *testing.T) {
	e := NewFlowEngine(10)
	e.Process(syn(1, servers[0], 80))
	e.Process(syn(8, servers[1], 80))
	require.Equal(t, 2, e.Len())

	assert.Equal(t, 0, e.Reclaim(11))
	assert.Equal(t, 1, e.Reclaim(11.5))
	assert.Equal(t, 1, e.Len())
	assert.Equal(t, 1, e.Reclaim(100))
	assert.Equal(t, 0, e.Len())
}

func TestHostEngineThreeSyns(t *testing.T) {
	e := NewHostEngine(10)
	e.Process(syn(1, servers[0], 22))
	e.Process(syn(1.5, servers[1], 22))
	snap := e.Process(syn(2, servers[2], 22))

	assert.Equal(t, local, snap.SrcIP.SrcIP)
	assert.Equal(t, 3, snap.PacketCount)
	assert.Equal(t, 3, snap.UniqueDstIPs)
	assert.Equal(t, 1, snap.UniqueDstPorts)
	assert.Equal(t, 0.0, snap.PortEntropy)
	assert.Equal(t, 3, snap.ConnectionAttempts)
	assert.Equal(t, 3, snap.SynCount)
	assert.Equal(t, 0, snap.FailedConnections)
	assert.Equal(t, 0.0, snap.FailedConnectionRatio)
	assert.Equal(t, 1.0, snap.SynOnlyRatio)
	assert.InDelta(t, 0.3, snap.ConnectionRate, 1e-12)
}

func TestHostEnginePortScan(t *testing.T) {
	e := NewHostEngine(10)
	var snap model.HostWindowSnapshot
	for i, port := range []uint16{21, 22, 23, 25} {
		snap = e.Process(syn(float64(i), servers[0], port))
	}
	assert.Equal(t, 4, snap.UniqueDstPorts)
	assert.InDelta(t, 2.0, snap.PortEntropy, 1e-12)

	rst := syn(5, servers[0], 23)
	rst.SYN, rst.RST = false, true
	snap = e.Process(rst)
	assert.Equal(t, 1, snap.FailedConnections)
	assert.InDelta(t, 0.25, snap.FailedConnectionRatio, 1e-12)
	assert.Equal(t, 1, snap.RstCount)
	assert.InDelta(t, 5.0, snap.MeanFlowDuration, 1e-12)
	assert.Equal(t, 0.0, snap.FlowDurationVariance)
}

func TestHostEngineRatioBounds(t *testing.T) {
	e := NewHostEngine(2)
	rng := rand.New(rand.NewSource(11))
	ts := 0.0
	for i := 0; i < 300; i++ {
		ts += rng.Float64()
		p := syn(ts, servers[rng.Intn(len(servers))], uint16(rng.Intn(5)+20))
		p.SYN = rng.Intn(2) == 0
		p.ACK = rng.Intn(2) == 0
		p.RST = rng.Intn(3) == 0
		p.FIN = rng.Intn(5) == 0
		snap := e.Process(p)

		for name, r := range map[string]float64{
			"failed":   snap.FailedConnectionRatio,
			"syn_only": snap.SynOnlyRatio,
		} {
			require.GreaterOrEqual(t, r, 0.0, fmt.Sprintf("%s at %d", name, i))
			require.LessOrEqual(t, r, 1.0, fmt.Sprintf("%s at %d", name, i))
		}
		require.LessOrEqual(t, snap.FailedConnections, snap.ConnectionAttempts)
	}
}

func TestHostEngineReclaim(t *testing.T) {
	e := NewHostEngine(5)
	e.Process(syn(0, servers[0], 80))
	assert.Equal(t, 0, e.Reclaim(5))
	assert.Equal(t, 1, e.Reclaim(5.01))
	assert.Equal(t, 0, e.Len())
}
