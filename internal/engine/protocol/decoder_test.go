package protocol

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrieuQuan2005/IdsService/internal/model"
	"github.com/TrieuQuan2005/IdsService/internal/pktgen"
)

var (
	local  = netip.MustParseAddr("192.168.1.165")
	remote = netip.MustParseAddr("142.250.66.78")
	other  = netip.MustParseAddr("10.9.9.9")
)

func newTestDecoder() *Decoder {
	return NewDecoder(NewResolver([]netip.Addr{local}))
}

func TestResolve(t *testing.T) {
	r := NewResolver([]netip.Addr{local, netip.MustParseAddr("192.168.1.166")})

	assert.Equal(t, model.Forward, r.Resolve(local, remote))
	assert.Equal(t, model.Backward, r.Resolve(remote, local))
	assert.Equal(t, model.DirectionNone, r.Resolve(local, netip.MustParseAddr("192.168.1.166")))
	assert.Equal(t, model.DirectionNone, r.Resolve(remote, other))
}

func TestDecodeForwardTCP(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{
		Src: local, Dst: remote, SrcPort: 51000, DstPort: 443,
		Flags: pktgen.TCPFlags{SYN: true},
	})

	pkt, out := newTestDecoder().Decode(frame, 12.5)
	require.Equal(t, Decoded, out)

	assert.Equal(t, 12.5, pkt.Timestamp)
	assert.Equal(t, model.Forward, pkt.Direction)
	assert.Equal(t, local, pkt.SrcIP)
	assert.Equal(t, remote, pkt.DstIP)
	assert.Equal(t, uint16(51000), pkt.SrcPort)
	assert.Equal(t, uint16(443), pkt.DstPort)
	assert.Equal(t, model.ProtocolTCP, pkt.Protocol)
	assert.Equal(t, 40, pkt.Size)
	assert.True(t, pkt.HasFlags)
	assert.True(t, pkt.SYN)
	assert.False(t, pkt.ACK)
	assert.False(t, pkt.RST)
	assert.False(t, pkt.FIN)
}

func TestDecodeBackwardNormalizesServicePort(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{
		Src: remote, Dst: local, SrcPort: 443, DstPort: 51000,
		Flags: pktgen.TCPFlags{SYN: true, ACK: true},
	})

	pkt, out := newTestDecoder().Decode(frame, 1)
	require.Equal(t, Decoded, out)
	assert.Equal(t, model.Backward, pkt.Direction)
	assert.Equal(t, uint16(443), pkt.SrcPort)
	assert.Equal(t, uint16(443), pkt.DstPort)
	assert.True(t, pkt.SYN)
	assert.True(t, pkt.ACK)
}

func TestDecodeUDP(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{
		Src: local, Dst: remote, SrcPort: 5353, DstPort: 53, UDP: true, PayloadLen: 72,
	})

	pkt, out := newTestDecoder().Decode(frame, 3)
	require.Equal(t, Decoded, out)
	assert.Equal(t, model.ProtocolUDP, pkt.Protocol)
	assert.Equal(t, uint16(53), pkt.DstPort)
	assert.Equal(t, 20+8+72, pkt.Size)
	assert.False(t, pkt.HasFlags)
}

func TestDecodeAgreesWithGopacket(t *testing.T) {
	specs := []pktgen.Spec{
		{Src: local, Dst: remote, SrcPort: 40000, DstPort: 22, Flags: pktgen.TCPFlags{ACK: true, FIN: true}, PayloadLen: 10},
		{Src: local, Dst: remote, SrcPort: 40001, DstPort: 80, Flags: pktgen.TCPFlags{RST: true}},
		{Src: local, Dst: remote, SrcPort: 40002, DstPort: 123, UDP: true, PayloadLen: 48},
	}
	d := newTestDecoder()
	for _, s := range specs {
		frame := pktgen.MustFrame(s)
		pkt, out := d.Decode(frame, 0)
		require.Equal(t, Decoded, out)

		ref := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
		ip := ref.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		assert.Equal(t, int(ip.Length), pkt.Size)
		if tcp, ok := ref.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
			assert.Equal(t, uint16(tcp.DstPort), pkt.DstPort)
			assert.Equal(t, tcp.SYN, pkt.SYN)
			assert.Equal(t, tcp.ACK, pkt.ACK)
			assert.Equal(t, tcp.RST, pkt.RST)
			assert.Equal(t, tcp.FIN, pkt.FIN)
		} else {
			udp := ref.Layer(layers.LayerTypeUDP).(*layers.UDP)
			assert.Equal(t, uint16(udp.DstPort), pkt.DstPort)
		}
	}
}

func TestDecodeNoDirection(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{Src: remote, Dst: other, SrcPort: 1, DstPort: 2})
	_, out := newTestDecoder().Decode(frame, 0)
	assert.Equal(t, NoDirection, out)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid := pktgen.MustFrame(pktgen.Spec{Src: local, Dst: remote, SrcPort: 1000, DstPort: 80})

	clone := func(mutate func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return mutate(b)
	}

	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short ethernet", valid[:10]},
		{"arp ethertype", clone(func(b []byte) []byte { binary.BigEndian.PutUint16(b[12:14], 0x0806); return b })},
		{"short ip header", valid[:30]},
		{"ip version 6", clone(func(b []byte) []byte { b[14] = 0x65; return b })},
		{"ihl below minimum", clone(func(b []byte) []byte { b[14] = 0x44; return b })},
		{"ihl beyond buffer", clone(func(b []byte) []byte { b[14] = 0x4F; return b[:40] })},
		{"truncated tcp", valid[:14+20+10]},
		{"tcp data offset beyond buffer", clone(func(b []byte) []byte { b[14+20+12] = 0xF0; return b })},
		{"icmp", clone(func(b []byte) []byte { b[14+9] = 1; return b })},
		{"truncated udp", pktgen.MustFrame(pktgen.Spec{Src: local, Dst: remote, UDP: true})[:14+20+4]},
	}
	d := newTestDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := d.Decode(tt.frame, 0)
			assert.Equal(t, Unparsed, out)
		})
	}
}

func TestDecodeDropsFragments(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{
		Src: local, Dst: remote, SrcPort: 1000, DstPort: 80, FragOffset: 185,
	})
	_, out := newTestDecoder().Decode(frame, 0)
	assert.Equal(t, Unparsed, out)
}

func TestDecodeClampsSize(t *testing.T) {
	frame := pktgen.MustFrame(pktgen.Spec{Src: local, Dst: remote, SrcPort: 1000, DstPort: 80, PayloadLen: 100})
	// claim a datagram larger than what was captured
	binary.BigEndian.PutUint16(frame[16:18], 1500)

	pkt, out := newTestDecoder().Decode(frame, 0)
	require.Equal(t, Decoded, out)
	assert.Equal(t, len(frame)-14, pkt.Size)
}
