// Package pktgen builds Ethernet/IPv4 frames and pcap files for tests and
// synthetic traffic generation.
package pktgen

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// TCPFlags selects the flags set on a generated TCP segment.
type TCPFlags struct {
	SYN, ACK, RST, FIN bool
}

// Spec describes a single frame.
type Spec struct {
	Src, Dst         netip.Addr
	SrcPort, DstPort uint16
	UDP              bool
	Flags            TCPFlags
	PayloadLen       int
	// FragOffset is written to the IPv4 header in 8-byte units.
	FragOffset uint16
}

// Frame serializes s into an Ethernet frame.
func Frame(s Spec) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		SrcIP:      net.IP(s.Src.AsSlice()),
		DstIP:      net.IP(s.Dst.AsSlice()),
		Version:    4,
		TTL:        64,
		FragOffset: s.FragOffset,
	}

	payload := gopacket.Payload(make([]byte, s.PayloadLen))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}

	var err error
	if s.UDP {
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(s.SrcPort),
			DstPort: layers.UDPPort(s.DstPort),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		err = gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload)
	} else {
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(s.SrcPort),
			DstPort: layers.TCPPort(s.DstPort),
			Seq:     1,
			SYN:     s.Flags.SYN,
			ACK:     s.Flags.ACK,
			RST:     s.Flags.RST,
			FIN:     s.Flags.FIN,
			Window:  14600,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		err = gopacket.SerializeLayers(buf, opts, eth, ip, tcp, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to serialize layers: %w", err)
	}
	return buf.Bytes(), nil
}

// MustFrame is like Frame but panics on error.
func MustFrame(s Spec) []byte {
	b, err := Frame(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Packet pairs a frame with its capture time.
type Packet struct {
	Timestamp time.Time
	Data      []byte
}

// WritePcap writes packets as an Ethernet pcap stream to w.
func WritePcap(w io.Writer, packets []Packet) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for _, p := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     p.Timestamp,
			CaptureLength: len(p.Data),
			Length:        len(p.Data),
		}
		if err := pw.WritePacket(ci, p.Data); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}
	return nil
}
