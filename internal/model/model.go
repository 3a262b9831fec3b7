package model

import (
	"fmt"
	"net/netip"
)

// Direction tells whether a packet leaves or enters the monitored hosts.
type Direction uint8

const (
	DirectionNone Direction = iota
	Forward                 // local source, remote destination
	Backward                // remote source, local destination
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Backward:
		return "BACKWARD"
	default:
		return "NONE"
	}
}

// Protocol is the IANA transport protocol number.
type Protocol uint8

const (
	ProtocolTCP Protocol = 6
	ProtocolUDP Protocol = 17
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// PacketRecord holds the metadata decoded from a single frame.
// It is built once per packet and shared read-only by the flow and host paths.
type PacketRecord struct {
	Timestamp float64 // seconds, capture clock
	Direction Direction
	SrcIP     netip.Addr
	DstIP     netip.Addr
	SrcPort   uint16
	// DstPort is the service port: the wire destination port for Forward
	// packets and the wire source port for Backward ones.
	DstPort  uint16
	Protocol Protocol
	Size     int

	// TCP flags. HasFlags is false for UDP, in which case the flags are undefined.
	HasFlags bool
	SYN      bool
	ACK      bool
	RST      bool
	FIN      bool
}

// FlowKey identifies one direction-normalized flow.
type FlowKey struct {
	SrcIP     netip.Addr
	DstIP     netip.Addr
	DstPort   uint16
	Protocol  Protocol
	Direction Direction
}

// FlowKeyOf builds the flow key of a packet.
func FlowKeyOf(p *PacketRecord) FlowKey {
	return FlowKey{
		SrcIP:     p.SrcIP,
		DstIP:     p.DstIP,
		DstPort:   p.DstPort,
		Protocol:  p.Protocol,
		Direction: p.Direction,
	}
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s: %s → %s:%d/%s", k.Direction, k.SrcIP, k.DstIP, k.DstPort, k.Protocol)
}

// HostKey identifies a source host.
type HostKey struct {
	SrcIP netip.Addr
}

func (k HostKey) String() string {
	return k.SrcIP.String()
}
