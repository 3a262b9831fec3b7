package protocol

import (
	"encoding/binary"
	"net/netip"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// Outcome is the result class of decoding one frame.
type Outcome uint8

const (
	// Decoded means the returned record is complete.
	Decoded Outcome = iota
	// Unparsed covers non-IPv4 frames, truncated headers, fragments and
	// transports other than TCP and UDP.
	Unparsed
	// NoDirection means neither or both endpoints are local. The record is
	// not usable by the window engines.
	NoDirection
)

func (o Outcome) String() string {
	switch o {
	case Decoded:
		return "decoded"
	case Unparsed:
		return "unparsed"
	case NoDirection:
		return "no_direction"
	default:
		return "unknown"
	}
}

const (
	ethHeaderLen   = 14
	etherTypeIPv4  = 0x0800
	ipv4MinLen     = 20
	tcpMinLen      = 20
	udpHeaderLen   = 8
	fragOffsetMask = 0x1FFF

	flagFIN = 0x01
	flagSYN = 0x02
	flagRST = 0x04
	flagACK = 0x10
)

// Decoder turns raw Ethernet frames into PacketRecords.
type Decoder struct {
	resolver *Resolver
}

// NewDecoder creates a Decoder that uses r to assign packet directions.
func NewDecoder(r *Resolver) *Decoder {
	return &Decoder{resolver: r}
}

// Decode parses the Ethernet, IPv4 and TCP/UDP headers of frame. Any check that
// fails yields Unparsed; the returned record is only meaningful for Decoded.
func (d *Decoder) Decode(frame []byte, ts float64) (model.PacketRecord, Outcome) {
	var pkt model.PacketRecord

	if len(frame) < ethHeaderLen || binary.BigEndian.Uint16(frame[12:14]) != etherTypeIPv4 {
		return pkt, Unparsed
	}
	if len(frame) < ethHeaderLen+ipv4MinLen {
		return pkt, Unparsed
	}

	ip := frame[ethHeaderLen:]
	if ip[0]>>4 != 4 {
		return pkt, Unparsed
	}
	ihl := int(ip[0]&0x0F) * 4
	if ihl < ipv4MinLen || len(ip) < ihl {
		return pkt, Unparsed
	}
	if binary.BigEndian.Uint16(ip[6:8])&fragOffsetMask != 0 {
		return pkt, Unparsed
	}

	pkt.Timestamp = ts
	pkt.SrcIP = netip.AddrFrom4([4]byte(ip[12:16]))
	pkt.DstIP = netip.AddrFrom4([4]byte(ip[16:20]))

	pkt.Direction = d.resolver.Resolve(pkt.SrcIP, pkt.DstIP)
	if pkt.Direction == model.DirectionNone {
		return pkt, NoDirection
	}

	pkt.Size = int(binary.BigEndian.Uint16(ip[2:4]))
	if avail := len(frame) - ethHeaderLen; pkt.Size > avail {
		pkt.Size = avail
	}

	transport := ip[ihl:]
	switch model.Protocol(ip[9]) {
	case model.ProtocolTCP:
		if len(transport) < tcpMinLen {
			return pkt, Unparsed
		}
		dataOffset := int(transport[12]>>4) * 4
		if dataOffset < tcpMinLen || len(transport) < dataOffset {
			return pkt, Unparsed
		}
		flags := transport[13]
		pkt.Protocol = model.ProtocolTCP
		pkt.HasFlags = true
		pkt.SYN = flags&flagSYN != 0
		pkt.ACK = flags&flagACK != 0
		pkt.RST = flags&flagRST != 0
		pkt.FIN = flags&flagFIN != 0
	case model.ProtocolUDP:
		if len(transport) < udpHeaderLen {
			return pkt, Unparsed
		}
		pkt.Protocol = model.ProtocolUDP
	default:
		return pkt, Unparsed
	}

	pkt.SrcPort = binary.BigEndian.Uint16(transport[0:2])
	pkt.DstPort = binary.BigEndian.Uint16(transport[2:4])
	// the flow key is built around the service port
	if pkt.Direction == model.Backward {
		pkt.DstPort = pkt.SrcPort
	}
	return pkt, Decoded
}
