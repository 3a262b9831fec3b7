package probe

import (
	"errors"
	"fmt"
	"math"
	"net/netip"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// Kind tags which vector a message carries.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFlow
	KindHost
)

func (k Kind) String() string {
	switch k {
	case KindFlow:
		return "flow"
	case KindHost:
		return "host"
	default:
		return "unknown"
	}
}

// field numbers of the feature message
const (
	fieldKind       protowire.Number = 1
	fieldTimestamp  protowire.Number = 2
	fieldWindowSize protowire.Number = 3
	fieldSrcIP      protowire.Number = 4
	fieldDstIP      protowire.Number = 5
	fieldDstPort    protowire.Number = 6
	fieldProtocol   protowire.Number = 7
	fieldDirection  protowire.Number = 8
	fieldValues     protowire.Number = 9
)

// Message is a decoded feature message. Exactly one of Flow and Host is set.
type Message struct {
	Kind Kind
	Flow *model.FlowFeatureVector
	Host *model.HostFeatureVector
}

// EncodeFlow serializes a flow vector.
func EncodeFlow(v model.FlowFeatureVector) []byte {
	var b []byte
	b = appendVarint(b, fieldKind, uint64(KindFlow))
	b = appendDouble(b, fieldTimestamp, v.Timestamp)
	b = appendDouble(b, fieldWindowSize, v.WindowSize)
	b = appendAddr(b, fieldSrcIP, v.Key.SrcIP)
	b = appendAddr(b, fieldDstIP, v.Key.DstIP)
	b = appendVarint(b, fieldDstPort, uint64(v.Key.DstPort))
	b = appendVarint(b, fieldProtocol, uint64(v.Key.Protocol))
	b = appendVarint(b, fieldDirection, uint64(v.Key.Direction))
	return appendValues(b, v.Values())
}

// EncodeHost serializes a host vector.
func EncodeHost(v model.HostFeatureVector) []byte {
	var b []byte
	b = appendVarint(b, fieldKind, uint64(KindHost))
	b = appendDouble(b, fieldTimestamp, v.Timestamp)
	b = appendDouble(b, fieldWindowSize, v.WindowSize)
	b = appendAddr(b, fieldSrcIP, v.SrcIP)
	return appendValues(b, v.Values())
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendAddr(b []byte, num protowire.Number, addr netip.Addr) []byte {
	if !addr.IsValid() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, addr.AsSlice())
}

func appendValues(b []byte, values []float64) []byte {
	packed := make([]byte, 0, 8*len(values))
	for _, v := range values {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, fieldValues, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

type rawMessage struct {
	kind       Kind
	timestamp  float64
	windowSize float64
	srcIP      netip.Addr
	dstIP      netip.Addr
	dstPort    uint16
	protocol   model.Protocol
	direction  model.Direction
	values     []float64
}

// Decode parses a feature message. Unknown fields are skipped.
func Decode(b []byte) (Message, error) {
	var raw rawMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Message{}, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Message{}, fmt.Errorf("invalid varint in field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldKind:
				raw.kind = Kind(v)
			case fieldDstPort:
				raw.dstPort = uint16(v)
			case fieldProtocol:
				raw.protocol = model.Protocol(v)
			case fieldDirection:
				raw.direction = model.Direction(v)
			}
		case typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Message{}, fmt.Errorf("invalid fixed64 in field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldTimestamp:
				raw.timestamp = math.Float64frombits(v)
			case fieldWindowSize:
				raw.windowSize = math.Float64frombits(v)
			}
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Message{}, fmt.Errorf("invalid bytes in field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			var err error
			switch num {
			case fieldSrcIP:
				raw.srcIP, err = parseAddr(v)
			case fieldDstIP:
				raw.dstIP, err = parseAddr(v)
			case fieldValues:
				raw.values, err = parseValues(v)
			}
			if err != nil {
				return Message{}, err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Message{}, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return raw.message()
}

func parseAddr(b []byte) (netip.Addr, error) {
	addr, ok := netip.AddrFromSlice(b)
	if !ok {
		return netip.Addr{}, fmt.Errorf("invalid address of %d bytes", len(b))
	}
	return addr, nil
}

func parseValues(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed values have invalid length %d", len(b))
	}
	values := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		values = append(values, math.Float64frombits(v))
		b = b[n:]
	}
	return values, nil
}

func (r rawMessage) message() (Message, error) {
	switch r.kind {
	case KindFlow:
		// newer minor versions append values; only the known prefix is read
		if len(r.values) < len(model.FlowFeatureNames) {
			return Message{}, fmt.Errorf("flow message has %d values, want at least %d", len(r.values), len(model.FlowFeatureNames))
		}
		v := r.values
		return Message{Kind: KindFlow, Flow: &model.FlowFeatureVector{
			Timestamp:  r.timestamp,
			WindowSize: r.windowSize,
			Key: model.FlowKey{
				SrcIP:     r.srcIP,
				DstIP:     r.dstIP,
				DstPort:   r.dstPort,
				Protocol:  r.protocol,
				Direction: r.direction,
			},
			PacketCount:          int(v[0]),
			ByteCount:            int(v[1]),
			PacketsPerSecond:     v[2],
			BytesPerSecond:       v[3],
			FlowDuration:         v[4],
			InterArrivalMean:     v[5],
			InterArrivalVariance: v[6],
			ForwardRatio:         v[7],
			SynRatio:             v[8],
			RstRatio:             v[9],
		}}, nil
	case KindHost:
		// newer minor versions append values; only the known prefix is read
		if len(r.values) < len(model.HostFeatureNames) {
			return Message{}, fmt.Errorf("host message has %d values, want at least %d", len(r.values), len(model.HostFeatureNames))
		}
		v := r.values
		return Message{Kind: KindHost, Host: &model.HostFeatureVector{
			Timestamp:             r.timestamp,
			WindowSize:            r.windowSize,
			SrcIP:                 r.srcIP,
			PacketCount:           int(v[0]),
			PacketsPerSecond:      v[1],
			UniqueDstIPs:          int(v[2]),
			UniqueDstPorts:        int(v[3]),
			PortEntropy:           v[4],
			ConnectionAttempts:    int(v[5]),
			ConnectionsPerSecond:  v[6],
			FailedConnectionRatio: v[7],
			SynRatio:              v[8],
			RstRatio:              v[9],
			MeanFlowDuration:      v[10],
		}}, nil
	default:
		return Message{}, errors.New("message has no kind")
	}
}
