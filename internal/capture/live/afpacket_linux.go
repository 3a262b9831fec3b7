//go:build linux

package live

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
)

const (
	afpacketBlockSize = 1 << 20
	afpacketNumBlocks = 64
)

// NewAFPacketSource creates a TPACKET_V3 source on the given interface.
// The BPF filter is compiled with libpcap and attached to the socket.
func NewAFPacketSource(cfg Config) (*capture.ReaderSource, error) {
	open := func() (gopacket.PacketDataSource, func(), error) {
		snapLen := int(cfg.SnapLen)
		if snapLen <= 0 {
			snapLen = 65535
		}
		tp, err := afpacket.NewTPacket(
			afpacket.OptInterface(cfg.Interface),
			afpacket.OptFrameSize(snapLen),
			afpacket.OptBlockSize(afpacketBlockSize),
			afpacket.OptNumBlocks(afpacketNumBlocks),
			afpacket.OptPollTimeout(readTimeout),
			afpacket.TPacketVersion3,
		)
		if err != nil {
			return nil, nil, err
		}
		if cfg.BPFFilter != "" {
			if err := setBPF(tp, cfg.BPFFilter, snapLen); err != nil {
				tp.Close()
				return nil, nil, err
			}
		}
		return tp, tp.Close, nil
	}
	isTimeout := func(err error) bool {
		return errors.Is(err, afpacket.ErrTimeout)
	}
	return capture.NewReaderSource("afpacket:"+cfg.Interface, open, isTimeout), nil
}

func setBPF(tp *afpacket.TPacket, filter string, snapLen int) error {
	compiled, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return fmt.Errorf("failed to compile BPF filter %q: %w", filter, err)
	}
	raw := make([]bpf.RawInstruction, len(compiled))
	for i, ins := range compiled {
		raw[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	if err := tp.SetBPF(raw); err != nil {
		return fmt.Errorf("failed to attach BPF filter: %w", err)
	}
	return nil
}
