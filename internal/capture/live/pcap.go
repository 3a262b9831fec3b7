// Package live captures from network interfaces through libpcap or
// AF_PACKET. It needs cgo; the rest of the engine and file replay do not.
package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
)

// readTimeout bounds how long a blocked read can delay Stop.
const readTimeout = 100 * time.Millisecond

// Config configures capture from a network interface.
type Config struct {
	Interface   string
	SnapLen     int32
	Promiscuous bool
	BPFFilter   string
}

// NewPcapSource creates a libpcap source on the given interface.
func NewPcapSource(cfg Config) *capture.ReaderSource {
	open := func() (gopacket.PacketDataSource, func(), error) {
		handle, err := pcap.OpenLive(cfg.Interface, cfg.SnapLen, cfg.Promiscuous, readTimeout)
		if err != nil {
			return nil, nil, err
		}
		if cfg.BPFFilter != "" {
			if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
				handle.Close()
				return nil, nil, fmt.Errorf("failed to set BPF filter %q: %w", cfg.BPFFilter, err)
			}
		}
		return handle, handle.Close, nil
	}
	isTimeout := func(err error) bool {
		return errors.Is(err, pcap.NextErrorTimeoutExpired)
	}
	return capture.NewReaderSource("pcap:"+cfg.Interface, open, isTimeout)
}
