// Package pcap replays capture files through the sensor.
package pcap

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
)

// linkReader is satisfied by both the pcap and the pcapng readers.
type linkReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Open opens a pcap or pcapng file of Ethernet frames.
func Open(filePath string) (gopacket.PacketDataSource, func(), error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { f.Close() }

	r, err := newReader(f)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		closeFn()
		return nil, nil, fmt.Errorf("%s: unsupported link type %s", filePath, r.LinkType())
	}
	return r, closeFn, nil
}

func newReader(f *os.File) (linkReader, error) {
	r, err := pcapgo.NewReader(bufio.NewReader(f))
	if err == nil {
		return r, nil
	}
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	ng, ngErr := pcapgo.NewNgReader(bufio.NewReader(f), pcapgo.DefaultNgReaderOptions)
	if ngErr != nil {
		return nil, fmt.Errorf("not a pcap or pcapng file: %v", err)
	}
	return ng, nil
}

// NewFileSource returns a source that replays filePath once. It waits for
// queue space rather than dropping frames and finishes at end of file.
func NewFileSource(filePath string) *capture.ReaderSource {
	return capture.NewBlockingReaderSource("file:"+filePath, func() (gopacket.PacketDataSource, func(), error) {
		return Open(filePath)
	})
}
