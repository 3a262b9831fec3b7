package pcap

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
	"github.com/TrieuQuan2005/IdsService/internal/pktgen"
)

var (
	local  = netip.MustParseAddr("192.168.1.165")
	remote = netip.MustParseAddr("10.0.0.1")
)

func writeFixture(t *testing.T, n int) string {
	t.Helper()
	base := time.Unix(1700000000, 0)
	var packets []pktgen.Packet
	for i := 0; i < n; i++ {
		packets = append(packets, pktgen.Packet{
			Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond),
			Data: pktgen.MustFrame(pktgen.Spec{
				Src: local, Dst: remote, SrcPort: 40000, DstPort: uint16(20 + i%4),
				Flags: pktgen.TCPFlags{SYN: true},
			}),
		})
	}
	path := filepath.Join(t.TempDir(), "scan.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, pktgen.WritePcap(f, packets))
	require.NoError(t, f.Close())
	return path
}

func TestFileSourceReadsEveryFrame(t *testing.T) {
	path := writeFixture(t, 40)
	src := NewFileSource(path)
	// smaller than the file, so the source has to wait for space
	q := capture.NewQueue(8)
	require.NoError(t, src.Start(context.Background(), q))

	var frames []capture.Frame
	for len(frames) < 40 {
		f, ok := q.Dequeue(time.Second)
		require.True(t, ok, "timed out after %d frames", len(frames))
		frames = append(frames, f)
	}

	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("source did not finish at end of file")
	}
	assert.NoError(t, src.Err())
	assert.Equal(t, uint64(40), src.Captured())
	assert.Equal(t, uint64(0), q.Dropped())
	assert.Equal(t, int64(1700000000), frames[0].Timestamp.Unix())
	assert.Equal(t, 100*time.Millisecond, frames[1].Timestamp.Sub(frames[0].Timestamp))
	require.NoError(t, src.Stop())
}

func TestFileSourceReplayThroughPipeline(t *testing.T) {
	path := writeFixture(t, 20)
	p := pipeline.New(pipeline.Options{
		LocalAddrs:     []netip.Addr{local},
		FlowWindow:     10,
		HostWindow:     10,
		FlowTimeout:    30,
		HostTimeout:    30,
		DequeueTimeout: 10 * time.Millisecond,
	}, nil)

	require.NoError(t, p.Run(context.Background(), NewFileSource(path), capture.NewQueue(4)))

	c := p.Counters()
	assert.Equal(t, uint64(20), c.Processed)
	assert.Equal(t, uint64(20), c.HostFeatures)
	tables := p.Tables()
	assert.Len(t, tables.Flows, 4)
	require.Len(t, tables.Hosts, 1)
	assert.Equal(t, 4, tables.Hosts[0].UniqueDstPorts)
}

func TestOpenErrors(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a capture file"), 0644))
	_, _, err = Open(garbage)
	assert.ErrorContains(t, err, "not a pcap or pcapng file")

	src := NewFileSource(garbage)
	err = src.Start(context.Background(), capture.NewQueue(1))
	assert.ErrorContains(t, err, "capture: failed to open file:")
}
