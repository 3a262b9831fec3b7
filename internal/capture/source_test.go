package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTimeout = errors.New("read timeout")

// scriptedReader returns the given frames, then the final error forever.
type scriptedReader struct {
	mu     sync.Mutex
	frames [][]byte
	final  error
	closed bool
}

func (r *scriptedReader) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		if r.final == errTimeout {
			time.Sleep(time.Millisecond)
		}
		return nil, gopacket.CaptureInfo{}, r.final
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return f, gopacket.CaptureInfo{Timestamp: time.Unix(100, 0), CaptureLength: len(f), Length: len(f)}, nil
}

func (r *scriptedReader) open() (gopacket.PacketDataSource, func(), error) {
	return r, func() { r.mu.Lock(); r.closed = true; r.mu.Unlock() }, nil
}

func isTestTimeout(err error) bool { return err == errTimeout }

func TestReaderSourceExhaustion(t *testing.T) {
	r := &scriptedReader{frames: [][]byte{{1}, {2}, {3}}, final: io.EOF}
	src := NewReaderSource("test", r.open, isTestTimeout)
	q := NewQueue(8)

	require.NoError(t, src.Start(context.Background(), q))
	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("source did not finish")
	}
	assert.NoError(t, src.Err())
	assert.Equal(t, uint64(3), src.Captured())
	assert.Equal(t, 3, q.Len())

	f, ok := q.Dequeue(time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, time.Unix(100, 0), f.Timestamp)

	require.NoError(t, src.Stop())
	assert.True(t, r.closed)
}

func TestReaderSourceFailure(t *testing.T) {
	boom := errors.New("interface went away")
	r := &scriptedReader{frames: [][]byte{{1}}, final: boom}
	src := NewReaderSource("test", r.open, isTestTimeout)

	require.NoError(t, src.Start(context.Background(), NewQueue(8)))
	<-src.Done()
	assert.ErrorIs(t, src.Err(), boom)
	require.NoError(t, src.Stop())
}

func TestReaderSourceStopWhileIdle(t *testing.T) {
	r := &scriptedReader{final: errTimeout}
	src := NewReaderSource("test", r.open, isTestTimeout)

	require.NoError(t, src.Start(context.Background(), NewQueue(8)))
	require.NoError(t, src.Stop())

	select {
	case <-src.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
	assert.NoError(t, src.Err())
	// a second Stop is a no-op
	require.NoError(t, src.Stop())
}

func TestReaderSourceOpenFailure(t *testing.T) {
	open := func() (gopacket.PacketDataSource, func(), error) {
		return nil, nil, errors.New("permission denied")
	}
	src := NewReaderSource("eth9", open, nil)
	err := src.Start(context.Background(), NewQueue(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open eth9")
}

func TestReaderSourceDropsWhenFull(t *testing.T) {
	r := &scriptedReader{frames: [][]byte{{1}, {2}, {3}}, final: io.EOF}
	src := NewReaderSource("test", r.open, nil)
	q := NewQueue(2)

	require.NoError(t, src.Start(context.Background(), q))
	<-src.Done()
	assert.Equal(t, uint64(1), q.Dropped())
	require.NoError(t, src.Stop())
}

func TestBlockingReaderSourceKeepsEveryFrame(t *testing.T) {
	r := &scriptedReader{frames: [][]byte{{1}, {2}, {3}, {4}}, final: io.EOF}
	src := NewBlockingReaderSource("test", r.open)
	q := NewQueue(1)

	require.NoError(t, src.Start(context.Background(), q))
	var got []byte
	for len(got) < 4 {
		f, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		got = append(got, f.Data...)
	}
	<-src.Done()
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
	assert.Equal(t, uint64(0), q.Dropped())
	require.NoError(t, src.Stop())
}
