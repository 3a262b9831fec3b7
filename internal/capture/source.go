package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	log "github.com/sirupsen/logrus"
)

// Source produces frames into a Queue from its own goroutine.
type Source interface {
	// Start opens the underlying handle and begins capturing. Open failures
	// are returned directly.
	Start(ctx context.Context, q *Queue) error
	// Stop halts capture. No frames are enqueued after it returns.
	Stop() error
	// Done is closed when the capture goroutine has exited, whether because
	// the input was exhausted, Stop was called or reading failed.
	Done() <-chan struct{}
	// Err returns the failure that ended capture, or nil.
	Err() error
	Name() string
}

// OpenFunc opens a packet handle. The returned close function releases it.
type OpenFunc func() (gopacket.PacketDataSource, func(), error)

// ReaderSource adapts any gopacket.PacketDataSource into a Source.
type ReaderSource struct {
	name string
	open OpenFunc
	// isTimeout reports read errors that only mean "nothing arrived yet".
	isTimeout func(error) bool
	// blocking makes the source wait for queue space instead of dropping.
	blocking bool

	running  atomic.Bool
	captured atomic.Uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closeFn  func()
	done     chan struct{}

	mu  sync.Mutex
	err error
}

// NewReaderSource creates a live-style source that drops frames when the queue is full.
func NewReaderSource(name string, open OpenFunc, isTimeout func(error) bool) *ReaderSource {
	return &ReaderSource{
		name:      name,
		open:      open,
		isTimeout: isTimeout,
		done:      make(chan struct{}),
	}
}

// NewBlockingReaderSource creates a source that waits for queue space, for
// inputs such as files where every frame should be processed.
func NewBlockingReaderSource(name string, open OpenFunc) *ReaderSource {
	s := NewReaderSource(name, open, nil)
	s.blocking = true
	return s
}

// Start implements Source.
func (s *ReaderSource) Start(ctx context.Context, q *Queue) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("capture: source %s already started", s.name)
	}
	src, closeFn, err := s.open()
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("capture: failed to open %s: %w", s.name, err)
	}
	s.closeFn = closeFn

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.readLoop(ctx, src, q)

	log.Infof("Capture source %s started", s.name)
	return nil
}

func (s *ReaderSource) readLoop(ctx context.Context, src gopacket.PacketDataSource, q *Queue) {
	defer s.wg.Done()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, ci, err := src.ReadPacketData()
		if err != nil {
			if s.isTimeout != nil && s.isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				log.Infof("Capture source %s exhausted after %d frames", s.name, s.captured.Load())
				return
			}
			s.setErr(err)
			log.Errorf("Capture source %s failed: %v", s.name, err)
			return
		}

		ts := ci.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		f := Frame{Data: data, Timestamp: ts}
		s.captured.Add(1)

		if s.blocking {
			if err := q.EnqueueWait(ctx, f); err != nil {
				return
			}
			continue
		}
		q.Enqueue(f)
	}
}

// Stop implements Source.
func (s *ReaderSource) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.closeFn != nil {
		s.closeFn()
	}
	log.Infof("Capture source %s stopped", s.name)
	return nil
}

// Done implements Source.
func (s *ReaderSource) Done() <-chan struct{} {
	return s.done
}

// Err implements Source.
func (s *ReaderSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ReaderSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Name implements Source.
func (s *ReaderSource) Name() string {
	return s.name
}

// Captured returns the number of frames read from the handle.
func (s *ReaderSource) Captured() uint64 {
	return s.captured.Load()
}

var _ Source = (*ReaderSource)(nil)
