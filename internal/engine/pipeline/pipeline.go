// Package pipeline wires decoding, the sliding windows, the lifetime tables and
// feature extraction into the single-goroutine processing loop.
package pipeline

import (
	"context"
	"fmt"
	"net/netip"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
	"github.com/TrieuQuan2005/IdsService/internal/engine/feature"
	"github.com/TrieuQuan2005/IdsService/internal/engine/protocol"
	"github.com/TrieuQuan2005/IdsService/internal/engine/table"
	"github.com/TrieuQuan2005/IdsService/internal/engine/window"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// Options configures a Pipeline.
type Options struct {
	LocalAddrs []netip.Addr

	FlowWindow  float64
	HostWindow  float64
	FlowTimeout float64
	HostTimeout float64

	DequeueTimeout    time.Duration
	CleanupInterval   time.Duration
	HeartbeatInterval time.Duration
	SnapshotRefresh   time.Duration
	// RunDuration stops Run after the given time. Zero disables it.
	RunDuration time.Duration
}

// Diagnostics describes the pipeline state at the last refresh.
type Diagnostics struct {
	UpdatedAt         time.Time
	LastPacketTime    float64
	ActiveFlowWindows int
	ActiveHostWindows int
	FlowTableSize     int
	HostTableSize     int
}

type counters struct {
	frames         atomic.Uint64
	processed      atomic.Uint64
	unparsed       atomic.Uint64
	undirected     atomic.Uint64
	flowFeatures   atomic.Uint64
	hostFeatures   atomic.Uint64
	consumerErrors atomic.Uint64
}

// Pipeline turns captured frames into feature vectors.
// Process and Run must be called from one goroutine; Counters, Tables,
// Diagnostics and Running may be called from any goroutine.
type Pipeline struct {
	opts      Options
	consumers []model.Consumer

	decoder    *protocol.Decoder
	flowEngine *window.FlowEngine
	hostEngine *window.HostEngine
	flowTable  *table.FlowTable
	hostTable  *table.HostTable
	flowExt    feature.FlowExtractor
	hostExt    feature.HostExtractor

	// lastTS is the newest packet timestamp, used as "now" for eviction sweeps.
	lastTS float64

	counters    counters
	queue       atomic.Pointer[capture.Queue]
	running     atomic.Bool
	tables      atomic.Pointer[model.TableSnapshot]
	diagnostics atomic.Pointer[Diagnostics]
}

// New creates a Pipeline that hands every feature set to consumers.
func New(opts Options, consumers []model.Consumer) *Pipeline {
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = time.Second
	}
	p := &Pipeline{
		opts:       opts,
		consumers:  consumers,
		decoder:    protocol.NewDecoder(protocol.NewResolver(opts.LocalAddrs)),
		flowEngine: window.NewFlowEngine(opts.FlowWindow),
		hostEngine: window.NewHostEngine(opts.HostWindow),
		flowTable:  table.NewFlowTable(opts.FlowTimeout),
		hostTable:  table.NewHostTable(opts.HostTimeout),
		flowExt:    feature.FlowExtractor{WindowSize: opts.FlowWindow},
		hostExt:    feature.HostExtractor{WindowSize: opts.HostWindow},
	}
	p.refresh(time.Now())
	return p
}

// Process decodes one frame and, when it yields a directed IPv4 TCP/UDP
// packet, updates all state and delivers the resulting feature set.
func (p *Pipeline) Process(f capture.Frame) (model.FeatureSet, bool) {
	p.counters.frames.Add(1)

	ts := float64(f.Timestamp.UnixNano()) / 1e9
	pkt, outcome := p.decoder.Decode(f.Data, ts)
	switch outcome {
	case protocol.Unparsed:
		p.counters.unparsed.Add(1)
		return model.FeatureSet{}, false
	case protocol.NoDirection:
		p.counters.undirected.Add(1)
		return model.FeatureSet{}, false
	}
	p.counters.processed.Add(1)
	if ts > p.lastTS {
		p.lastTS = ts
	}

	p.flowTable.OnPacket(&pkt)
	p.hostTable.OnPacket(&pkt)

	set := model.FeatureSet{
		Flow: p.flowExt.Extract(p.flowEngine.Process(pkt)),
		Host: p.hostExt.Extract(p.hostEngine.Process(pkt)),
	}
	p.counters.flowFeatures.Add(1)
	p.counters.hostFeatures.Add(1)

	for _, c := range p.consumers {
		if err := c.Consume(set); err != nil {
			n := p.counters.consumerErrors.Add(1)
			if n == 1 || n%1000 == 0 {
				log.WithError(err).WithFields(log.Fields{
					"consumer": c.Name(),
					"errors":   n,
				}).Warn("Consumer failed to accept feature set")
			}
		}
	}
	return set, true
}

// Run starts src and processes frames from q until ctx is cancelled, the
// source is exhausted, the source fails or the configured run duration
// elapses. Exhaustion drains q first. Consumers are closed before returning.
func (p *Pipeline) Run(ctx context.Context, src capture.Source, q *capture.Queue) error {
	p.queue.Store(q)
	defer p.closeConsumers()
	if err := src.Start(ctx, q); err != nil {
		return err
	}
	p.running.Store(true)
	defer p.running.Store(false)

	started := time.Now()
	lastHeartbeat, lastCleanup, lastRefresh := started, started, started
	srcDone := src.Done()

	log.WithFields(log.Fields{
		"source":      src.Name(),
		"flow_window": p.opts.FlowWindow,
		"host_window": p.opts.HostWindow,
	}).Info("Pipeline started")

	stop := func(reason string) {
		if err := src.Stop(); err != nil {
			log.Warnf("Error stopping capture source %s: %v", src.Name(), err)
		}
		q.Close()
		p.sweep()
		p.refresh(time.Now())
		p.logSummary(reason, time.Since(started))
	}

	for {
		select {
		case <-ctx.Done():
			stop("cancelled")
			return nil
		case <-srcDone:
			if ctx.Err() != nil {
				stop("cancelled")
				return nil
			}
			if err := src.Err(); err != nil {
				stop("source failed")
				return fmt.Errorf("capture source %s failed: %w", src.Name(), err)
			}
			// exhausted: drain what is queued, then finish
			q.Close()
			srcDone = nil
		default:
		}

		if frame, ok := q.Dequeue(p.opts.DequeueTimeout); ok {
			p.Process(frame)
		} else if q.Closed() && q.Len() == 0 {
			stop("source exhausted")
			return nil
		}

		now := time.Now()
		if p.opts.HeartbeatInterval > 0 && now.Sub(lastHeartbeat) >= p.opts.HeartbeatInterval {
			p.heartbeat(q)
			lastHeartbeat = now
		}
		if p.opts.CleanupInterval > 0 && now.Sub(lastCleanup) >= p.opts.CleanupInterval {
			p.sweep()
			lastCleanup = now
		}
		if p.opts.SnapshotRefresh > 0 && now.Sub(lastRefresh) >= p.opts.SnapshotRefresh {
			p.refresh(now)
			lastRefresh = now
		}
		if p.opts.RunDuration > 0 && now.Sub(started) >= p.opts.RunDuration {
			log.Infof("Run duration of %s reached, stopping", p.opts.RunDuration)
			stop("run duration reached")
			return nil
		}
	}
}

// sweep evicts idle lifetime entries and reclaims empty windows.
func (p *Pipeline) sweep() {
	if p.lastTS == 0 {
		return
	}
	flows := p.flowTable.Cleanup(p.lastTS)
	hosts := p.hostTable.Cleanup(p.lastTS)
	flowWindows := p.flowEngine.Reclaim(p.lastTS)
	hostWindows := p.hostEngine.Reclaim(p.lastTS)
	if flows+hosts+flowWindows+hostWindows > 0 {
		log.WithFields(log.Fields{
			"flows":        flows,
			"hosts":        hosts,
			"flow_windows": flowWindows,
			"host_windows": hostWindows,
		}).Debug("Evicted idle entries")
	}
}

// refresh publishes fresh copies of the tables and diagnostics for readers
// on other goroutines.
func (p *Pipeline) refresh(now time.Time) {
	p.tables.Store(&model.TableSnapshot{
		TakenAt: now,
		Flows:   p.flowTable.Snapshot(),
		Hosts:   p.hostTable.Snapshot(),
	})
	p.diagnostics.Store(&Diagnostics{
		UpdatedAt:         now,
		LastPacketTime:    p.lastTS,
		ActiveFlowWindows: p.flowEngine.Len(),
		ActiveHostWindows: p.hostEngine.Len(),
		FlowTableSize:     p.flowTable.Len(),
		HostTableSize:     p.hostTable.Len(),
	})
}

func (p *Pipeline) heartbeat(q *capture.Queue) {
	c := p.Counters()
	log.WithFields(log.Fields{
		"frames":        c.Frames,
		"processed":     c.Processed,
		"unparsed":      c.Unparsed,
		"undirected":    c.Undirected,
		"dropped":       c.Dropped,
		"flow_features": c.FlowFeatures,
		"host_features": c.HostFeatures,
		"queue_len":     q.Len(),
	}).Info("Heartbeat")
}

func (p *Pipeline) logSummary(reason string, elapsed time.Duration) {
	c := p.Counters()
	log.WithFields(log.Fields{
		"reason":        reason,
		"elapsed":       elapsed.Round(time.Millisecond).String(),
		"frames":        c.Frames,
		"flow_features": c.FlowFeatures,
		"host_features": c.HostFeatures,
		"dropped":       c.Dropped,
	}).Info("Pipeline stopped")
}

func (p *Pipeline) closeConsumers() {
	for _, c := range p.consumers {
		if err := c.Close(); err != nil {
			log.Warnf("Error closing consumer %s: %v", c.Name(), err)
		}
	}
}

// Tables returns the most recently published copy of the lifetime tables.
func (p *Pipeline) Tables() *model.TableSnapshot {
	return p.tables.Load()
}

// Diagnostics returns the most recently published pipeline state.
func (p *Pipeline) Diagnostics() *Diagnostics {
	return p.diagnostics.Load()
}

// Running reports whether Run is processing frames.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}
