// Package sensor assembles a running sensor from its configuration: capture
// source, pipeline, feature consumers, snapshot writers and the API.
package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/api"
	"github.com/TrieuQuan2005/IdsService/internal/capture"
	"github.com/TrieuQuan2005/IdsService/internal/capture/live"
	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/engine/manager"
	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
	"github.com/TrieuQuan2005/IdsService/internal/factory"
	"github.com/TrieuQuan2005/IdsService/internal/metrics"
	"github.com/TrieuQuan2005/IdsService/internal/model"
	"github.com/TrieuQuan2005/IdsService/pkg/pcap"

	// consumer and writer registrations
	_ "github.com/TrieuQuan2005/IdsService/internal/probe"
	_ "github.com/TrieuQuan2005/IdsService/internal/snapshot"
)

const apiShutdownTimeout = 5 * time.Second

// Sensor owns every long-lived component of one sensor process.
type Sensor struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	source    capture.Source
	queue     *capture.Queue
	consumers []model.Consumer
	manager   *manager.Manager
	api       *api.Server
}

// NewSource builds the capture source selected by cfg.Type.
func NewSource(cfg config.CaptureConfig) (capture.Source, error) {
	liveCfg := live.Config{
		Interface:   cfg.Interface,
		SnapLen:     cfg.SnapLen,
		Promiscuous: cfg.Promiscuous,
		BPFFilter:   cfg.BPFFilter,
	}
	switch cfg.Type {
	case "pcap":
		return live.NewPcapSource(liveCfg), nil
	case "afpacket":
		src, err := live.NewAFPacketSource(liveCfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "file":
		return pcap.NewFileSource(cfg.File), nil
	default:
		return nil, fmt.Errorf("unknown capture type: %q", cfg.Type)
	}
}

// PipelineOptions maps the configuration onto pipeline options.
func PipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	addrs, err := cfg.LocalAddrs()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		LocalAddrs:        addrs,
		FlowWindow:        cfg.Flow.WindowSize,
		HostWindow:        cfg.Host.WindowSize,
		FlowTimeout:       cfg.Flow.TableTimeout,
		HostTimeout:       cfg.Host.TableTimeout,
		DequeueTimeout:    cfg.Capture.DequeueTimeout,
		CleanupInterval:   cfg.Pipeline.CleanupInterval,
		HeartbeatInterval: cfg.Pipeline.HeartbeatInterval,
		SnapshotRefresh:   cfg.Pipeline.SnapshotRefresh,
		RunDuration:       cfg.Pipeline.RunDuration,
	}, nil
}

// New validates cfg and builds a Sensor. A missing sensor id is generated.
func New(cfg *config.Config) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.SensorID == "" {
		cfg.SensorID = uuid.NewString()
	}
	opts, err := PipelineOptions(cfg)
	if err != nil {
		return nil, err
	}
	src, err := NewSource(cfg.Capture)
	if err != nil {
		return nil, err
	}

	consumers, err := factory.CreateConsumers(cfg)
	if err != nil {
		return nil, err
	}
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		for _, c := range consumers {
			c.Close()
		}
		return nil, err
	}

	p := pipeline.New(opts, consumers)
	s := &Sensor{
		cfg:       cfg,
		pipeline:  p,
		source:    src,
		queue:     capture.NewQueue(cfg.Capture.QueueCapacity),
		consumers: consumers,
		manager:   manager.NewManager(writers, p.Tables),
	}
	if cfg.API.Enabled {
		s.api = api.NewServer(cfg.API, p, metrics.NewRegistry(p), cfg.SensorID)
	}
	log.WithFields(log.Fields{
		"sensor_id": cfg.SensorID,
		"source":    src.Name(),
		"consumers": len(consumers),
		"writers":   len(writers),
	}).Info("Sensor initialized")
	return s, nil
}

// Pipeline returns the sensor's pipeline.
func (s *Sensor) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Tables returns the latest lifetime-table copy.
func (s *Sensor) Tables() *model.TableSnapshot { return s.pipeline.Tables() }

// Run starts the writers and the API, then processes frames until ctx is
// cancelled or the source ends. Writers take a final snapshot before Run returns.
func (s *Sensor) Run(ctx context.Context) error {
	s.manager.Start()
	if s.api != nil {
		if err := s.api.Start(); err != nil {
			s.manager.Stop()
			s.closeConsumers()
			return err
		}
	}

	err := s.pipeline.Run(ctx, s.source, s.queue)

	s.manager.Stop()
	if s.api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
		defer cancel()
		if serr := s.api.Stop(shutdownCtx); serr != nil {
			log.Warnf("API server forced to shutdown: %v", serr)
		}
	}
	return err
}

// closeConsumers is only needed when Run fails before the pipeline takes
// ownership of the consumers.
func (s *Sensor) closeConsumers() {
	for _, c := range s.consumers {
		if err := c.Close(); err != nil {
			log.Warnf("Error closing consumer %s: %v", c.Name(), err)
		}
	}
}
