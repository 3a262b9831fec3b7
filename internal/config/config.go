package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// CaptureConfig selects and tunes the packet source.
type CaptureConfig struct {
	Type           string        `yaml:"type" default:"pcap"` // pcap | afpacket | file
	Interface      string        `yaml:"interface"`
	File           string        `yaml:"file"`
	SnapLen        int32         `yaml:"snaplen" default:"1600"`
	Promiscuous    bool          `yaml:"promiscuous" default:"true"`
	BPFFilter      string        `yaml:"bpf_filter"`
	QueueCapacity  int           `yaml:"queue_capacity" default:"10000"`
	DequeueTimeout time.Duration `yaml:"dequeue_timeout" default:"1s"`
}

// WindowConfig holds the window size and lifetime-table timeout of one path, in seconds.
type WindowConfig struct {
	WindowSize   float64 `yaml:"window_size" default:"10"`
	TableTimeout float64 `yaml:"table_timeout" default:"30"`
}

// PipelineConfig holds the periodic duties of the processing loop.
type PipelineConfig struct {
	CleanupInterval   time.Duration `yaml:"cleanup_interval" default:"5s"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" default:"2s"`
	SnapshotRefresh   time.Duration `yaml:"snapshot_refresh" default:"1s"`
	// RunDuration stops the pipeline after the given time. Zero runs until cancelled.
	RunDuration time.Duration `yaml:"run_duration"`
}

// NATSConfig holds the NATS connection details of the feature publisher.
type NATSConfig struct {
	URL     string `yaml:"url" default:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" default:"ids.features"`
}

// ConsumerDef defines one feature-vector consumer.
type ConsumerDef struct {
	Type    string     `yaml:"type"`
	Enabled bool       `yaml:"enabled"`
	NATS    NATSConfig `yaml:"nats"`
}

// GobConfig holds the configuration for the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path" default:"./snapshots"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host" default:"127.0.0.1"`
	Port     int    `yaml:"port" default:"9000"`
	Database string `yaml:"database" default:"default"`
	Username string `yaml:"username" default:"default"`
	Password string `yaml:"password"`
}

// WriterDef defines one lifetime-table snapshot writer.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval time.Duration    `yaml:"snapshot_interval" default:"30s"`
	Gob              GobConfig        `yaml:"gob"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the diagnostics endpoints.
type APIConfig struct {
	Enabled        bool   `yaml:"enabled" default:"true"`
	ListenAddr     string `yaml:"listen_addr" default:":8080"`
	GRPCListenAddr string `yaml:"grpc_listen_addr" default:":9090"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"text"`
	// Dir enables per-level log files under a timestamped subdirectory.
	Dir    string `yaml:"dir"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	SensorID  string         `yaml:"sensor_id"`
	Capture   CaptureConfig  `yaml:"capture"`
	LocalIPs  []string       `yaml:"local_ips"`
	Flow      WindowConfig   `yaml:"flow"`
	Host      WindowConfig   `yaml:"host"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Consumers []ConsumerDef  `yaml:"consumers"`
	Writers   []WriterDef    `yaml:"writers"`
	API       APIConfig      `yaml:"api"`
	Log       LogConfig      `yaml:"log"`
}

// Default returns a Config populated with default values only.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Fields absent from the file keep their default values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	// list elements are created by the decoder, so their defaults are applied afterwards
	for i := range cfg.Consumers {
		if err := defaults.Set(&cfg.Consumers[i]); err != nil {
			return nil, fmt.Errorf("failed to apply consumer defaults: %w", err)
		}
	}
	for i := range cfg.Writers {
		if err := defaults.Set(&cfg.Writers[i]); err != nil {
			return nil, fmt.Errorf("failed to apply writer defaults: %w", err)
		}
	}
	return cfg, nil
}

// LocalAddrs parses the configured local addresses.
func (c *Config) LocalAddrs() ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(c.LocalIPs))
	for _, s := range c.LocalIPs {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid local ip %q: %w", s, err)
		}
		if !addr.Is4() {
			return nil, fmt.Errorf("local ip %q is not an IPv4 address", s)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Validate checks the values that the engine relies on.
func (c *Config) Validate() error {
	switch c.Capture.Type {
	case "pcap", "afpacket":
		if c.Capture.Interface == "" {
			return fmt.Errorf("capture.interface is required for source type %q", c.Capture.Type)
		}
	case "file":
		if c.Capture.File == "" {
			return fmt.Errorf("capture.file is required for source type %q", c.Capture.Type)
		}
	default:
		return fmt.Errorf("unknown capture type: %q", c.Capture.Type)
	}
	if c.Capture.QueueCapacity <= 0 {
		return fmt.Errorf("capture.queue_capacity must be positive, got %d", c.Capture.QueueCapacity)
	}
	if c.Capture.DequeueTimeout <= 0 {
		return fmt.Errorf("capture.dequeue_timeout must be a positive duration")
	}
	if len(c.LocalIPs) == 0 {
		return fmt.Errorf("local_ips must name at least one address")
	}
	if _, err := c.LocalAddrs(); err != nil {
		return err
	}
	for name, w := range map[string]WindowConfig{"flow": c.Flow, "host": c.Host} {
		if w.WindowSize <= 0 {
			return fmt.Errorf("%s.window_size must be positive, got %v", name, w.WindowSize)
		}
		if w.TableTimeout <= 0 {
			return fmt.Errorf("%s.table_timeout must be positive, got %v", name, w.TableTimeout)
		}
	}
	return nil
}
