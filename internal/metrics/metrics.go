// Package metrics exposes the pipeline counters as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
)

const namespace = "ids_sensor"

// Source is what the metrics are read from.
type Source interface {
	Counters() pipeline.Counters
	Diagnostics() *pipeline.Diagnostics
	Running() bool
}

// NewRegistry returns a registry holding the sensor metrics backed by src,
// plus the Go runtime and process collectors.
func NewRegistry(src Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	Register(reg, src)
	return reg
}

// Register adds the sensor metrics backed by src to reg.
func Register(reg prometheus.Registerer, src Source) {
	counter := func(name, help string, get func(pipeline.Counters) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(get(src.Counters())) })
	}
	gauge := func(name, help string, get func(*pipeline.Diagnostics) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			d := src.Diagnostics()
			if d == nil {
				return 0
			}
			return float64(get(d))
		})
	}

	reg.MustRegister(
		counter("frames_total", "Frames taken off the capture queue.",
			func(c pipeline.Counters) uint64 { return c.Frames }),
		counter("packets_processed_total", "Directed IPv4 TCP/UDP packets processed.",
			func(c pipeline.Counters) uint64 { return c.Processed }),
		counter("packets_unparsed_total", "Frames that did not decode to IPv4 TCP/UDP.",
			func(c pipeline.Counters) uint64 { return c.Unparsed }),
		counter("packets_undirected_total", "Packets with no local endpoint or two local endpoints.",
			func(c pipeline.Counters) uint64 { return c.Undirected }),
		counter("frames_dropped_total", "Frames dropped because the capture queue was full.",
			func(c pipeline.Counters) uint64 { return c.Dropped }),
		counter("flow_features_total", "Flow feature vectors produced.",
			func(c pipeline.Counters) uint64 { return c.FlowFeatures }),
		counter("host_features_total", "Host feature vectors produced.",
			func(c pipeline.Counters) uint64 { return c.HostFeatures }),
		counter("consumer_errors_total", "Feature sets rejected by a consumer.",
			func(c pipeline.Counters) uint64 { return c.ConsumerErrors }),

		gauge("flow_windows", "Flows with a live sliding window.",
			func(d *pipeline.Diagnostics) int { return d.ActiveFlowWindows }),
		gauge("host_windows", "Hosts with a live sliding window.",
			func(d *pipeline.Diagnostics) int { return d.ActiveHostWindows }),
		gauge("flow_table_size", "Entries in the flow lifetime table.",
			func(d *pipeline.Diagnostics) int { return d.FlowTableSize }),
		gauge("host_table_size", "Entries in the host lifetime table.",
			func(d *pipeline.Diagnostics) int { return d.HostTableSize }),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_packet_timestamp_seconds",
			Help:      "Capture timestamp of the newest processed packet.",
		}, func() float64 {
			if d := src.Diagnostics(); d != nil {
				return d.LastPacketTime
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the pipeline is processing frames.",
		}, func() float64 {
			if src.Running() {
				return 1
			}
			return 0
		}),
	)
}
