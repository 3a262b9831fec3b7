package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
)

type staticSource struct {
	counters pipeline.Counters
	diag     *pipeline.Diagnostics
	running  bool
}

func (s staticSource) Counters() pipeline.Counters        { return s.counters }
func (s staticSource) Diagnostics() *pipeline.Diagnostics { return s.diag }
func (s staticSource) Running() bool                      { return s.running }

func gather(t *testing.T, g prometheus.Gatherer) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func value(t *testing.T, families map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()
	f, ok := families[name]
	require.True(t, ok, "metric %s not gathered", name)
	require.Len(t, f.GetMetric(), 1)
	m := f.GetMetric()[0]
	switch f.GetType() {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	}
	t.Fatalf("unexpected type %s for %s", f.GetType(), name)
	return 0
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg, staticSource{
		counters: pipeline.Counters{Frames: 10, Processed: 7, Unparsed: 2, Undirected: 1, Dropped: 4},
		diag:     &pipeline.Diagnostics{FlowTableSize: 3, HostTableSize: 1, LastPacketTime: 12.5},
		running:  true,
	})

	families := gather(t, reg)
	assert.Len(t, families, 14)
	assert.Equal(t, 10.0, value(t, families, "ids_sensor_frames_total"))
	assert.Equal(t, 7.0, value(t, families, "ids_sensor_packets_processed_total"))
	assert.Equal(t, 4.0, value(t, families, "ids_sensor_frames_dropped_total"))
	assert.Equal(t, 3.0, value(t, families, "ids_sensor_flow_table_size"))
	assert.Equal(t, 12.5, value(t, families, "ids_sensor_last_packet_timestamp_seconds"))
	assert.Equal(t, 1.0, value(t, families, "ids_sensor_running"))
	assert.Equal(t, dto.MetricType_COUNTER, families["ids_sensor_frames_total"].GetType())
}

func TestNilDiagnostics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg, staticSource{})

	families := gather(t, reg)
	assert.Equal(t, 0.0, value(t, families, "ids_sensor_host_table_size"))
	assert.Equal(t, 0.0, value(t, families, "ids_sensor_running"))
}

func TestNewRegistryIncludesRuntime(t *testing.T) {
	families := gather(t, NewRegistry(staticSource{}))
	assert.Contains(t, families, "go_goroutines")
	assert.Contains(t, families, "ids_sensor_frames_total")
}
