package factory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

type stubConsumer struct {
	name   string
	closed bool
}

func (s *stubConsumer) Name() string                   { return s.name }
func (s *stubConsumer) Consume(model.FeatureSet) error { return nil }
func (s *stubConsumer) Close() error                   { s.closed = true; return nil }

type stubWriter struct{ interval time.Duration }

func (s *stubWriter) Write(*model.TableSnapshot, string) error { return nil }
func (s *stubWriter) GetInterval() time.Duration               { return s.interval }
func (s *stubWriter) Close() error                             { return nil }

var created []*stubConsumer

func init() {
	RegisterConsumer("test-stub", func(def config.ConsumerDef, cfg *config.Config) (model.Consumer, error) {
		c := &stubConsumer{name: "stub-" + def.NATS.Subject}
		created = append(created, c)
		return c, nil
	})
	RegisterConsumer("test-broken", func(config.ConsumerDef, *config.Config) (model.Consumer, error) {
		return nil, errors.New("cannot connect")
	})
	RegisterWriter("test-writer", func(def config.WriterDef) (model.Writer, error) {
		return &stubWriter{interval: def.SnapshotInterval}, nil
	})
}

func TestCreateConsumers(t *testing.T) {
	cfg := &config.Config{Consumers: []config.ConsumerDef{
		{Type: "test-stub", Enabled: true, NATS: config.NATSConfig{Subject: "a"}},
		{Type: "test-stub", Enabled: false},
		{Type: "test-stub", Enabled: true, NATS: config.NATSConfig{Subject: "b"}},
	}}
	cs, err := CreateConsumers(cfg)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "stub-a", cs[0].Name())
	assert.Equal(t, "stub-b", cs[1].Name())
}

func TestCreateConsumersClosesOnError(t *testing.T) {
	created = nil
	cfg := &config.Config{Consumers: []config.ConsumerDef{
		{Type: "test-stub", Enabled: true},
		{Type: "test-broken", Enabled: true},
	}}
	_, err := CreateConsumers(cfg)
	require.Error(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].closed)

	_, err = CreateConsumers(&config.Config{Consumers: []config.ConsumerDef{{Type: "kafka", Enabled: true}}})
	assert.ErrorContains(t, err, "unknown consumer type")
}

func TestCreateWriters(t *testing.T) {
	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "test-writer", Enabled: true, SnapshotInterval: time.Minute},
	}}
	ws, err := CreateWriters(cfg)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, time.Minute, ws[0].GetInterval())
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterWriter("test-writer", nil)
	})
}
