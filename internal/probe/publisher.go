package probe

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/engine/feature"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// message headers carried by every published feature message
const (
	HeaderSensorID      = "Sensor-Id"
	HeaderSchemaVersion = "Schema-Version"
)

// FlowSubject and HostSubject derive the per-kind subjects from a base subject.
func FlowSubject(base string) string { return base + ".flow" }
func HostSubject(base string) string { return base + ".host" }

// msgConn is the part of *nats.Conn the publisher needs.
type msgConn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// Publisher is a feature consumer that publishes every vector to NATS.
type Publisher struct {
	nc       msgConn
	subject  string
	sensorID string
}

// NewPublisher connects to NATS and returns a Publisher.
func NewPublisher(cfg config.NATSConfig, sensorID string) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("ids-sensor "+sensorID))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS server at %s", cfg.URL)
	return newPublisher(nc, cfg.Subject, sensorID), nil
}

func newPublisher(nc msgConn, subject, sensorID string) *Publisher {
	if sensorID == "" {
		sensorID = uuid.NewString()
	}
	return &Publisher{nc: nc, subject: subject, sensorID: sensorID}
}

// Name implements model.Consumer.
func (p *Publisher) Name() string { return "nats" }

// Consume publishes the flow and host vectors of set on their subjects.
func (p *Publisher) Consume(set model.FeatureSet) error {
	if err := p.publish(FlowSubject(p.subject), EncodeFlow(set.Flow)); err != nil {
		return err
	}
	return p.publish(HostSubject(p.subject), EncodeHost(set.Host))
}

func (p *Publisher) publish(subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderSensorID, p.sensorID)
	msg.Header.Set(HeaderSchemaVersion, feature.SchemaVersion.String())
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	log.Info("NATS connection drained and closed.")
	return nil
}
