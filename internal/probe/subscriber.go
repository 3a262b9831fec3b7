package probe

import (
	"errors"
	"fmt"

	"github.com/blang/semver"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/engine/feature"
)

// ErrSchemaMismatch is returned for messages whose schema major version differs
// from the one this build produces.
var ErrSchemaMismatch = errors.New("feature schema version mismatch")

// Envelope is a received feature message together with its headers.
type Envelope struct {
	Subject       string
	SensorID      string
	SchemaVersion semver.Version
	Message
}

// MessageHandler processes a received feature message.
type MessageHandler func(env Envelope)

// Subscriber receives feature messages from both per-kind subjects.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to <subject>.* and hands every valid message to handler.
// Invalid and incompatible messages are logged and skipped.
func (s *Subscriber) Start(handler MessageHandler) error {
	sub, err := s.nc.Subscribe(s.subject+".*", func(msg *nats.Msg) {
		env, err := Unwrap(msg)
		if err != nil {
			log.WithError(err).WithField("subject", msg.Subject).Warn("Dropping feature message")
			return
		}
		handler(env)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Infof("Subscribed to '%s.*'. Waiting for messages...", s.subject)
	return nil
}

// Unwrap checks the headers of msg and decodes its payload.
func Unwrap(msg *nats.Msg) (Envelope, error) {
	env := Envelope{Subject: msg.Subject}
	var raw string
	if msg.Header != nil {
		env.SensorID = msg.Header.Get(HeaderSensorID)
		raw = msg.Header.Get(HeaderSchemaVersion)
	}
	if raw == "" {
		return env, fmt.Errorf("%w: missing %s header", ErrSchemaMismatch, HeaderSchemaVersion)
	}
	version, err := semver.Parse(raw)
	if err != nil {
		return env, fmt.Errorf("%w: invalid version %q: %v", ErrSchemaMismatch, raw, err)
	}
	if version.Major != feature.SchemaVersion.Major {
		return env, fmt.Errorf("%w: got %s, want %d.x.x", ErrSchemaMismatch, version, feature.SchemaVersion.Major)
	}
	env.SchemaVersion = version

	decoded, err := Decode(msg.Data)
	if err != nil {
		return env, fmt.Errorf("failed to decode feature message: %w", err)
	}
	env.Message = decoded
	return env, nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.Warnf("Error unsubscribing from %s: %v", s.subject, err)
		}
	}
	if s.nc != nil {
		s.nc.Close()
		log.Info("NATS connection closed.")
	}
}
