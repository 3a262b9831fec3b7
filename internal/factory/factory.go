package factory

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// ConsumerFactory creates a feature consumer from its definition.
type ConsumerFactory func(def config.ConsumerDef, cfg *config.Config) (model.Consumer, error)

// WriterFactory creates a lifetime-table writer from its definition.
type WriterFactory func(def config.WriterDef) (model.Writer, error)

var (
	consumers = make(map[string]ConsumerFactory)
	writers   = make(map[string]WriterFactory)
)

// RegisterConsumer registers a consumer type with its factory function.
func RegisterConsumer(name string, factory ConsumerFactory) {
	if _, exists := consumers[name]; exists {
		panic(fmt.Sprintf("consumer type '%s' already registered", name))
	}
	consumers[name] = factory
}

// RegisterWriter registers a writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := writers[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	writers[name] = factory
}

// CreateConsumers builds every enabled consumer in cfg. On error, consumers
// created so far are closed.
func CreateConsumers(cfg *config.Config) ([]model.Consumer, error) {
	var created []model.Consumer
	for _, def := range cfg.Consumers {
		if !def.Enabled {
			continue
		}
		factory, ok := consumers[def.Type]
		if !ok {
			closeConsumers(created)
			return nil, fmt.Errorf("unknown consumer type: '%s'", def.Type)
		}
		c, err := factory(def, cfg)
		if err != nil {
			closeConsumers(created)
			return nil, fmt.Errorf("error creating consumer type '%s': %w", def.Type, err)
		}
		log.Infof("Created consumer '%s'", c.Name())
		created = append(created, c)
	}
	return created, nil
}

// CreateWriters builds every enabled writer in cfg.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var created []model.Writer
	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		factory, ok := writers[def.Type]
		if !ok {
			closeWriters(created)
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}
		w, err := factory(def)
		if err != nil {
			closeWriters(created)
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		log.Infof("Created writer '%s' with interval %s", def.Type, w.GetInterval())
		created = append(created, w)
	}
	return created, nil
}

func closeConsumers(cs []model.Consumer) {
	for _, c := range cs {
		if err := c.Close(); err != nil {
			log.Warnf("Error closing consumer %s: %v", c.Name(), err)
		}
	}
}

func closeWriters(ws []model.Writer) {
	for _, w := range ws {
		if err := w.Close(); err != nil {
			log.Warnf("Error closing writer: %v", err)
		}
	}
}
