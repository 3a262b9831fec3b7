package probe

import (
	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/factory"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

func init() {
	factory.RegisterConsumer("nats", func(def config.ConsumerDef, cfg *config.Config) (model.Consumer, error) {
		p, err := NewPublisher(def.NATS, cfg.SensorID)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	factory.RegisterConsumer("log", func(config.ConsumerDef, *config.Config) (model.Consumer, error) {
		return NewLogConsumer(), nil
	})
}
