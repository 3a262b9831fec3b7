package snapshot

import (
	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/factory"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef) (model.Writer, error) {
		return NewGobWriter(def.Gob.RootPath, def.SnapshotInterval), nil
	})
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		w, err := NewClickHouseWriter(def.ClickHouse, def.SnapshotInterval)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}
