package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

const createFlowTableStatement = `
CREATE TABLE IF NOT EXISTS flow_lifetime (
    Timestamp            DateTime,
    SrcIP                String,
    DstIP                String,
    DstPort              UInt16,
    Protocol             UInt8,
    Direction            String,
    FirstSeen            Float64,
    LastSeen             Float64,
    Packets              UInt64,
    Bytes                UInt64,
    FwdPackets           UInt64,
    BwdPackets           UInt64,
    InterArrivalMean     Float64,
    InterArrivalVariance Float64,
    SynCount             UInt32,
    AckCount             UInt32,
    RstCount             UInt32,
    FinCount             UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, SrcIP, DstIP, DstPort);
`

const createHostTableStatement = `
CREATE TABLE IF NOT EXISTS host_lifetime (
    Timestamp          DateTime,
    SrcIP              String,
    FirstSeen          Float64,
    LastSeen           Float64,
    Packets            UInt64,
    Bytes              UInt64,
    UniqueDstIPs       UInt32,
    UniqueDstPorts     UInt32,
    PortEntropy        Float64,
    ConnectionAttempts UInt32,
    FailedConnections  UInt32,
    SynCount           UInt32,
    AckCount           UInt32,
    RstCount           UInt32,
    FinCount           UInt32,
    MeanFlowDuration   Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, SrcIP);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects to ClickHouse and ensures both tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createFlowTableStatement, createHostTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Info("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// Write inserts one row per lifetime entry into flow_lifetime and host_lifetime.
func (w *ClickHouseWriter) Write(snapshot *model.TableSnapshot, timestamp string) error {
	snapshotTime, err := time.ParseInLocation("2006-01-02_15-04-05", timestamp, time.Local)
	if err != nil {
		snapshotTime = snapshot.TakenAt
	}
	ctx := context.Background()

	if len(snapshot.Flows) > 0 {
		batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_lifetime")
		if err != nil {
			return fmt.Errorf("failed to prepare flow batch: %w", err)
		}
		for _, row := range FlowRows(snapshotTime, snapshot.Flows) {
			if err := batch.Append(row...); err != nil {
				return fmt.Errorf("failed to append flow to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send flow batch: %w", err)
		}
	}

	if len(snapshot.Hosts) > 0 {
		batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO host_lifetime")
		if err != nil {
			return fmt.Errorf("failed to prepare host batch: %w", err)
		}
		for _, row := range HostRows(snapshotTime, snapshot.Hosts) {
			if err := batch.Append(row...); err != nil {
				return fmt.Errorf("failed to append host to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send host batch: %w", err)
		}
	}

	log.Infof("Wrote %d flows and %d hosts to ClickHouse", len(snapshot.Flows), len(snapshot.Hosts))
	return nil
}

// Close releases the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// FlowRows converts flow entries to flow_lifetime column values.
func FlowRows(ts time.Time, flows []model.FlowEntry) [][]any {
	rows := make([][]any, 0, len(flows))
	for _, f := range flows {
		rows = append(rows, []any{
			ts,
			f.Key.SrcIP.String(),
			f.Key.DstIP.String(),
			f.Key.DstPort,
			uint8(f.Key.Protocol),
			f.Key.Direction.String(),
			f.FirstSeen,
			f.LastSeen,
			uint64(f.Packets),
			uint64(f.Bytes),
			uint64(f.FwdPackets),
			uint64(f.BwdPackets),
			f.InterArrivalMean,
			f.InterArrivalVariance,
			uint32(f.SynCount),
			uint32(f.AckCount),
			uint32(f.RstCount),
			uint32(f.FinCount),
		})
	}
	return rows
}

// HostRows converts host entries to host_lifetime column values.
func HostRows(ts time.Time, hosts []model.HostEntry) [][]any {
	rows := make([][]any, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, []any{
			ts,
			h.Key.SrcIP.String(),
			h.FirstSeen,
			h.LastSeen,
			uint64(h.Packets),
			uint64(h.Bytes),
			uint32(h.UniqueDstIPs),
			uint32(h.UniqueDstPorts),
			h.PortEntropy,
			uint32(h.ConnectionAttempts),
			uint32(h.FailedConnections),
			uint32(h.SynCount),
			uint32(h.AckCount),
			uint32(h.RstCount),
			uint32(h.FinCount),
			h.MeanFlowDuration,
		})
	}
	return rows
}
