package model

import "time"

// Writer defines a generic interface for persisting lifetime-table snapshots.
type Writer interface {
	// Write persists one snapshot. timestamp names the snapshot (2006-01-02_15-04-05).
	Write(snapshot *TableSnapshot, timestamp string) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration

	Close() error
}
