package manager

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// SnapshotProvider returns the latest published copy of the lifetime tables.
type SnapshotProvider func() *model.TableSnapshot

// Manager runs one snapshot loop per writer, each on its own interval.
type Manager struct {
	writers  []model.Writer
	provider SnapshotProvider

	done          chan struct{}
	stopOnce      sync.Once
	snapshotterWg sync.WaitGroup
}

// NewManager creates a Manager for the given writers.
func NewManager(writers []model.Writer, provider SnapshotProvider) *Manager {
	return &Manager{
		writers:  writers,
		provider: provider,
		done:     make(chan struct{}),
	}
}

// Start launches a snapshotter goroutine for every writer.
func (m *Manager) Start() {
	for _, writer := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(writer)
		log.Infof("Started snapshotter for a writer with interval %s", writer.GetInterval())
	}
}

// runSnapshotter runs a dedicated snapshot loop for a single writer.
func (m *Manager) runSnapshotter(writer model.Writer) {
	defer m.snapshotterWg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		log.Warnf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.takeSnapshotForWriter(writer)
		case <-m.done:
			// final snapshot on shutdown
			m.takeSnapshotForWriter(writer)
			return
		}
	}
}

func (m *Manager) takeSnapshotForWriter(writer model.Writer) {
	snapshot := m.provider()
	if snapshot == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	if err := writer.Write(snapshot, timestamp); err != nil {
		log.Errorf("Error writing snapshot at %s: %v", timestamp, err)
		return
	}
	log.Debugf("Wrote snapshot at %s with %d flows and %d hosts", timestamp, len(snapshot.Flows), len(snapshot.Hosts))
}

// Stop takes a final snapshot for every writer, waits for the loops to exit
// and closes the writers.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		log.Info("Manager stopping...")
		close(m.done)
		m.snapshotterWg.Wait()
		for _, writer := range m.writers {
			if err := writer.Close(); err != nil {
				log.Warnf("Error closing writer: %v", err)
			}
		}
		log.Info("Manager stopped.")
	})
}
