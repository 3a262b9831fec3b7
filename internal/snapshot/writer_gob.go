package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

const (
	flowsFile   = "flows.dat"
	hostsFile   = "hosts.dat"
	summaryFile = "summary.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SummaryData holds the metadata for a snapshot, internal to the writer.
type SummaryData struct {
	TotalFlows   int    `json:"total_flows"`
	TotalHosts   int    `json:"total_hosts"`
	TotalPackets int    `json:"total_packets"`
	TotalBytes   int    `json:"total_bytes"`
	TakenAt      string `json:"taken_at"`
	Timestamp    string `json:"timestamp"`
}

// GobWriter writes lifetime-table snapshots to disk in gob format.
// It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
	interval time.Duration
}

// NewGobWriter creates a new gob writer rooted at rootPath.
func NewGobWriter(rootPath string, interval time.Duration) *GobWriter {
	return &GobWriter{rootPath: rootPath, interval: interval}
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write stores the snapshot under rootPath/timestamp. Empty snapshots are skipped.
func (w *GobWriter) Write(snapshot *model.TableSnapshot, timestamp string) error {
	if len(snapshot.Flows) == 0 && len(snapshot.Hosts) == 0 {
		return nil
	}

	snapshotDir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := writeGob(filepath.Join(snapshotDir, flowsFile), snapshot.Flows); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(snapshotDir, hostsFile), snapshot.Hosts); err != nil {
		return err
	}

	summary := SummaryData{
		TotalFlows: len(snapshot.Flows),
		TotalHosts: len(snapshot.Hosts),
		TakenAt:    snapshot.TakenAt.UTC().Format(time.RFC3339),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range snapshot.Flows {
		summary.TotalPackets += f.Packets
		summary.TotalBytes += f.Bytes
	}

	file, err := os.Create(filepath.Join(snapshotDir, summaryFile))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	jsonEncoder := json.NewEncoder(file)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// Close implements model.Writer.
func (w *GobWriter) Close() error {
	return nil
}

func writeGob(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", path, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("failed to encode gob for file '%s': %w", path, err)
	}
	return nil
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file '%s': %w", path, err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode gob file '%s': %w", path, err)
	}
	return nil
}

// Load reads a snapshot directory written by GobWriter.
func Load(dir string) (*model.TableSnapshot, *SummaryData, error) {
	snapshot := &model.TableSnapshot{}
	if err := readGob(filepath.Join(dir, flowsFile), &snapshot.Flows); err != nil {
		return nil, nil, err
	}
	if err := readGob(filepath.Join(dir, hostsFile), &snapshot.Hosts); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, summaryFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, summary.TakenAt); err == nil {
		snapshot.TakenAt = t
	}
	return snapshot, &summary, nil
}
