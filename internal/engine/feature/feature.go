// Package feature maps window snapshots to the fixed-order vectors consumed by
// downstream classifiers.
package feature

import (
	"github.com/blang/semver"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// SchemaVersion versions the field order of the feature vectors. Any change to
// model.FlowFeatureNames or model.HostFeatureNames needs a major bump.
var SchemaVersion = semver.MustParse("1.0.0")

// FlowExtractor builds flow vectors for a given window size.
type FlowExtractor struct {
	WindowSize float64
}

// Extract maps a flow snapshot to its feature vector.
func (e FlowExtractor) Extract(s model.FlowWindowSnapshot) model.FlowFeatureVector {
	packets := float64(max(1, s.PacketCount))
	return model.FlowFeatureVector{
		Timestamp:  s.WindowEnd,
		WindowSize: e.WindowSize,
		Key:        s.Key,

		PacketCount:      s.PacketCount,
		ByteCount:        s.ByteCount,
		PacketsPerSecond: s.PacketsPerSec,
		BytesPerSecond:   s.BytesPerSec,

		FlowDuration:         s.FlowDuration,
		InterArrivalMean:     s.InterArrivalMean,
		InterArrivalVariance: s.InterArrivalVariance,

		ForwardRatio: float64(s.FwdPackets) / packets,
		SynRatio:     float64(s.SynCount) / packets,
		RstRatio:     float64(s.RstCount) / packets,
	}
}

// HostExtractor builds host vectors for a given window size.
type HostExtractor struct {
	WindowSize float64
}

// Extract maps a host snapshot to its feature vector.
func (e HostExtractor) Extract(s model.HostWindowSnapshot) model.HostFeatureVector {
	packets := float64(max(1, s.PacketCount))
	return model.HostFeatureVector{
		Timestamp:  s.WindowEnd,
		WindowSize: e.WindowSize,
		SrcIP:      s.SrcIP.SrcIP,

		PacketCount:      s.PacketCount,
		PacketsPerSecond: s.PacketsPerSec,

		UniqueDstIPs:   s.UniqueDstIPs,
		UniqueDstPorts: s.UniqueDstPorts,
		PortEntropy:    s.PortEntropy,

		ConnectionAttempts:    s.ConnectionAttempts,
		ConnectionsPerSecond:  s.ConnectionRate,
		FailedConnectionRatio: float64(s.FailedConnections) / float64(max(1, s.ConnectionAttempts)),

		SynRatio: float64(s.SynCount) / packets,
		RstRatio: float64(s.RstCount) / packets,

		MeanFlowDuration: s.MeanFlowDuration,
	}
}
