package model

import "net/netip"

// FlowFeatureNames is the order of FlowFeatureVector.Values. Downstream models are
// trained against this order; changing it requires a major schema version bump.
var FlowFeatureNames = []string{
	"packet_count",
	"byte_count",
	"packets_per_second",
	"bytes_per_second",
	"flow_duration",
	"inter_arrival_mean",
	"inter_arrival_variance",
	"forward_ratio",
	"syn_ratio",
	"rst_ratio",
}

// HostFeatureNames is the order of HostFeatureVector.Values.
var HostFeatureNames = []string{
	"packet_count",
	"packets_per_second",
	"unique_dst_ips",
	"unique_dst_ports",
	"port_entropy",
	"connection_attempts",
	"connections_per_second",
	"failed_connection_ratio",
	"syn_ratio",
	"rst_ratio",
	"mean_flow_duration",
}

// FlowFeatureVector is the flow-level record handed to the classifier boundary.
type FlowFeatureVector struct {
	// identity
	Timestamp  float64
	WindowSize float64
	Key        FlowKey

	PacketCount      int
	ByteCount        int
	PacketsPerSecond float64
	BytesPerSecond   float64

	FlowDuration         float64
	InterArrivalMean     float64
	InterArrivalVariance float64

	ForwardRatio float64

	SynRatio float64
	RstRatio float64
}

// Values returns the numeric features in FlowFeatureNames order.
func (v FlowFeatureVector) Values() []float64 {
	return []float64{
		float64(v.PacketCount),
		float64(v.ByteCount),
		v.PacketsPerSecond,
		v.BytesPerSecond,
		v.FlowDuration,
		v.InterArrivalMean,
		v.InterArrivalVariance,
		v.ForwardRatio,
		v.SynRatio,
		v.RstRatio,
	}
}

// HostFeatureVector is the host-level record handed to the classifier boundary.
type HostFeatureVector struct {
	// identity
	Timestamp  float64
	WindowSize float64
	SrcIP      netip.Addr

	PacketCount      int
	PacketsPerSecond float64

	UniqueDstIPs   int
	UniqueDstPorts int
	PortEntropy    float64

	ConnectionAttempts    int
	ConnectionsPerSecond  float64
	FailedConnectionRatio float64

	SynRatio float64
	RstRatio float64

	MeanFlowDuration float64
}

// Values returns the numeric features in HostFeatureNames order.
func (v HostFeatureVector) Values() []float64 {
	return []float64{
		float64(v.PacketCount),
		v.PacketsPerSecond,
		float64(v.UniqueDstIPs),
		float64(v.UniqueDstPorts),
		v.PortEntropy,
		float64(v.ConnectionAttempts),
		v.ConnectionsPerSecond,
		v.FailedConnectionRatio,
		v.SynRatio,
		v.RstRatio,
		v.MeanFlowDuration,
	}
}

// FeatureSet is what the pipeline emits for every processed packet.
type FeatureSet struct {
	Flow FlowFeatureVector
	Host HostFeatureVector
}
