package model

import "time"

// FlowWindowSnapshot is the point-in-time state of one flow's sliding window.
type FlowWindowSnapshot struct {
	Key FlowKey

	WindowStart    float64
	WindowEnd      float64
	WindowDuration float64

	PacketCount   int
	ByteCount     int
	FwdPackets    int
	BwdPackets    int
	PacketsPerSec float64
	BytesPerSec   float64

	FlowDuration         float64
	InterArrivalMean     float64
	InterArrivalVariance float64

	SynCount int
	AckCount int
	RstCount int
	FinCount int
	SynRatio float64
	RstRatio float64
}

// HostWindowSnapshot is the point-in-time state of one host's sliding window.
type HostWindowSnapshot struct {
	SrcIP HostKey

	WindowStart    float64
	WindowEnd      float64
	WindowDuration float64

	PacketCount   int
	ByteCount     int
	PacketsPerSec float64

	UniqueDstIPs   int
	UniqueDstPorts int
	PortEntropy    float64

	ConnectionAttempts    int
	ConnectionRate        float64
	FailedConnections     int
	FailedConnectionRatio float64

	SynCount     int
	AckCount     int
	RstCount     int
	FinCount     int
	SynOnlyRatio float64

	MeanFlowDuration     float64
	FlowDurationVariance float64
}

// FlowEntry is a read-only copy of one lifetime flow-table entry.
type FlowEntry struct {
	Key                  FlowKey
	FirstSeen            float64
	LastSeen             float64
	Packets              int
	Bytes                int
	FwdPackets           int
	BwdPackets           int
	InterArrivalMean     float64
	InterArrivalVariance float64
	SynCount             int
	AckCount             int
	RstCount             int
	FinCount             int
}

// HostEntry is a read-only copy of one lifetime host-table entry.
type HostEntry struct {
	Key                HostKey
	FirstSeen          float64
	LastSeen           float64
	Packets            int
	Bytes              int
	UniqueDstIPs       int
	UniqueDstPorts     int
	PortEntropy        float64
	ConnectionAttempts int
	FailedConnections  int
	SynCount           int
	AckCount           int
	RstCount           int
	FinCount           int
	MeanFlowDuration   float64
}

// TableSnapshot bundles copies of both lifetime tables taken at the same moment.
type TableSnapshot struct {
	TakenAt time.Time
	Flows   []FlowEntry
	Hosts   []HostEntry
}
