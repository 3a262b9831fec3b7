package api

import (
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/engine/feature"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

type handler struct {
	src      Provider
	sensorID string
}

type countersJSON struct {
	Frames         uint64 `json:"frames"`
	Processed      uint64 `json:"processed"`
	Unparsed       uint64 `json:"unparsed"`
	Undirected     uint64 `json:"undirected"`
	Dropped        uint64 `json:"dropped"`
	FlowFeatures   uint64 `json:"flow_features"`
	HostFeatures   uint64 `json:"host_features"`
	ConsumerErrors uint64 `json:"consumer_errors"`
}

type diagnosticsJSON struct {
	UpdatedAt         time.Time `json:"updated_at"`
	LastPacketTime    float64   `json:"last_packet_time"`
	ActiveFlowWindows int       `json:"active_flow_windows"`
	ActiveHostWindows int       `json:"active_host_windows"`
	FlowTableSize     int       `json:"flow_table_size"`
	HostTableSize     int       `json:"host_table_size"`
}

// StatsResponse is the body of /api/v1/stats.
type StatsResponse struct {
	SensorID      string           `json:"sensor_id"`
	SchemaVersion string           `json:"schema_version"`
	Running       bool             `json:"running"`
	Counters      countersJSON     `json:"counters"`
	Diagnostics   *diagnosticsJSON `json:"diagnostics,omitempty"`
}

// FlowJSON is one flow-table entry as served by /api/v1/flows.
type FlowJSON struct {
	SrcIP                string  `json:"src_ip"`
	DstIP                string  `json:"dst_ip"`
	DstPort              uint16  `json:"dst_port"`
	Protocol             string  `json:"protocol"`
	Direction            string  `json:"direction"`
	FirstSeen            float64 `json:"first_seen"`
	LastSeen             float64 `json:"last_seen"`
	Packets              int     `json:"packets"`
	Bytes                int     `json:"bytes"`
	FwdPackets           int     `json:"fwd_packets"`
	BwdPackets           int     `json:"bwd_packets"`
	InterArrivalMean     float64 `json:"inter_arrival_mean"`
	InterArrivalVariance float64 `json:"inter_arrival_variance"`
	SynCount             int     `json:"syn_count"`
	AckCount             int     `json:"ack_count"`
	RstCount             int     `json:"rst_count"`
	FinCount             int     `json:"fin_count"`
}

// HostJSON is one host-table entry as served by /api/v1/hosts.
type HostJSON struct {
	SrcIP              string  `json:"src_ip"`
	FirstSeen          float64 `json:"first_seen"`
	LastSeen           float64 `json:"last_seen"`
	Packets            int     `json:"packets"`
	Bytes              int     `json:"bytes"`
	UniqueDstIPs       int     `json:"unique_dst_ips"`
	UniqueDstPorts     int     `json:"unique_dst_ports"`
	PortEntropy        float64 `json:"port_entropy"`
	ConnectionAttempts int     `json:"connection_attempts"`
	FailedConnections  int     `json:"failed_connections"`
	SynCount           int     `json:"syn_count"`
	AckCount           int     `json:"ack_count"`
	RstCount           int     `json:"rst_count"`
	FinCount           int     `json:"fin_count"`
	MeanFlowDuration   float64 `json:"mean_flow_duration"`
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	c := h.src.Counters()
	resp := StatsResponse{
		SensorID:      h.sensorID,
		SchemaVersion: feature.SchemaVersion.String(),
		Running:       h.src.Running(),
		Counters: countersJSON{
			Frames:         c.Frames,
			Processed:      c.Processed,
			Unparsed:       c.Unparsed,
			Undirected:     c.Undirected,
			Dropped:        c.Dropped,
			FlowFeatures:   c.FlowFeatures,
			HostFeatures:   c.HostFeatures,
			ConsumerErrors: c.ConsumerErrors,
		},
	}
	if d := h.src.Diagnostics(); d != nil {
		resp.Diagnostics = &diagnosticsJSON{
			UpdatedAt:         d.UpdatedAt,
			LastPacketTime:    d.LastPacketTime,
			ActiveFlowWindows: d.ActiveFlowWindows,
			ActiveHostWindows: d.ActiveHostWindows,
			FlowTableSize:     d.FlowTableSize,
			HostTableSize:     d.HostTableSize,
		}
	}
	writeJSON(w, resp)
}

// listQuery holds the filters shared by the table routes: ?src=<ip>&limit=<n>.
type listQuery struct {
	src   netip.Addr
	limit int
}

func parseListQuery(r *http.Request) (listQuery, error) {
	var q listQuery
	if s := r.URL.Query().Get("src"); s != "" {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return q, fmt.Errorf("invalid src %q", s)
		}
		q.src = addr
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.limit = n
	}
	return q, nil
}

func (q listQuery) full(n int) bool { return q.limit > 0 && n >= q.limit }

func (h *handler) flows(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := []FlowJSON{}
	if snap := h.src.Tables(); snap != nil {
		for _, f := range snap.Flows {
			if q.full(len(out)) {
				break
			}
			if q.src.IsValid() && f.Key.SrcIP != q.src {
				continue
			}
			out = append(out, flowJSON(f))
		}
	}
	writeJSON(w, out)
}

func (h *handler) hosts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := []HostJSON{}
	if snap := h.src.Tables(); snap != nil {
		for _, e := range snap.Hosts {
			if q.full(len(out)) {
				break
			}
			if q.src.IsValid() && e.Key.SrcIP != q.src {
				continue
			}
			out = append(out, hostJSON(e))
		}
	}
	writeJSON(w, out)
}

func flowJSON(f model.FlowEntry) FlowJSON {
	return FlowJSON{
		SrcIP:                f.Key.SrcIP.String(),
		DstIP:                f.Key.DstIP.String(),
		DstPort:              f.Key.DstPort,
		Protocol:             f.Key.Protocol.String(),
		Direction:            f.Key.Direction.String(),
		FirstSeen:            f.FirstSeen,
		LastSeen:             f.LastSeen,
		Packets:              f.Packets,
		Bytes:                f.Bytes,
		FwdPackets:           f.FwdPackets,
		BwdPackets:           f.BwdPackets,
		InterArrivalMean:     f.InterArrivalMean,
		InterArrivalVariance: f.InterArrivalVariance,
		SynCount:             f.SynCount,
		AckCount:             f.AckCount,
		RstCount:             f.RstCount,
		FinCount:             f.FinCount,
	}
}

func hostJSON(e model.HostEntry) HostJSON {
	return HostJSON{
		SrcIP:              e.Key.SrcIP.String(),
		FirstSeen:          e.FirstSeen,
		LastSeen:           e.LastSeen,
		Packets:            e.Packets,
		Bytes:              e.Bytes,
		UniqueDstIPs:       e.UniqueDstIPs,
		UniqueDstPorts:     e.UniqueDstPorts,
		PortEntropy:        e.PortEntropy,
		ConnectionAttempts: e.ConnectionAttempts,
		FailedConnections:  e.FailedConnections,
		SynCount:           e.SynCount,
		AckCount:           e.AckCount,
		RstCount:           e.RstCount,
		FinCount:           e.FinCount,
		MeanFlowDuration:   e.MeanFlowDuration,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Debugf("Error writing response: %v", err)
	}
}
