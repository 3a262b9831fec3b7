// Package report renders pipeline results as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// Summary prints the end-of-run counters.
func Summary(w io.Writer, c pipeline.Counters, elapsed time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	rows := [][]string{
		{"Elapsed", elapsed.Round(time.Millisecond).String()},
		{"Frames", u(c.Frames)},
		{"Packets processed", u(c.Processed)},
		{"Unparsed", u(c.Unparsed)},
		{"Undirected", u(c.Undirected)},
		{"Dropped", u(c.Dropped)},
		{"Flow features", u(c.FlowFeatures)},
		{"Host features", u(c.HostFeatures)},
		{"Consumer errors", u(c.ConsumerErrors)},
	}
	table.AppendBulk(rows)
	table.Render()
}

// Flows prints up to limit flow entries, all of them when limit is 0.
func Flows(w io.Writer, flows []model.FlowEntry, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Direction", "Source", "Destination", "Port", "Proto", "Packets", "Bytes", "Fwd/Bwd", "SYN", "RST", "Duration"})
	for i, f := range flows {
		if limit > 0 && i >= limit {
			break
		}
		table.Append([]string{
			f.Key.Direction.String(),
			f.Key.SrcIP.String(),
			f.Key.DstIP.String(),
			strconv.Itoa(int(f.Key.DstPort)),
			f.Key.Protocol.String(),
			strconv.Itoa(f.Packets),
			strconv.Itoa(f.Bytes),
			fmt.Sprintf("%d/%d", f.FwdPackets, f.BwdPackets),
			strconv.Itoa(f.SynCount),
			strconv.Itoa(f.RstCount),
			seconds(f.LastSeen - f.FirstSeen),
		})
	}
	table.SetCaption(true, fmt.Sprintf("%d flows", len(flows)))
	table.Render()
}

// Hosts prints up to limit host entries, all of them when limit is 0.
func Hosts(w io.Writer, hosts []model.HostEntry, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Host", "Packets", "Bytes", "Dst IPs", "Dst Ports", "Entropy", "Attempts", "Failed", "Mean Flow"})
	for i, h := range hosts {
		if limit > 0 && i >= limit {
			break
		}
		table.Append([]string{
			h.Key.SrcIP.String(),
			strconv.Itoa(h.Packets),
			strconv.Itoa(h.Bytes),
			strconv.Itoa(h.UniqueDstIPs),
			strconv.Itoa(h.UniqueDstPorts),
			strconv.FormatFloat(h.PortEntropy, 'f', 3, 64),
			strconv.Itoa(h.ConnectionAttempts),
			strconv.Itoa(h.FailedConnections),
			seconds(h.MeanFlowDuration),
		})
	}
	table.SetCaption(true, fmt.Sprintf("%d hosts", len(hosts)))
	table.Render()
}

func u(v uint64) string { return strconv.FormatUint(v, 10) }

func seconds(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) + "s" }
