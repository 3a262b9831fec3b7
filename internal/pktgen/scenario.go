package pktgen

import (
	"fmt"
	"math/rand"
	"net/netip"
	"sort"
	"time"
)

// ScenarioConfig parameterizes a generated traffic scenario. Local is the
// monitored host; Remote is its peer.
type ScenarioConfig struct {
	Local  netip.Addr
	Remote netip.Addr
	Start  time.Time
	// Count is the number of packets to generate.
	Count int
	Rand  *rand.Rand
}

type scenarioFunc func(cfg ScenarioConfig, emit func(gap time.Duration, s Spec) bool)

var scenarios = map[string]scenarioFunc{
	"web":      webScenario,
	"scan":     scanScenario,
	"synflood": synFloodScenario,
	"dns":      dnsScenario,
}

// Scenarios lists the scenario names accepted by Generate.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate builds cfg.Count packets of the named scenario.
func Generate(name string, cfg ScenarioConfig) ([]Packet, error) {
	gen, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	packets := make([]Packet, 0, cfg.Count)
	ts := cfg.Start
	var err error
	gen(cfg, func(gap time.Duration, s Spec) bool {
		if len(packets) >= cfg.Count {
			return false
		}
		var data []byte
		if data, err = Frame(s); err != nil {
			return false
		}
		ts = ts.Add(gap)
		packets = append(packets, Packet{Timestamp: ts, Data: data})
		return len(packets) < cfg.Count
	})
	if err != nil {
		return nil, err
	}
	return packets, nil
}

func ephemeral(r *rand.Rand) uint16 { return uint16(32768 + r.Intn(28232)) }

// webScenario repeats short HTTPS exchanges with a full handshake and teardown.
func webScenario(cfg ScenarioConfig, emit func(time.Duration, Spec) bool) {
	const port = 443
	for {
		sport := ephemeral(cfg.Rand)
		out := Spec{Src: cfg.Local, Dst: cfg.Remote, SrcPort: sport, DstPort: port}
		in := Spec{Src: cfg.Remote, Dst: cfg.Local, SrcPort: port, DstPort: sport}
		steps := []struct {
			gap  time.Duration
			spec Spec
		}{
			{200 * time.Millisecond, with(out, TCPFlags{SYN: true}, 0)},
			{20 * time.Millisecond, with(in, TCPFlags{SYN: true, ACK: true}, 0)},
			{time.Millisecond, with(out, TCPFlags{ACK: true}, 0)},
			{time.Millisecond, with(out, TCPFlags{ACK: true}, 300)},
			{30 * time.Millisecond, with(in, TCPFlags{ACK: true}, 1200)},
			{5 * time.Millisecond, with(out, TCPFlags{FIN: true, ACK: true}, 0)},
			{20 * time.Millisecond, with(in, TCPFlags{FIN: true, ACK: true}, 0)},
		}
		for _, st := range steps {
			if !emit(st.gap, st.spec) {
				return
			}
		}
	}
}

// scanScenario probes consecutive ports; the peer answers every probe with RST.
func scanScenario(cfg ScenarioConfig, emit func(time.Duration, Spec) bool) {
	sport := ephemeral(cfg.Rand)
	for port := 1; ; port = port%65535 + 1 {
		probe := Spec{Src: cfg.Local, Dst: cfg.Remote, SrcPort: sport, DstPort: uint16(port), Flags: TCPFlags{SYN: true}}
		reset := Spec{Src: cfg.Remote, Dst: cfg.Local, SrcPort: uint16(port), DstPort: sport, Flags: TCPFlags{RST: true, ACK: true}}
		if !emit(time.Millisecond, probe) || !emit(200*time.Microsecond, reset) {
			return
		}
	}
}

// synFloodScenario sends bare SYNs to one service from random source ports.
func synFloodScenario(cfg ScenarioConfig, emit func(time.Duration, Spec) bool) {
	for {
		s := Spec{Src: cfg.Local, Dst: cfg.Remote, SrcPort: ephemeral(cfg.Rand), DstPort: 80, Flags: TCPFlags{SYN: true}}
		if !emit(100*time.Microsecond, s) {
			return
		}
	}
}

// dnsScenario issues UDP queries and receives their answers.
func dnsScenario(cfg ScenarioConfig, emit func(time.Duration, Spec) bool) {
	for {
		sport := ephemeral(cfg.Rand)
		query := Spec{Src: cfg.Local, Dst: cfg.Remote, SrcPort: sport, DstPort: 53, UDP: true, PayloadLen: 40}
		answer := Spec{Src: cfg.Remote, Dst: cfg.Local, SrcPort: 53, DstPort: sport, UDP: true, PayloadLen: 120}
		gap := time.Duration(50+cfg.Rand.Intn(500)) * time.Millisecond
		if !emit(gap, query) || !emit(15*time.Millisecond, answer) {
			return
		}
	}
}

func with(s Spec, flags TCPFlags, payload int) Spec {
	s.Flags = flags
	s.PayloadLen = payload
	return s
}
