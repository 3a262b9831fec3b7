package main

import (
	"flag"
	"math/rand"
	"net/netip"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/pktgen"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	scenario := flag.String("s", "web", "Scenario: "+strings.Join(pktgen.Scenarios(), ", "))
	local := flag.String("local", "192.168.1.165", "Monitored host address")
	remote := flag.String("remote", "93.184.216.34", "Peer address")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	localAddr, err := netip.ParseAddr(*local)
	if err != nil {
		log.Fatalf("Invalid local address: %v", err)
	}
	remoteAddr, err := netip.ParseAddr(*remote)
	if err != nil {
		log.Fatalf("Invalid remote address: %v", err)
	}

	log.Printf("Generating %d %s packets into %s...", *packetCount, *scenario, *outputFile)
	packets, err := pktgen.Generate(*scenario, pktgen.ScenarioConfig{
		Local:  localAddr,
		Remote: remoteAddr,
		Start:  time.Now(),
		Count:  *packetCount,
		Rand:   rand.New(rand.NewSource(*seed)),
	})
	if err != nil {
		log.Fatalf("Failed to generate packets: %v", err)
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := pktgen.WritePcap(f, packets); err != nil {
		log.Fatalf("Failed to write pcap: %v", err)
	}
	log.Printf("Successfully generated %d packets into %s.", len(packets), *outputFile)
}
