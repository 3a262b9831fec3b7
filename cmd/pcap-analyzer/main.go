package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/engine/pipeline"
	"github.com/TrieuQuan2005/IdsService/internal/model"
	"github.com/TrieuQuan2005/IdsService/internal/probe"
	"github.com/TrieuQuan2005/IdsService/internal/report"
	"github.com/TrieuQuan2005/IdsService/internal/sensor"
	"github.com/TrieuQuan2005/IdsService/pkg/pcap"
)

func main() {
	app := cli.NewApp()
	app.Name = "pcap-analyzer"
	app.Usage = "Replay a pcap file through the feature pipeline and print the lifetime tables."
	app.ArgsUsage = "<path_to_pcap_file>"
	app.Flags = []cli.Flag{
		cli.StringSliceFlag{Name: "local, l", Usage: "local IPv4 `ADDR` (repeatable)"},
		cli.Float64Flag{Name: "flow-window", Usage: "flow window in `SECONDS`", Value: 10},
		cli.Float64Flag{Name: "host-window", Usage: "host window in `SECONDS`", Value: 10},
		cli.IntFlag{Name: "limit, n", Usage: "print at most `N` rows per table", Value: 20},
		cli.BoolFlag{Name: "verbose, v", Usage: "log every feature set"},
	}
	app.Action = analyze

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func analyze(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.NewExitError("Usage: pcap-analyzer --local <ip> <path_to_pcap_file>", 1)
	}

	cfg, err := config.Default()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	cfg.Capture.Type = "file"
	cfg.Capture.File = path
	cfg.LocalIPs = c.StringSlice("local")
	cfg.Flow.WindowSize = c.Float64("flow-window")
	cfg.Host.WindowSize = c.Float64("host-window")
	if err := cfg.Validate(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	opts, err := sensor.PipelineOptions(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	var consumers []model.Consumer
	if c.Bool("verbose") {
		log.SetLevel(log.DebugLevel)
		consumers = append(consumers, probe.NewLogConsumer())
	}
	p := pipeline.New(opts, consumers)

	log.Printf("Reading packets from '%s'...", path)
	start := time.Now()
	if err := p.Run(context.Background(), pcap.NewFileSource(path), capture.NewQueue(cfg.Capture.QueueCapacity)); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	log.Println("Finished reading all packets from pcap file.")

	report.Summary(os.Stdout, p.Counters(), time.Since(start))
	tables := p.Tables()
	report.Flows(os.Stdout, tables.Flows, c.Int("limit"))
	report.Hosts(os.Stdout, tables.Hosts, c.Int("limit"))
	return nil
}
