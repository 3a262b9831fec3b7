package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/logging"
	"github.com/TrieuQuan2005/IdsService/internal/probe"
	"github.com/TrieuQuan2005/IdsService/internal/report"
	"github.com/TrieuQuan2005/IdsService/internal/sensor"
	"github.com/TrieuQuan2005/IdsService/internal/snapshot"
)

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "load configuration from `FILE`",
	Value: "configs/config.yaml",
}

func commands() []cli.Command {
	return []cli.Command{
		{
			Name:  "run",
			Usage: "capture traffic and produce feature vectors",
			Flags: []cli.Flag{
				configFlag,
				cli.StringFlag{
					Name:  "file, f",
					Usage: "replay `PCAP` instead of the configured source",
				},
				cli.DurationFlag{
					Name:  "duration, d",
					Usage: "stop after `DURATION` (overrides pipeline.run_duration)",
				},
			},
			Action: runSensor,
		},
		{
			Name:  "subscribe",
			Usage: "print feature vectors published on NATS",
			Flags: []cli.Flag{
				configFlag,
				cli.StringFlag{Name: "url", Usage: "NATS server `URL` (overrides the first nats consumer)"},
				cli.StringFlag{Name: "subject", Usage: "base `SUBJECT` (overrides the first nats consumer)"},
			},
			Action: subscribe,
		},
		{
			Name:   "check-config",
			Usage:  "validate the configuration and print the effective settings",
			Flags:  []cli.Flag{configFlag},
			Action: checkConfig,
		},
		{
			Name:      "snapshot",
			Usage:     "print a lifetime-table snapshot written by the gob writer",
			ArgsUsage: "<snapshot dir>",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "limit, n", Usage: "print at most `N` rows per table", Value: 20},
			},
			Action: showSnapshot,
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, cli.NewExitError(err.Error(), 1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		return nil, cli.NewExitError(err.Error(), 1)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSensor(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if file := c.String("file"); file != "" {
		cfg.Capture.Type = "file"
		cfg.Capture.File = file
	}
	if d := c.Duration("duration"); d > 0 {
		cfg.Pipeline.RunDuration = d
	}

	s, err := sensor.New(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	runErr := s.Run(ctx)
	report.Summary(os.Stdout, s.Pipeline().Counters(), time.Since(start))
	if runErr != nil {
		return cli.NewExitError(runErr.Error(), 1)
	}
	return nil
}

func subscribe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	natsCfg := config.NATSConfig{URL: "nats://127.0.0.1:4222", Subject: "ids.features"}
	for _, def := range cfg.Consumers {
		if def.Type == "nats" {
			natsCfg = def.NATS
			break
		}
	}
	if url := c.String("url"); url != "" {
		natsCfg.URL = url
	}
	if subject := c.String("subject"); subject != "" {
		natsCfg.Subject = subject
	}

	sub, err := probe.NewSubscriber(natsCfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer sub.Close()

	err = sub.Start(func(env probe.Envelope) {
		switch env.Kind {
		case probe.KindFlow:
			fmt.Printf("[%s] flow %s %v\n", env.SensorID, env.Flow.Key, env.Flow.Values())
		case probe.KindHost:
			fmt.Printf("[%s] host %s %v\n", env.SensorID, env.Host.SrcIP, env.Host.Values())
		}
	})
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down subscriber...")
	return nil
}

func checkConfig(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := cfg.Validate(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Setting", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"capture.type", cfg.Capture.Type},
		{"capture.source", cfg.Capture.Interface + cfg.Capture.File},
		{"capture.bpf_filter", cfg.Capture.BPFFilter},
		{"capture.queue_capacity", strconv.Itoa(cfg.Capture.QueueCapacity)},
		{"local_ips", fmt.Sprint(cfg.LocalIPs)},
		{"flow.window_size", fmt.Sprint(cfg.Flow.WindowSize)},
		{"flow.table_timeout", fmt.Sprint(cfg.Flow.TableTimeout)},
		{"host.window_size", fmt.Sprint(cfg.Host.WindowSize)},
		{"host.table_timeout", fmt.Sprint(cfg.Host.TableTimeout)},
	})
	for _, def := range cfg.Consumers {
		table.Append([]string{"consumer." + def.Type, strconv.FormatBool(def.Enabled)})
	}
	for _, def := range cfg.Writers {
		table.Append([]string{"writer." + def.Type, fmt.Sprintf("%t every %s", def.Enabled, def.SnapshotInterval)})
	}
	table.Render()
	fmt.Println("Configuration is valid.")
	return nil
}

func showSnapshot(c *cli.Context) error {
	dir := c.Args().Get(0)
	if dir == "" {
		return cli.NewExitError("Specify a snapshot directory", 1)
	}
	snap, summary, err := snapshot.Load(dir)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("Snapshot taken at %s: %d flows, %d hosts, %d packets, %d bytes\n",
		summary.TakenAt, summary.TotalFlows, summary.TotalHosts, summary.TotalPackets, summary.TotalBytes)
	report.Flows(os.Stdout, snap.Flows, c.Int("limit"))
	report.Hosts(os.Stdout, snap.Hosts, c.Int("limit"))
	return nil
}
