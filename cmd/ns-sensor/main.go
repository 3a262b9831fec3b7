package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// Version is set at build time.
var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "ns-sensor"
	app.Usage = "Turn captured traffic into flow and host feature vectors."
	app.Version = Version
	app.Commands = commands()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
