package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "relief",
		Usage: "Disaster relief coordination API",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			createAdminCommand,
			exportCommand,
			importCommand,
			snapshotsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
