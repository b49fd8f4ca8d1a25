package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/yukikurage/relief-management-api/internal/backup"
)

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "Dump the database to a .sql file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write the dump here as well as to the snapshot store",
		},
	},
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService(c.Context, backup.NewGate())
		if err != nil {
			return err
		}

		file, err := svc.Export(c.Context, operator)
		if err != nil {
			return err
		}

		if out := c.String("out"); out != "" {
			if err := os.WriteFile(out, file.Data, 0o640); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
		}

		a.log.WithFields(logrus.Fields{
			"snapshot": file.Snapshot.Location,
			"bytes":    len(file.Data),
		}).Info("database exported")
		return nil
	},
}

var importCommand = &cli.Command{
	Name:  "import",
	Usage: "Replace the database with a .sql dump, writing a safety snapshot first",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Usage:    "Dump to import",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		path := c.String("file")
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		// A running server does not see this process's gate. Only the redis
		// import lock keeps the two from importing at once.
		svc, err := a.backupService(c.Context, backup.NewGate())
		if err != nil {
			return err
		}

		result, err := svc.Import(c.Context, operator, filepath.Base(path), f)
		if err != nil {
			return err
		}

		a.log.WithFields(logrus.Fields{
			"safety_snapshot": result.SafetySnapshot.Location,
			"statements":      result.Statements,
			"tables":          len(result.Tables),
		}).Info("database imported")
		return nil
	},
}

var snapshotsCommand = &cli.Command{
	Name:  "snapshots",
	Usage: "List stored exports and safety snapshots, newest first",
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService(c.Context, backup.NewGate())
		if err != nil {
			return err
		}

		list, err := svc.Snapshots(c.Context, operator)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Size, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}
