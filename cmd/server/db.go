package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/seed"
	"github.com/yukikurage/relief-management-api/internal/services"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the database schema",
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		return database.Migrate(a.db, a.log)
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Populate the database with sample areas, products, needs and area admins",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete all existing data first",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Password for the seeded accounts",
			Value: "relief123",
		},
	},
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := database.Migrate(a.db, a.log); err != nil {
			return err
		}

		result, err := seed.Run(a.db, seed.Options{
			Reset:    c.Bool("reset"),
			Password: c.String("password"),
		}, a.log)
		if errors.Is(err, seed.ErrAlreadySeeded) {
			return cli.Exit(err.Error(), 1)
		}
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		a.log.WithFields(logrus.Fields{
			"categories":   result.Categories,
			"areas":        result.Areas,
			"products":     result.Products,
			"area_admins":  result.AreaAdmins,
			"needs":        result.Needs,
			"super_admins": result.SuperAdmins,
		}).Info("database seeded")
		return nil
	},
}

var createAdminCommand = &cli.Command{
	Name:  "create-admin",
	Usage: "Create a super admin account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "username", Required: true},
		&cli.StringFlag{Name: "email"},
		&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
	},
	Action: func(c *cli.Context) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		authService := services.NewAuthService(
			repository.NewUserRepository(a.db),
			repository.NewAreaAssignmentRepository(a.db),
		)
		user, err := authService.CreateSuperAdmin(services.SignupInput{
			Username: c.String("username"),
			Email:    c.String("email"),
			Password: c.String("password"),
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		a.log.WithField("user_id", user.ID).WithField("username", user.Username).Info("super admin created")
		return nil
	},
}
