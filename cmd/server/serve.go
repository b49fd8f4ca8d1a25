package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/constants"
	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/handlers"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(a.cfg.GinMode)

	if err := database.Migrate(a.db, a.log); err != nil {
		return err
	}

	store, err := sessionStore(a)
	if err != nil {
		return err
	}

	gate := backup.NewGate()
	backupService, err := a.backupService(ctx, gate)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.NewServices(a.db, backupService), handlers.RouterConfig{
		SessionStore:   store,
		Gate:           gate,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Log:            a.log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithField("port", a.cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionStore keeps sessions in redis when it is configured and in signed cookies otherwise.
func sessionStore(a *app) (sessions.Store, error) {
	var store sessions.Store
	if addr := a.cfg.RedisAddr(); addr != "" {
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			addr,
			"", // username (empty for default user)
			a.cfg.RedisPassword,
			[]byte(a.cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = rs
	} else {
		a.log.Warn("REDIS_HOST not set, keeping sessions in cookies")
		store = cookie.NewStore([]byte(a.cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
