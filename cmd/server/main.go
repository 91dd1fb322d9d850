package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/srandom/internal/auth"
	"github.com/ArowuTest/srandom/internal/config"
	"github.com/ArowuTest/srandom/internal/device"
	"github.com/ArowuTest/srandom/internal/handlers"
	"github.com/ArowuTest/srandom/internal/store"
)

func main() {
	// Load config & init
	appCfg, err := config.Load()
	if err != nil {
		boot := config.NewLogger("info", false)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := config.NewLogger(appCfg.LogLevel, appCfg.LogPretty)
	gin.SetMode(gin.ReleaseMode)

	// The device must exist before anything is served.
	dev, err := device.New(device.Config{
		Name:       appCfg.DeviceName,
		Pool:       appCfg.PoolConfig(),
		ReseedSpan: appCfg.ReseedSpan,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("device initialization failed")
	}

	var rec store.Recorder = store.NewMemory(0)
	if appCfg.DatabaseEnabled() {
		db, err := config.InitDB(appCfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("database unavailable")
		}
		gs, err := store.NewGorm(db)
		if err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		rec = gs
	} else {
		log.Warn().Msg("DB_HOST not set, keeping audit history in memory")
	}
	if !appCfg.AdminEnabled() {
		log.Warn().Msg("JWT_SECRET_KEY or ADMIN_PASSWORD_HASH not set, admin endpoints disabled")
	}

	h := handlers.New(dev, rec, auth.NewIssuer(appCfg.JWTSecret, 0), handlers.Options{
		MaxReadBytes:      appCfg.MaxReadBytes,
		AdminUsername:     appCfg.AdminUsername,
		AdminPasswordHash: appCfg.AdminPasswordHash,
		FrontendURL:       appCfg.FrontendURL,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		store.NewSnapshotter(rec, dev, appCfg.SnapshotInterval, log).Run(ctx)
	}()

	srv := &http.Server{Addr: ":" + appCfg.Port, Handler: h.Router()}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	h.Shutdown(shutdownCtx)
	<-snapDone
	dev.Shutdown()
}
