package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/config"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/realtime"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"
	"github.com/gianlucacontedesign/terpenitos/internal/router"
	"github.com/gianlucacontedesign/terpenitos/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg)

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("SESSION_SECRET is required in production")
		}
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		cfg.SessionSecret = hex.EncodeToString(b)
		log.Warn().Msg("SESSION_SECRET not set: using an ephemeral secret, sessions end on restart")
	}
	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH not set: admin login disabled")
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb == nil {
		log.Warn().Msg("REDIS_URL empty: catalog cache, session revocation and order e-mails disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)

	// Worker handlers are wired here (composition root) so that the pool has
	// access to every infrastructure dependency.
	var workers *sync.WaitGroup
	if rdb != nil {
		pedidoWorker := worker.NewPedidoWorker(repository.NewPedidoRepository(db), mailer, cfg.ReceiptStoragePath, cfg.SiteURL)
		workers = worker.StartWorkerPool(ctx, rdb, pedidoWorker.Handlers(), cfg.WorkerPoolSize)
		worker.StartRetryCron(ctx, rdb, func() bool { return mailer.Estado() == infra.CBOpen })
	}

	hub := realtime.NewHub(cfg.AllowedOrigins())
	go hub.Run(ctx)

	r, err := router.New(ctx, cfg, db, rdb, mailer, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Terpenitos backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if workers != nil {
		workers.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
