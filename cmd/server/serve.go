package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/config"
	"github.com/DoyleJ11/matchqueue-backend/internal/detach"
	"github.com/DoyleJ11/matchqueue-backend/internal/httpapi"
	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/logging"
	"github.com/DoyleJ11/matchqueue-backend/internal/metrics"
	"github.com/DoyleJ11/matchqueue-backend/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the websocket and REST server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var st store.Store = store.Nop{}
	if cfg.Database.DSN != "" {
		pg, err := store.Open(ctx, store.Config{
			DSN:         cfg.Database.DSN,
			MaxConns:    cfg.Database.MaxConns,
			AutoMigrate: cfg.Database.AutoMigrate,
		})
		if err != nil {
			return err
		}
		st = pg
	} else {
		log.Warn("no database configured, stats persistence disabled")
	}

	tasks := detach.NewRunner(log.Named("detach"), detach.Options{
		MaxInFlight: cfg.Persist.MaxInFlight,
		MaxBacklog:  cfg.Persist.MaxBacklog,
		Timeout:     cfg.Persist.Timeout,
		OnFailure:   func(name string) { m.TaskFailures.WithLabelValues(name).Inc() },
	})

	h, err := hub.NewHub(context.Background(), hub.Options{
		LobbySize:        cfg.Matchmaking.LobbySize,
		DisconnectGrace:  cfg.Matchmaking.DisconnectGrace,
		ChatHistory:      cfg.Matchmaking.ChatHistory,
		MaxMessageLength: cfg.Matchmaking.MaxMessageLength,
		DefaultGame:      cfg.Matchmaking.DefaultGame,
		Sink:             st,
		Tasks:            tasks,
		Metrics:          m,
		Logger:           log,
	})
	if err != nil {
		return multierr.Append(err, st.Close())
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Reader:         st,
			Gatherer:       reg,
			OriginPatterns: cfg.HTTP.OriginPatterns,
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-h.Done():
		}
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Closing the hub closes every outbox, which ends the websocket handlers.
		h.Close()
		serr := srv.Shutdown(sctx)
		serr = multierr.Append(serr, tasks.Close(sctx))
		return multierr.Append(serr, st.Close())
	})
	return g.Wait()
}
