package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bunker-server/internal/config"
	"github.com/DoyleJ11/bunker-server/internal/httpapi"
	"github.com/DoyleJ11/bunker-server/internal/hub"
	"github.com/DoyleJ11/bunker-server/internal/lobby"
	"github.com/DoyleJ11/bunker-server/internal/logging"
	"github.com/DoyleJ11/bunker-server/internal/room"
	"github.com/DoyleJ11/bunker-server/internal/ws"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Server, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := lobby.DefaultOptions()
	opts.MaxPlayers = cfg.MaxPlayers
	opts.InputInterval = cfg.InputInterval
	opts.RoomTTL = cfg.RoomTTL
	mgr := lobby.NewManager(room.NewRegistry(), opts)

	h := hub.NewHub(ctx, mgr, logger.Named("hub"), hub.Options{
		ReapInterval:       cfg.ReapInterval,
		MatchSweepInterval: cfg.MatchSweepInterval,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(h, logger.Named("http"), ws.Options{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Send(hub.ShutdownHub{})
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
