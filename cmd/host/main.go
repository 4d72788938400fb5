package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/config"
	"github.com/DoyleJ11/bunker-server/internal/host"
	"github.com/DoyleJ11/bunker-server/internal/logging"
	"github.com/DoyleJ11/bunker-server/internal/tanks"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadHost()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("host stopped", zap.Error(err))
	}
}

func run(cfg config.Host, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tcfg := tanks.DefaultConfig()
	if cfg.TanksConfig != "" {
		var err error
		if tcfg, err = tanks.LoadConfig(cfg.TanksConfig); err != nil {
			return err
		}
	}
	if cfg.PlayerID == "" {
		cfg.PlayerID = uuid.NewString()
	}

	sess := host.NewSession(ctx, tcfg, logger.Named("session"), host.SessionOptions{
		TickInterval: time.Second / time.Duration(cfg.TickHz),
		Render:       scoreboard(logger.Named("scoreboard"), cfg.TickHz),
	})

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c, err := host.Dial(dialCtx, cfg.ServerURL, sess, logger.Named("client"), host.ClientOptions{
		PlayerID:         cfg.PlayerID,
		Name:             cfg.Name,
		AutoStartPlayers: cfg.AutoStartPlayers,
		RestartAfter:     cfg.RestartAfter,
	})
	if err != nil {
		sess.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Debug("close", zap.Error(err))
		}
	}()

	logger.Info("hosting", zap.String("server", cfg.ServerURL), zap.String("player", cfg.PlayerID))
	return c.Run(ctx)
}

// scoreboard logs kills roughly once a second.
func scoreboard(logger *zap.Logger, every int) host.Renderer {
	return func(st *tanks.State) {
		if st.Tick%every != 0 {
			return
		}
		ids := make([]string, 0, len(st.Tanks))
		for id := range st.Tanks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fields := []zap.Field{zap.Int("tick", st.Tick), zap.Int("bullets", len(st.Bullets))}
		for _, id := range ids {
			fields = append(fields, zap.Int(id, st.Tanks[id].Kills))
		}
		logger.Debug("score", fields...)
	}
}
