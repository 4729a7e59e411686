package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/lazharichir/elevens/cards"
	"github.com/lazharichir/elevens/config"
	"github.com/lazharichir/elevens/events"
	"github.com/lazharichir/elevens/server"
	"github.com/lazharichir/elevens/session"
	"github.com/lazharichir/elevens/store"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	zapLogger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	log.Infow("starting elevens server", "env", cfg.AppEnv, "addr", cfg.Addr)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalw("failed to open results database", "path", cfg.DatabasePath, "error", err)
	}
	defer st.Close()

	opts := []session.Option{session.WithResults(st)}
	var entropyCheck func() error
	if cfg.Serial.Enabled() {
		src, err := openSerialSource(cfg.Serial)
		if err != nil {
			log.Fatalw("hardware RNG unavailable", "device", cfg.Serial.DeviceName, "error", err)
		}
		log.Infow("shuffling from hardware RNG", "device", cfg.Serial.DeviceName)
		opts = append(opts, session.WithSeeds(firstSeed(cfg.ShuffleSeed, session.SeedsFrom(src))))
		entropyCheck = src.Err
	} else {
		opts = append(opts, session.WithSeeds(firstSeed(cfg.ShuffleSeed, session.SeedsFrom(cards.NewTimeSource()))))
	}

	sessions := session.NewManager(events.NewInMemoryEventStore(), log, opts...)
	if cfg.SessionIdleTimeout > 0 {
		reaper := session.NewReaper(sessions, cfg.SessionIdleTimeout)
		reaper.Start()
		defer reaper.Stop()
	}

	srv := server.NewServer(sessions, st, log, server.Options{
		AllowedOrigins: cfg.WSAllowedOrigins,
		Production:     cfg.IsProduction(),
		EntropyCheck:   entropyCheck,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infow("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Errorw("server error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown error", "error", err)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openSerialSource opens the hardware RNG and health-checks it before any
// deck is shuffled from it.
func openSerialSource(c config.SerialConfig) (*cards.ReaderSource, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        c.DeviceName,
		Baud:        c.BaudRate,
		Size:        8,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := cards.CheckEntropy(port); err != nil {
		port.Close()
		return nil, err
	}
	return cards.NewReaderSource(port), nil
}

// firstSeed hands out the configured seed once, then defers to next.
func firstSeed(seed *int64, next func() int64) func() int64 {
	if seed == nil {
		return next
	}
	pending := true
	return func() int64 {
		if pending {
			pending = false
			return *seed
		}
		return next()
	}
}
