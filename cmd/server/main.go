package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-tenant-gateway/internal/config"
	"github.com/jrsteele09/go-tenant-gateway/server"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	"github.com/jrsteele09/go-tenant-gateway/sessions/memory"
	"github.com/jrsteele09/go-tenant-gateway/sessions/redis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errPanicRecovered = errors.New("panic recovered")

// main restarts the server after a recovered panic and exits on any other error.
func main() {
	for {
		err := run()
		if err == nil {
			break
		}
		if !errors.Is(err, errPanicRecovered) {
			log.Fatal().Err(err).Msg("Error running server")
		}
		log.Error().Err(err).Msg("Restarting server")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	repo, closeRepo, err := sessionRepo(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	handler, err := server.New(c, repo)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func sessionRepo(c config.Config) (sessions.Repo, func(), error) {
	switch c.GetSessionDriver() {
	case "memory":
		log.Info().Msg("Using in-memory session store")
		return memory.New(c.GetMaxSessionAge()), func() {}, nil
	case "redis":
		repo := redis.New(c.GetRedisAddr(), c.GetRedisDB())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Int("db", c.GetRedisDB()).Msg("Using redis session store")
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", c.GetSessionDriver())
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
