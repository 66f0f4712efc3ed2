package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/editorialdesk/console/auditlog"
	"github.com/editorialdesk/console/authflow"
	"github.com/editorialdesk/console/backend"
	"github.com/editorialdesk/console/internal/config"
	"github.com/editorialdesk/console/menu"
	"github.com/editorialdesk/console/session"
	"github.com/editorialdesk/console/shell"
	"github.com/editorialdesk/console/views"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running console: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Console stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
	})
	defer rdb.Close()

	broadcaster := session.NewBroadcaster(rdb)
	store := session.NewStore(session.NewRedisRepo(rdb), broadcaster, c.GetLangCode(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Hydrate(ctx); err != nil {
		logger.Warn().Err(err).Msg("session hydration failed, starting logged out")
	}

	gw, err := backend.New(backend.Options{
		BaseURL:     c.GetBackendURL(),
		Timeout:     c.GetBackendTimeout(),
		ExpiryDelay: c.GetExpiryNoticeDelay(),
		OnSessionLoss: func(reason string) {
			logger.Warn().Str("reason", reason).Msg("session lost, clearing local state")
			if err := store.ClearLocal(context.Background()); err != nil {
				logger.Error().Err(err).Msg("clearing session failed")
			}
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("backend.New: %w", err)
	}

	audit := auditlog.New(c.GetBackendURL(), nil, logger)
	flow := authflow.New(gw, store, audit, c.GetOTPResendWindow(), logger)
	store.OnCleared = flow.Reset

	registry := menu.NewRegistry()
	views.RegisterBuiltins(registry)
	compiler := menu.NewCompiler(registry, logger)

	sub, err := broadcaster.Subscribe(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("logout broadcast unavailable")
	} else {
		defer sub.Close()
		go store.Listen(ctx, sub)
	}

	console := shell.New(c, flow, store, gw, compiler, logger)
	server := &http.Server{Addr: c.GetPort(), Handler: console}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Console listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
