package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/api"
	"github.com/jrsteele09/go-session-client/credential"
	"github.com/jrsteele09/go-session-client/events"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running session client: %s\n", err)
	}
	log.Printf("Session client stopped\n")
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
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	mgr, bus, err := buildManager(c, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()
	logEvents(bus, logger)

	ctx := context.Background()
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("manager.Initialize: %w", err)
	}
	if !mgr.IsAuthenticated() && c.GetIdentifier() != "" {
		if err := mgr.Login(ctx, c.GetIdentifier(), c.GetSecret(), c.GetRememberSession()); err != nil {
			logger.Error().Err(err).Msg("login failed")
		}
	}

	waitForStopSignal()
	return nil
}

func buildManager(c config.Config, logger zerolog.Logger) (*session.Manager, *events.Bus, error) {
	base, err := url.Parse(c.GetBaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("url.Parse: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("cookiejar.New: %w", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: c.GetHTTPTimeout()}
	apiClient := api.NewClient(c.GetBaseURL(), api.WithHTTPClient(httpClient), api.WithLogger(logger))

	durable, err := store.NewFileBackend(c.GetDataFolder(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("store.NewFileBackend: %w", err)
	}
	credStore, err := store.New(durable, store.NewMemoryBackend(),
		store.WithTransportBackend(store.NewCookieBackend(jar, base)),
		store.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("store.New: %w", err)
	}

	bus := events.NewBus()
	mgr, err := session.New(apiClient, credStore,
		session.WithLogger(logger),
		session.WithEventBus(bus),
		session.WithRefreshLead(c.GetRefreshLead()),
		session.WithClock(credential.NewClock(credential.WithMargin(c.GetExpiryMargin()))))
	if err != nil {
		return nil, nil, fmt.Errorf("session.New: %w", err)
	}
	return mgr, bus, nil
}

func logEvents(bus *events.Bus, logger zerolog.Logger) {
	names := []string{
		events.Initialized,
		events.LoginStarted,
		events.LoginCompleted,
		events.LoginFailed,
		events.TokenRefreshStarted,
		events.TokenRefreshCompleted,
		events.TokenRefreshFailed,
		events.UserInfoLoaded,
		events.LogoutStarted,
		events.LoggedOut,
	}
	for _, name := range names {
		bus.Subscribe(name, func(e events.Event) {
			logger.Info().Str("event", e.Name).Fields(e.Payload).Msg("session event")
		})
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
