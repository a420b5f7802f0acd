// Package main starts the PhotoTrack admin server: it loads the
// configuration, wires the API clients, services, geocoder and views into
// the router, and serves until interrupted.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/client/api"
	"github.com/atinyakov/phototrack-admin/internal/config"
	"github.com/atinyakov/phototrack-admin/internal/geocode"
	"github.com/atinyakov/phototrack-admin/internal/logger"
	"github.com/atinyakov/phototrack-admin/internal/server/handler/http"
	"github.com/atinyakov/phototrack-admin/internal/service"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	// HTTP clients for the PhotoTrack API and the geocoder.
	apiHTTP, err := api.NewHTTPClient(api.TransportOptions{
		CAFile:   options.CAFile,
		CertFile: options.CertFile,
		KeyFile:  options.KeyFile,
		Timeout:  options.Timeout.Duration,
	})
	if err != nil {
		return fmt.Errorf("api transport: %w", err)
	}
	geoHTTP, err := api.NewHTTPClient(api.TransportOptions{Timeout: options.Timeout.Duration})
	if err != nil {
		return fmt.Errorf("geocoder transport: %w", err)
	}

	client := api.New(apiHTTP, options.APIServer)

	// Business-logic services over the REST resources.
	users := service.NewUserService(client.Users)
	sites := service.NewSiteService(client.Sites)
	photos := service.NewPhotoService(client.Photos, client.SitePhotos)

	geocoder := geocode.New(geoHTTP, options.GeocoderURL, options.GeocoderKey)

	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	handlers := http.Handlers{
		Pages:  http.NewPageHandler(renderer, zapLogger),
		Users:  http.NewUserHandler(users, renderer, zapLogger),
		Sites:  http.NewSiteHandler(sites, geocoder, renderer, zapLogger),
		Photos: http.NewPhotoHandler(photos, sites, options.MaxUpload, renderer, zapLogger),
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Routes(handlers), view.Layout{APIPath: options.APIPath}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Port),
			zap.String("profile", options.Profile),
			zap.String("api_server", options.APIServer),
			zap.String("api_path", options.APIPath))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}
