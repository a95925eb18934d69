package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zanzara-go/internal/api"
	"zanzara-go/internal/config"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/templates"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "zanzara-go").Info("starting service")
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	store := templates.NewStoreFromConfig(cfg.Templates, log)

	switch {
	case cfg.OpenAI.APIKey != "":
	case cfg.MockOnly():
		log.Info("mock mode, no API key needed")
	default:
		log.Warnf("no API key configured; requests must send %s", api.KeyHeader)
	}

	srv := api.New(api.Options{Config: cfg, Store: store, APIKey: cfg.OpenAI.APIKey, Logger: log})
	rd := srv.Readiness()
	log.WithField("template_loaded", rd.TemplateLoaded).
		WithField("examples", fmt.Sprintf("%d/%d", rd.ExamplesLoaded, rd.ExamplesExpected)).
		Info("templates warmed up")
	for _, w := range rd.Warnings {
		log.Warn(w)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
}
