package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatwidget "github.com/MegaGrindStone/chat-widget"
	"github.com/MegaGrindStone/chat-widget/internal/handlers"
	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/predict"
	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var port, endpoint string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser widget and the prediction endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Endpoint = endpoint
			}
			if cfg.Endpoint == "" {
				cfg.Endpoint = "http://localhost:" + cfg.Port
			}

			logger, closer, err := newLogger(cfg.Log, zerolog.ConsoleWriter{Out: os.Stderr})
			if err != nil {
				return err
			}
			defer closer.Close()

			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (default $PORT or 5000)")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "",
		"base URL of the prediction endpoint the widget talks to (default this server)")

	return cmd
}

func serve(ctx context.Context, cfg config, logger zerolog.Logger) error {
	cat, err := readCatalogue(cfg.Intents)
	if err != nil {
		return err
	}

	embedder, err := cfg.Embedder.embedder(logger)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	model, err := services.NewIntentModel(ctx, cat, embedder)
	if err != nil {
		return fmt.Errorf("failed to build intent model: %w", err)
	}
	logger.Info().Strs("tags", model.Tags()).Msg("Intent model ready")

	var store handlers.SessionStore
	if cfg.Store.Path != "" {
		boltDB, err := services.NewBoltDB(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer boltDB.Close()
		store = boltDB
	} else {
		store = services.NewMemory()
	}

	p := handlers.NewPredict(model, store, cfg.ConfidenceThreshold, logger)

	m, err := handlers.NewMain(func() widget.Predictor {
		return predict.NewClient(cfg.Endpoint, nil, logger)
	}, handlers.WidgetConfig{
		Title:              cfg.Title,
		Markdown:           cfg.Markdown,
		DisplayDelay:       cfg.DisplayDelay,
		RequestTimeout:     cfg.RequestTimeout,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create handlers: %w", err)
	}

	// Serve static files
	staticFS, err := fs.Sub(chatwidget.StaticFS, "static")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/widget/submit", m.HandleSubmit)
	mux.HandleFunc("/sse", m.HandleSSE)
	mux.HandleFunc("/predict", p.HandlePredict)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown sse server")
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("endpoint", cfg.Endpoint).Msg("Server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Start shutdown")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			if err := srv.Close(); err != nil {
				logger.Error().Err(err).Msg("Forcing server close")
			}
		}
	}

	return nil
}

// readCatalogue reads the intent catalogue at path, or the embedded default one when path is empty.
func readCatalogue(path string) (models.IntentCatalogue, error) {
	var (
		r    io.ReadCloser
		name string
		err  error
	)
	if path == "" {
		name = chatwidget.DefaultIntentsFile
		r, err = chatwidget.IntentsFS.Open(name)
	} else {
		name = path
		r, err = os.Open(path)
	}
	if err != nil {
		return models.IntentCatalogue{}, fmt.Errorf("failed to open intents: %w", err)
	}
	defer r.Close()

	cat, err := services.ReadIntents(r, name)
	if err != nil {
		return models.IntentCatalogue{}, fmt.Errorf("failed to read intents %s: %w", name, err)
	}
	return cat, nil
}
