package main

import (
	"fmt"
	"io"

	"github.com/MegaGrindStone/chat-widget/internal/predict"
	"github.com/MegaGrindStone/chat-widget/internal/view/term"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/spf13/cobra"
)

func newChatCmd(cfgPath *string) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the widget in the terminal against a prediction endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Endpoint = endpoint
			}
			if cfg.Endpoint == "" {
				cfg.Endpoint = "http://localhost:" + cfg.Port
			}

			// The screen belongs to the program, so logs only go to a file.
			logger, closer, err := newLogger(cfg.Log, io.Discard)
			if err != nil {
				return err
			}
			defer closer.Close()

			ui, err := term.New(cmd.Context(), predict.NewClient(cfg.Endpoint, nil, logger), term.Options{
				Title:    cfg.Title,
				Markdown: cfg.Markdown,
				WidgetOptions: []widget.Option{
					widget.WithDisplayDelay(cfg.DisplayDelay),
					widget.WithRequestTimeout(cfg.RequestTimeout),
					widget.WithLogger(logger),
				},
			})
			if err != nil {
				return fmt.Errorf("failed to create terminal ui: %w", err)
			}

			logger.Info().Str("endpoint", cfg.Endpoint).Msg("Terminal widget starting")
			return ui.Run()
		},
	}

	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "",
		"base URL of the prediction endpoint (default http://localhost:$PORT)")

	return cmd
}
