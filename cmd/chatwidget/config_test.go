package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, cfg config)
		wantErr string
	}{
		{
			name: "Empty file keeps defaults",
			yaml: "",
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, "Chat", cfg.Title)
				assert.Equal(t, widget.DefaultDisplayDelay, cfg.DisplayDelay)
				assert.Zero(t, cfg.RequestTimeout)
				assert.InDelta(t, 0.45, cfg.ConfidenceThreshold, 1e-9)
				assert.IsType(t, &bowConfig{}, cfg.Embedder)
			},
		},
		{
			name: "Widget settings",
			yaml: `
port: "8080"
endpoint: http://backend:5000
title: Support
markdown: true
displayDelay: 1s
requestTimeout: 30s
store:
  path: /tmp/sessions.db
log:
  level: debug
  file: /tmp/widget.log
`,
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, "8080", cfg.Port)
				assert.Equal(t, "http://backend:5000", cfg.Endpoint)
				assert.Equal(t, "Support", cfg.Title)
				assert.True(t, cfg.Markdown)
				assert.Equal(t, time.Second, cfg.DisplayDelay)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
				assert.Equal(t, "/tmp/sessions.db", cfg.Store.Path)
				assert.Equal(t, logConfig{Level: "debug", File: "/tmp/widget.log"}, cfg.Log)
				// Untouched fields keep their defaults.
				assert.InDelta(t, 0.45, cfg.ConfidenceThreshold, 1e-9)
			},
		},
		{
			name: "Zero display delay",
			yaml: "displayDelay: 0s\n",
			check: func(t *testing.T, cfg config) {
				assert.Zero(t, cfg.DisplayDelay)
			},
		},
		{
			name: "Bag of words embedder",
			yaml: "embedder:\n  provider: bow\n  dimensions: 4096\n",
			check: func(t *testing.T, cfg config) {
				require.IsType(t, &bowConfig{}, cfg.Embedder)
				assert.Equal(t, 4096, cfg.Embedder.(*bowConfig).Dimensions)
			},
		},
		{
			name: "Ollama embedder",
			yaml: "embedder:\n  provider: ollama\n  model: nomic-embed-text\n  host: http://ollama:11434\n",
			check: func(t *testing.T, cfg config) {
				require.IsType(t, &ollamaConfig{}, cfg.Embedder)
				o := cfg.Embedder.(*ollamaConfig)
				assert.Equal(t, "nomic-embed-text", o.Model)
				assert.Equal(t, "http://ollama:11434", o.Host)
			},
		},
		{
			name: "OpenAI embedder",
			yaml: "embedder:\n  provider: openai\n  apiKey: sk-test\n  baseURL: http://proxy/v1\n",
			check: func(t *testing.T, cfg config) {
				require.IsType(t, &openaiConfig{}, cfg.Embedder)
				o := cfg.Embedder.(*openaiConfig)
				assert.Equal(t, "sk-test", o.APIKey)
				assert.Equal(t, "http://proxy/v1", o.BaseURL)
			},
		},
		{
			name:    "Missing provider",
			yaml:    "embedder:\n  model: x\n",
			wantErr: "embedder provider is required",
		},
		{
			name:    "Unknown provider",
			yaml:    "embedder:\n  provider: word2vec\n",
			wantErr: "unknown embedder provider: word2vec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			err := decodeConfig(strings.NewReader(tt.yaml), &cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("Explicit file", func(t *testing.T) {
		t.Setenv("PORT", "")
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("title: Help desk\n"), 0o600))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "Help desk", cfg.Title)
		assert.Equal(t, defaultPort, cfg.Port)
	})

	t.Run("Explicit missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Missing default file", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)
		t.Setenv("HOME", dir)
		t.Setenv("PORT", "")

		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "Chat", cfg.Title)
		assert.Equal(t, defaultPort, cfg.Port)
	})

	t.Run("Port from environment", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("title: x\n"), 0o600))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
	})

	t.Run("Port from file wins", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\n"), 0o600))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "7000", cfg.Port)
	})
}

func TestEmbedderConfigs(t *testing.T) {
	logger := zerolog.Nop()

	emb, err := bowConfig{Dimensions: 64}.embedder(logger)
	require.NoError(t, err)
	assert.Equal(t, services.NewBagOfWords(64), emb)

	_, err = ollamaConfig{}.embedder(logger)
	assert.EqualError(t, err, "model is required")

	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	emb, err = ollamaConfig{BaseEmbedderConfig: BaseEmbedderConfig{Model: "nomic-embed-text"}}.embedder(logger)
	require.NoError(t, err)
	assert.IsType(t, services.Ollama{}, emb)

	t.Setenv("OPENAI_API_KEY", "")
	_, err = openaiConfig{}.embedder(logger)
	assert.EqualError(t, err, "apiKey is required")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	emb, err = openaiConfig{}.embedder(logger)
	require.NoError(t, err)
	assert.IsType(t, services.OpenAI{}, emb)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(logConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, _, err = newLogger(logConfig{Level: "loud"}, &buf)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "widget.log")
	logger, closer, err = newLogger(logConfig{File: path}, &buf)
	require.NoError(t, err)
	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "chat"}, names)

	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serveCmd.Flags().Lookup("port"))
	assert.NotNil(t, serveCmd.Flags().Lookup("endpoint"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestReadCatalogue(t *testing.T) {
	cat, err := readCatalogue("")
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Intents)

	path := filepath.Join(t.TempDir(), "intents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
intents:
  - tag: greeting
    patterns: [hi, hello]
    responses: [Hello!]
`), 0o600))

	cat, err = readCatalogue(path)
	require.NoError(t, err)
	require.Len(t, cat.Intents, 1)
	assert.Equal(t, "greeting", cat.Intents[0].Tag)
}
