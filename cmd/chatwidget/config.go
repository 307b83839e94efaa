package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type embedderConfig interface {
	embedder(logger zerolog.Logger) (services.Embedder, error)
}

// BaseEmbedderConfig contains the common fields for all embedder configurations.
type BaseEmbedderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type baseConfig struct {
	Port                string        `yaml:"port"`
	Endpoint            string        `yaml:"endpoint"`
	Title               string        `yaml:"title"`
	Markdown            bool          `yaml:"markdown"`
	DisplayDelay        time.Duration `yaml:"displayDelay"`
	RequestTimeout      time.Duration `yaml:"requestTimeout"`
	SessionIdleTimeout  time.Duration `yaml:"sessionIdleTimeout"`
	Intents             string        `yaml:"intents"`
	ConfidenceThreshold float64       `yaml:"confidenceThreshold"`
	Store               storeConfig   `yaml:"store"`
	Log                 logConfig     `yaml:"log"`
}

type config struct {
	baseConfig `yaml:",inline"`
	Embedder   embedderConfig `yaml:"embedder"`
}

type storeConfig struct {
	// Path of the bbolt file keeping session memory. Empty keeps sessions in memory.
	Path string `yaml:"path"`
}

type logConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type bowConfig struct {
	BaseEmbedderConfig `yaml:",inline"`
	Dimensions         int `yaml:"dimensions"`
}

type ollamaConfig struct {
	BaseEmbedderConfig `yaml:",inline"`
	Host               string `yaml:"host"`
}

type openaiConfig struct {
	BaseEmbedderConfig `yaml:",inline"`
	APIKey             string `yaml:"apiKey"`
	BaseURL            string `yaml:"baseURL"`
}

const (
	defaultPort = "5000"
	appDir      = "chatwidget"
)

func defaultConfig() config {
	return config{
		baseConfig: baseConfig{
			Title:               "Chat",
			DisplayDelay:        widget.DefaultDisplayDelay,
			ConfidenceThreshold: 0.45,
			Log:                 logConfig{Level: "info"},
		},
		Embedder: &bowConfig{BaseEmbedderConfig: BaseEmbedderConfig{Provider: "bow"}},
	}
}

func defaultConfigPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	return filepath.Join(cfgDir, appDir, "config.yaml"), nil
}

// loadConfig reads the config file at path over the defaults. When path is empty the default location
// is used and a missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return config{}, err
		}
		path = p
	}

	cfgFile, err := os.Open(path)
	switch {
	case err == nil:
		defer cfgFile.Close()
		if err := decodeConfig(cfgFile, &cfg); err != nil {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = os.Getenv("PORT")
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	return cfg, nil
}

func decodeConfig(r io.Reader, cfg *config) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if errors.Is(err, io.EOF) {
		// Empty file.
		return nil
	}
	return err
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	rawConfig := struct {
		baseConfig `yaml:",inline"`
		Embedder   map[string]any `yaml:"embedder"`
	}{baseConfig: c.baseConfig}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.baseConfig = rawConfig.baseConfig

	if rawConfig.Embedder == nil {
		if c.Embedder == nil {
			c.Embedder = &bowConfig{BaseEmbedderConfig: BaseEmbedderConfig{Provider: "bow"}}
		}
		return nil
	}

	provider, ok := rawConfig.Embedder["provider"].(string)
	if !ok {
		return fmt.Errorf("embedder provider is required")
	}

	embedderRawYAML, err := yaml.Marshal(rawConfig.Embedder)
	if err != nil {
		return err
	}

	var emb embedderConfig
	switch provider {
	case "bow":
		emb = &bowConfig{}
	case "ollama":
		emb = &ollamaConfig{}
	case "openai":
		emb = &openaiConfig{}
	default:
		return fmt.Errorf("unknown embedder provider: %s", provider)
	}

	if err := yaml.Unmarshal(embedderRawYAML, emb); err != nil {
		return err
	}

	c.Embedder = emb

	return nil
}

func (b bowConfig) embedder(zerolog.Logger) (services.Embedder, error) {
	return services.NewBagOfWords(b.Dimensions), nil
}

func (o ollamaConfig) embedder(zerolog.Logger) (services.Embedder, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	return services.NewOllama(host, o.Model)
}

func (o openaiConfig) embedder(logger zerolog.Logger) (services.Embedder, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	model := o.Model
	if model == "" {
		model = services.DefaultOpenAIEmbeddingModel
	}
	return services.NewOpenAI(apiKey, o.BaseURL, model, logger), nil
}

// newLogger builds the logger described by cfg. Output goes to the configured file, or to w when
// no file is set.
func newLogger(cfg logConfig, w io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("error opening log file: %w", err)
		}
		w, closer = f, f
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}
