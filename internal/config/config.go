package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/newspulse/internal/validation"
)

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Server ServerConfig `mapstructure:"server"`
	UI     UIConfig     `mapstructure:"ui"`
	Keys   KeyConfig    `mapstructure:"keys"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig points the dashboard at the search and history backends.
type APIConfig struct {
	SearchURL  string        `mapstructure:"search_url"`
	HistoryURL string        `mapstructure:"history_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// ServerConfig configures the local backend started by `newspulse serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	DBPath          string        `mapstructure:"db_path"`
	DBTimeout       time.Duration `mapstructure:"db_timeout"`
	IndexPath       string        `mapstructure:"index_path"`
	Feeds           []string      `mapstructure:"feeds"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	HostInterval    time.Duration `mapstructure:"host_interval"`
	ResultLimit     int           `mapstructure:"result_limit"`
	HistoryLimit    int           `mapstructure:"history_limit"`
}

type UIConfig struct {
	Colors        UIColors      `mapstructure:"colors"`
	Card          CardConfig    `mapstructure:"card"`
	ToastDuration time.Duration `mapstructure:"toast_duration"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type CardConfig struct {
	MinWidth     int `mapstructure:"min_width"`
	TitleLines   int `mapstructure:"title_lines"`
	ContentLines int `mapstructure:"content_lines"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit      string `mapstructure:"quit"`
	Search    string `mapstructure:"search"`
	History   string `mapstructure:"history"`
	Assistant string `mapstructure:"assistant"`
	Back      string `mapstructure:"back"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".newspulse")

	return &Config{
		API: APIConfig{
			SearchURL:  "https://news-aggregator-production-a8fd.up.railway.app",
			HistoryURL: "http://127.0.0.1:8787",
			Timeout:    30 * time.Second,
			UserAgent:  "newspulse/1.0 (https://github.com/pders01/newspulse)",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			DBPath:          filepath.Join(dataDir, "newspulse.db"),
			DBTimeout:       1 * time.Second,
			IndexPath:       filepath.Join(dataDir, "index.bleve"),
			Feeds:           []string{},
			RefreshInterval: 15 * time.Minute,
			HostInterval:    2 * time.Second,
			ResultLimit:     24,
			HistoryLimit:    50,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#2563EB",
				Secondary:  "#3B82F6",
				Accent:     "#93C5FD",
				Background: "#111827",
				Surface:    "#1F2937",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Card: CardConfig{
				MinWidth:     32,
				TitleLines:   2,
				ContentLines: 3,
			},
			ToastDuration: 4 * time.Second,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:      "q",
				Search:    "s",
				History:   "h",
				Assistant: "a",
				Back:      "esc",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "newspulse.log"),
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("api", cfg.API)
	v.SetDefault("server", cfg.Server)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)
	v.SetDefault("log", cfg.Log)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "newspulse")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NEWSPULSE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// Validate checks the endpoint URLs. Local addresses are allowed because the
// history backend normally runs on the same machine.
func (c *Config) Validate() error {
	v := validation.NewPermissiveEndpointValidator()

	search, err := v.ValidateAndNormalize(c.API.SearchURL)
	if err != nil {
		return fmt.Errorf("api.search_url: %w", err)
	}
	c.API.SearchURL = search

	history, err := v.ValidateAndNormalize(c.API.HistoryURL)
	if err != nil {
		return fmt.Errorf("api.history_url: %w", err)
	}
	c.API.HistoryURL = history

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	// Empty paths keep their meaning: no database, in-memory index, no log.
	paths := []struct {
		key  string
		path *string
		kind validation.PathKind
	}{
		{"server.db_path", &c.Server.DBPath, validation.PathFile},
		{"server.index_path", &c.Server.IndexPath, validation.PathDir},
		{"log.file", &c.Log.File, validation.PathFile},
	}
	for _, p := range paths {
		if *p.path == "" {
			continue
		}
		clean, err := validation.ValidateLocalPath(*p.path, p.kind)
		if err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
		*p.path = clean
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Server.DBPath = expandPath(cfg.Server.DBPath)
	cfg.Server.IndexPath = expandPath(cfg.Server.IndexPath)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// document mirrors Config with toml tags so durations are written as
// readable strings.
type document struct {
	API struct {
		SearchURL  string `toml:"search_url"`
		HistoryURL string `toml:"history_url"`
		Timeout    string `toml:"timeout"`
		UserAgent  string `toml:"user_agent"`
	} `toml:"api"`
	Server struct {
		Addr            string   `toml:"addr"`
		DBPath          string   `toml:"db_path"`
		DBTimeout       string   `toml:"db_timeout"`
		IndexPath       string   `toml:"index_path"`
		Feeds           []string `toml:"feeds"`
		RefreshInterval string   `toml:"refresh_interval"`
		HostInterval    string   `toml:"host_interval"`
		ResultLimit     int      `toml:"result_limit"`
		HistoryLimit    int      `toml:"history_limit"`
	} `toml:"server"`
	UI struct {
		Colors        map[string]string `toml:"colors"`
		Card          map[string]int    `toml:"card"`
		ToastDuration string            `toml:"toast_duration"`
	} `toml:"ui"`
	Keys struct {
		Modifier string            `toml:"modifier"`
		Bindings map[string]string `toml:"bindings"`
	} `toml:"keys"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

func toDocument(c *Config) document {
	var d document
	d.API.SearchURL = c.API.SearchURL
	d.API.HistoryURL = c.API.HistoryURL
	d.API.Timeout = c.API.Timeout.String()
	d.API.UserAgent = c.API.UserAgent

	d.Server.Addr = c.Server.Addr
	d.Server.DBPath = c.Server.DBPath
	d.Server.DBTimeout = c.Server.DBTimeout.String()
	d.Server.IndexPath = c.Server.IndexPath
	d.Server.Feeds = append([]string{}, c.Server.Feeds...)
	d.Server.RefreshInterval = c.Server.RefreshInterval.String()
	d.Server.HostInterval = c.Server.HostInterval.String()
	d.Server.ResultLimit = c.Server.ResultLimit
	d.Server.HistoryLimit = c.Server.HistoryLimit

	col := c.UI.Colors
	d.UI.Colors = map[string]string{
		"primary":    col.Primary,
		"secondary":  col.Secondary,
		"accent":     col.Accent,
		"background": col.Background,
		"surface":    col.Surface,
		"text":       col.Text,
		"muted":      col.Muted,
		"error":      col.Error,
		"success":    col.Success,
	}
	d.UI.Card = map[string]int{
		"min_width":     c.UI.Card.MinWidth,
		"title_lines":   c.UI.Card.TitleLines,
		"content_lines": c.UI.Card.ContentLines,
	}
	d.UI.ToastDuration = c.UI.ToastDuration.String()

	d.Keys.Modifier = c.Keys.Modifier
	b := c.Keys.Bindings
	d.Keys.Bindings = map[string]string{
		"quit":      b.Quit,
		"search":    b.Search,
		"history":   b.History,
		"assistant": b.Assistant,
		"back":      b.Back,
	}

	d.Log.Level = c.Log.Level
	d.Log.File = c.Log.File
	return d
}

func Save(config *Config, path string) error {
	data, err := toml.Marshal(toDocument(config))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
