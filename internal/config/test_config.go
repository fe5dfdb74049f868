package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			SearchURL:  "http://127.0.0.1:0",
			HistoryURL: "http://127.0.0.1:0",
			Timeout:    5 * time.Second,
			UserAgent:  "newspulse-test/1.0",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:0",
			DBTimeout:       1 * time.Second,
			RefreshInterval: 1 * time.Minute,
			ResultLimit:     10,
			HistoryLimit:    20,
		},
		UI:   defaultConfig().UI,
		Keys: defaultConfig().Keys,
		Log:  LogConfig{Level: "off"},
	}
}
