package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the relay's runtime configuration.
type Config struct {
	Env         string   `yaml:"env"`
	Port        string   `yaml:"port"`
	LogLevel    string   `yaml:"log_level"`
	CORSAllow   []string `yaml:"cors_allow"`
	SendBuffer  int      `yaml:"send_buffer"`  // outbound frames queued per connection
	EventBuffer int      `yaml:"event_buffer"` // inbound events queued for the hub loop
}

func defaults() Config {
	return Config{
		Env:         "dev",
		Port:        "8080",
		LogLevel:    "info",
		CORSAllow:   []string{"*"},
		SendBuffer:  256,
		EventBuffer: 1024,
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if any), then a local .env file, then the environment.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	// Load local .env (dev only); a missing file is fine
	_ = godotenv.Load()

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SendBuffer = getEnvInt("SEND_BUFFER", cfg.SendBuffer)
	cfg.EventBuffer = getEnvInt("EVENT_BUFFER", cfg.EventBuffer)
	if v := os.Getenv("CORS_ALLOW"); v != "" {
		cfg.CORSAllow = splitCSV(v)
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", cfg.Port, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses a positive int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
