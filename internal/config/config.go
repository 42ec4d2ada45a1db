package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything gsclient reads from its TOML file.
type Config struct {
	Endpoint       string
	HomeURL        string
	Client         string
	ClientRevision int
	Salt           string
	UserAgent      string

	StatePath string
	LogFile   string
	LogLevel  string

	RequestTimeout time.Duration
	TokenTTL       time.Duration
	WaitCeiling    time.Duration

	MetricsAddr string
}

const (
	defaultConfigPath     = "~/.config/gsclient/config.toml"
	defaultEndpoint       = "https://grooveshark.com/more.php"
	defaultHomeURL        = "http://grooveshark.com/"
	defaultClient         = "htmlshark"
	defaultClientRevision = 20130520
	defaultSalt           = "nuggetsOfBaller"
	defaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:40.0) Gecko/20100101 Firefox/40.0"
	defaultStatePath      = "~/.local/share/gsclient/session.toml"
	defaultLogFile        = "~/.local/share/gsclient/gsclient.log"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 20 * time.Second
	defaultTokenTTL       = 600 * time.Second
	defaultWaitCeiling    = 10 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Endpoint:       defaultEndpoint,
		HomeURL:        defaultHomeURL,
		Client:         defaultClient,
		ClientRevision: defaultClientRevision,
		Salt:           defaultSalt,
		UserAgent:      defaultUserAgent,
		StatePath:      mustExpand(defaultStatePath),
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		TokenTTL:       defaultTokenTTL,
		WaitCeiling:    defaultWaitCeiling,
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing and for every empty field.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Endpoint              string `toml:"endpoint"`
		HomeURL               string `toml:"home_url"`
		Client                string `toml:"client"`
		ClientRevision        int    `toml:"client_revision"`
		Salt                  string `toml:"salt"`
		UserAgent             string `toml:"user_agent"`
		StatePath             string `toml:"state_path"`
		LogFile               string `toml:"log_file"`
		LogLevel              string `toml:"log_level"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		TokenTTLSeconds       int    `toml:"token_ttl_seconds"`
		WaitCeilingSeconds    int    `toml:"wait_ceiling_seconds"`
		MetricsAddr           string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Endpoint, raw.Endpoint)
	setString(&cfg.HomeURL, raw.HomeURL)
	setString(&cfg.Client, raw.Client)
	setString(&cfg.Salt, raw.Salt)
	setString(&cfg.UserAgent, raw.UserAgent)
	setString(&cfg.LogLevel, strings.ToLower(raw.LogLevel))
	setString(&cfg.MetricsAddr, raw.MetricsAddr)
	if raw.ClientRevision > 0 {
		cfg.ClientRevision = raw.ClientRevision
	}
	if p := strings.TrimSpace(raw.StatePath); p != "" {
		cfg.StatePath = mustExpand(p)
	}
	if p := strings.TrimSpace(raw.LogFile); p != "" {
		cfg.LogFile = mustExpand(p)
	}
	setSeconds(&cfg.RequestTimeout, raw.RequestTimeoutSeconds)
	setSeconds(&cfg.TokenTTL, raw.TokenTTLSeconds)
	setSeconds(&cfg.WaitCeiling, raw.WaitCeilingSeconds)

	return cfg, nil
}

func setString(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, seconds int) {
	if seconds > 0 {
		*dst = time.Duration(seconds) * time.Second
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
