package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type RuntimeConfig struct {
	CdpURL           string
	Headless         bool
	ProfileDir       string
	ChromeBinary     string
	ChromeExtraFlags string
	LogLevel         string
	WaitTimeout      time.Duration
	ActionTimeout    time.Duration
	NavigateTimeout  time.Duration
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envBoolOr(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envDurationOr accepts Go durations ("750ms", "2s") or whole seconds.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n := envIntOr(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *RuntimeConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type FileConfig struct {
	CdpURL      string `json:"cdpUrl,omitempty"`
	ProfileDir  string `json:"profileDir"`
	Headless    *bool  `json:"headless,omitempty"`
	LogLevel    string `json:"logLevel,omitempty"`
	WaitMs      int    `json:"waitMs,omitempty"`
	TimeoutSec  int    `json:"timeoutSec,omitempty"`
	NavigateSec int    `json:"navigateSec,omitempty"`
}

// ConfigPath is where Load looks for the JSON file.
func ConfigPath() string {
	return envOr("DOMINO_CONFIG", filepath.Join(homeDir(), ".domino", "config.json"))
}

// Load reads the environment, then fills anything the environment leaves
// unset from the config file.
func Load() *RuntimeConfig {
	stateDir := filepath.Join(homeDir(), ".domino")
	cfg := &RuntimeConfig{
		CdpURL:           os.Getenv("CDP_URL"),
		Headless:         envBoolOr("DOMINO_HEADLESS", true),
		ProfileDir:       envOr("DOMINO_PROFILE", filepath.Join(stateDir, "chrome-profile")),
		ChromeBinary:     os.Getenv("CHROME_BINARY"),
		ChromeExtraFlags: os.Getenv("CHROME_FLAGS"),
		LogLevel:         envOr("DOMINO_LOG_LEVEL", "info"),
		WaitTimeout:      envDurationOr("DOMINO_WAIT_TIMEOUT", 2*time.Second),
		ActionTimeout:    envDurationOr("DOMINO_ACTION_TIMEOUT", 15*time.Second),
		NavigateTimeout:  envDurationOr("DOMINO_NAV_TIMEOUT", 30*time.Second),
	}

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return cfg
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring malformed config file", "path", ConfigPath(), "err", err)
		return cfg
	}

	if fc.CdpURL != "" && os.Getenv("CDP_URL") == "" {
		cfg.CdpURL = fc.CdpURL
	}
	if fc.ProfileDir != "" && os.Getenv("DOMINO_PROFILE") == "" {
		cfg.ProfileDir = fc.ProfileDir
	}
	if fc.Headless != nil && os.Getenv("DOMINO_HEADLESS") == "" {
		cfg.Headless = *fc.Headless
	}
	if fc.LogLevel != "" && os.Getenv("DOMINO_LOG_LEVEL") == "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.WaitMs > 0 && os.Getenv("DOMINO_WAIT_TIMEOUT") == "" {
		cfg.WaitTimeout = time.Duration(fc.WaitMs) * time.Millisecond
	}
	if fc.TimeoutSec > 0 && os.Getenv("DOMINO_ACTION_TIMEOUT") == "" {
		cfg.ActionTimeout = time.Duration(fc.TimeoutSec) * time.Second
	}
	if fc.NavigateSec > 0 && os.Getenv("DOMINO_NAV_TIMEOUT") == "" {
		cfg.NavigateTimeout = time.Duration(fc.NavigateSec) * time.Second
	}

	return cfg
}

func DefaultFileConfig() FileConfig {
	h := true
	return FileConfig{
		ProfileDir:  filepath.Join(homeDir(), ".domino", "chrome-profile"),
		Headless:    &h,
		LogLevel:    "info",
		WaitMs:      2000,
		TimeoutSec:  15,
		NavigateSec: 30,
	}
}

// HandleConfigCommand runs "domino config init|show". in answers the
// overwrite prompt of init.
func HandleConfigCommand(cfg *RuntimeConfig, args []string, in io.Reader, out io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(out, "Usage: domino config <command>")
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  init    - Create default config file")
		fmt.Fprintln(out, "  show    - Show current configuration")
		return nil
	}

	switch args[0] {
	case "init":
		configPath := ConfigPath()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Config file already exists at %s\n", configPath)
			fmt.Fprint(out, "Overwrite? (y/N): ")
			var response string
			_, _ = fmt.Fscanln(in, &response)
			if response != "y" && response != "Y" {
				return nil
			}
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}

		data, _ := json.MarshalIndent(DefaultFileConfig(), "", "  ")
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Config file created at %s\n", configPath)

	case "show":
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  CDP URL:    %s\n", cfg.CdpURL)
		fmt.Fprintf(out, "  Profile:    %s\n", cfg.ProfileDir)
		fmt.Fprintf(out, "  Headless:   %v\n", cfg.Headless)
		fmt.Fprintf(out, "  Chrome:     %s\n", cfg.ChromeBinary)
		fmt.Fprintf(out, "  Log level:  %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "  Timeouts:   wait=%v action=%v navigate=%v\n", cfg.WaitTimeout, cfg.ActionTimeout, cfg.NavigateTimeout)

	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
	return nil
}
