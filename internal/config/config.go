package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend selects the host toolkit.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendX11      Backend = "x11"
	BackendHeadless Backend = "headless"
)

// Mode selects which client identity new windows advertise.
type Mode string

const (
	ModeMobile  Mode = "mobile"
	ModeDesktop Mode = "desktop"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Point is a screen position in pixels.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Cascade offsets each new window from the previous one.
type Cascade struct {
	// Offset is added to both axes per step.
	Offset int `yaml:"offset"`
	// Steps is how many windows cascade before wrapping back to the origin.
	Steps int `yaml:"steps"`
}

// ClientIdentities are the user agent strings advertised in each mode.
type ClientIdentities struct {
	Mobile  string `yaml:"mobile"`
	Desktop string `yaml:"desktop"`
}

// AuditConfig configures the command audit log.
type AuditConfig struct {
	// Enabled turns audit logging on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls audit verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the audit file path (default: ~/.local/share/viewhost/audit.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
	// IncludeContent logs full scripts instead of a preview
	IncludeContent bool `yaml:"include_content,omitempty"`
	// PreviewLength is the number of characters of a script to log (default: 50)
	PreviewLength int `yaml:"preview_length,omitempty"`
}

type Config struct {
	LogLevel                 string           `yaml:"log_level"`
	Backend                  Backend          `yaml:"backend"`
	Display                  string           `yaml:"display,omitempty"`
	PlaceholderURL           string           `yaml:"placeholder_url"`
	DefaultURL               string           `yaml:"default_url,omitempty"`
	Devtools                 bool             `yaml:"devtools"`
	Viewport                 Size             `yaml:"viewport"`
	ControlStripHeight       int              `yaml:"control_strip_height"`
	MenuWidth                int              `yaml:"menu_width"`
	WindowOrigin             Point            `yaml:"window_origin"`
	Cascade                  Cascade          `yaml:"cascade"`
	ClientIdentities         ClientIdentities `yaml:"client_identities"`
	DefaultMode              Mode             `yaml:"default_mode"`
	AlwaysOnTop              bool             `yaml:"always_on_top"`
	NewWindowHotkey          string           `yaml:"new_window_hotkey,omitempty"`
	ReconcileIntervalSeconds int              `yaml:"reconcile_interval_seconds"`
	WatchConfig              bool             `yaml:"watch_config"`
	Audit                    AuditConfig      `yaml:"audit,omitempty"`
}

const (
	DefaultMobileIdentity  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	DefaultDesktopIdentity = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		Backend:            BackendAuto,
		PlaceholderURL:     "about:blank",
		Viewport:           Size{Width: 375, Height: 617},
		ControlStripHeight: 50,
		MenuWidth:          350,
		WindowOrigin:       Point{X: 100, Y: 100},
		Cascade:            Cascade{Offset: 30, Steps: 10},
		ClientIdentities: ClientIdentities{
			Mobile:  DefaultMobileIdentity,
			Desktop: DefaultDesktopIdentity,
		},
		DefaultMode:              ModeMobile,
		NewWindowHotkey:          "Mod4-Mod1-w", // Super+Alt+W for "window"
		ReconcileIntervalSeconds: 2,
		WatchConfig:              true,
	}
}

// Identity returns the client identity for mode.
func (c *Config) Identity(mode Mode) string {
	if mode == ModeDesktop {
		return c.ClientIdentities.Desktop
	}
	return c.ClientIdentities.Mobile
}

// WindowHeight is the host window height: viewport plus control strip.
func (c *Config) WindowHeight() int {
	return c.Viewport.Height + c.ControlStripHeight
}

// GetAuditConfig returns the audit configuration with defaults applied.
func (c *Config) GetAuditConfig() AuditConfig {
	if c == nil {
		return AuditConfig{}
	}
	cfg := c.Audit
	if cfg.File == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.Getenv("HOME")
		}
		if home == "" {
			home = "."
		}
		cfg.File = filepath.Join(home, ".local/share/viewhost/audit.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.PreviewLength == 0 {
		cfg.PreviewLength = 50
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// Save writes the configuration to path, or to the standard location when
// path is empty. Comments in an existing file are not preserved.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ValidationError names the offending field and, when known, where it was
// set.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.Backend {
	case BackendAuto, BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, headless")}
	}
	if strings.TrimSpace(c.PlaceholderURL) == "" {
		return &ValidationError{Path: "placeholder_url", Err: fmt.Errorf("placeholder_url is required")}
	}
	if !strings.Contains(c.PlaceholderURL, ":") {
		return &ValidationError{Path: "placeholder_url", Err: fmt.Errorf("placeholder_url %q is not an absolute URL", c.PlaceholderURL)}
	}
	if c.DefaultURL != "" && !strings.Contains(c.DefaultURL, ":") {
		return &ValidationError{Path: "default_url", Err: fmt.Errorf("default_url %q is not an absolute URL", c.DefaultURL)}
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return &ValidationError{Path: "viewport", Err: fmt.Errorf("viewport width and height must be positive")}
	}
	if c.ControlStripHeight < 0 {
		return &ValidationError{Path: "control_strip_height", Err: fmt.Errorf("control_strip_height must be >= 0")}
	}
	if c.MenuWidth < 0 {
		return &ValidationError{Path: "menu_width", Err: fmt.Errorf("menu_width must be >= 0")}
	}
	if c.Cascade.Offset < 0 {
		return &ValidationError{Path: "cascade.offset", Err: fmt.Errorf("offset must be >= 0")}
	}
	if c.Cascade.Steps < 1 {
		return &ValidationError{Path: "cascade.steps", Err: fmt.Errorf("steps must be >= 1")}
	}
	if strings.TrimSpace(c.ClientIdentities.Mobile) == "" {
		return &ValidationError{Path: "client_identities.mobile", Err: fmt.Errorf("mobile identity must not be empty")}
	}
	if strings.TrimSpace(c.ClientIdentities.Desktop) == "" {
		return &ValidationError{Path: "client_identities.desktop", Err: fmt.Errorf("desktop identity must not be empty")}
	}
	switch c.DefaultMode {
	case ModeMobile, ModeDesktop:
	default:
		return &ValidationError{Path: "default_mode", Err: fmt.Errorf("default_mode must be one of: mobile, desktop")}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	if c.Audit.MaxSizeMB < 0 {
		return &ValidationError{Path: "audit.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Audit.MaxFiles < 0 {
		return &ValidationError{Path: "audit.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	if c.Audit.PreviewLength < 0 {
		return &ValidationError{Path: "audit.preview_length", Err: fmt.Errorf("preview_length must be >= 0")}
	}
	return nil
}
