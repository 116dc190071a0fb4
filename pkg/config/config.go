// Package config loads vty settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/psaab/vty/pkg/logging"
	"github.com/psaab/vty/pkg/parser"
)

// Config is the full settings file.
type Config struct {
	Prompt        string         `yaml:"prompt"`
	HistoryFile   string         `yaml:"history_file"`
	HelpHeader    string         `yaml:"help_header"`
	AppendDefault bool           `yaml:"append_default"`
	AppendGroup   bool           `yaml:"append_group"`
	LogLevel      string         `yaml:"log_level"`
	MetricsAddr   string         `yaml:"metrics_addr"`
	GRPCAddr      string         `yaml:"grpc_addr"`
	Syslog        []SyslogServer `yaml:"syslog"`
}

// SyslogServer is one remote syslog destination.
type SyslogServer struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Protocol   string   `yaml:"protocol"`
	Severity   string   `yaml:"severity"`
	Facility   string   `yaml:"facility"`
	Categories []string `yaml:"categories"`
}

// Defaults.
const (
	DefaultPrompt     = "{user}@{host}> "
	DefaultHelpHeader = "Possible completions:"
	DefaultGRPCAddr   = "127.0.0.1:50051"
	DefaultSyslogPort = 514
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Prompt:        DefaultPrompt,
		HistoryFile:   defaultHistoryFile(),
		HelpHeader:    DefaultHelpHeader,
		AppendDefault: true,
		LogLevel:      "info",
		GRPCAddr:      DefaultGRPCAddr,
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "/tmp/vty_history"
	}
	return filepath.Join(home, ".vty_history")
}

// Load reads settings from path. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML settings on top of Default and validates them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i := range c.Syslog {
		s := &c.Syslog[i]
		if s.Host == "" {
			errs = append(errs, fmt.Errorf("syslog[%d]: host is required", i))
		}
		if s.Port == 0 {
			s.Port = DefaultSyslogPort
		}
		if s.Port < 0 || s.Port > 65535 {
			errs = append(errs, fmt.Errorf("syslog[%d]: port %d out of range", i, s.Port))
		}
		switch s.Protocol {
		case "", "udp", "tcp":
		default:
			errs = append(errs, fmt.Errorf("syslog[%d]: protocol %q not supported", i, s.Protocol))
		}
		switch s.Severity {
		case "", "error", "warning", "info":
		default:
			errs = append(errs, fmt.Errorf("syslog[%d]: unknown severity %q", i, s.Severity))
		}
	}
	return errors.Join(errs...)
}

// ParseLevel converts a log level name to an slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// ExpandPrompt substitutes {user} and {host} in the prompt template.
func (c *Config) ExpandPrompt(user, host string) string {
	r := strings.NewReplacer("{user}", user, "{host}", host)
	return r.Replace(c.Prompt)
}

// ParserConfig returns the completion help settings.
func (c *Config) ParserConfig() parser.Config {
	return parser.Config{
		AppendDefault: c.AppendDefault,
		AppendGroup:   c.AppendGroup,
	}
}

// LoggingOptions returns the options for logging.Setup.
func (c *Config) LoggingOptions() logging.Options {
	level, _ := ParseLevel(c.LogLevel)
	opts := logging.Options{Level: level}
	for _, s := range c.Syslog {
		opts.Servers = append(opts.Servers, logging.Server{
			Host:       s.Host,
			Port:       s.Port,
			Protocol:   s.Protocol,
			Severity:   s.Severity,
			Facility:   s.Facility,
			Categories: s.Categories,
		})
	}
	return opts
}
