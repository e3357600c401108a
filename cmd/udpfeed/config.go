package main

import (
	"io"
	"time"

	"github.com/tinytelemetry/udpfeed/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost       = model.DefaultHost
	defaultPort       = model.DefaultPort
	defaultSourcePath = model.DefaultSourcePath
	defaultMirrorPath = model.DefaultMirrorPath
	defaultAuditPath  = model.DefaultAuditPath
	defaultMinDelay   = model.DefaultMinDelay
	defaultMaxDelay   = model.DefaultMaxDelay
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Source     string        `mapstructure:"source"`
	Mirror     string        `mapstructure:"mirror"`
	AuditLog   string        `mapstructure:"audit-log"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	MinDelay   time.Duration `mapstructure:"min-delay"`
	MaxDelay   time.Duration `mapstructure:"max-delay"`
	StrictExit bool          `mapstructure:"strict-exit"`
	Quiet      bool          `mapstructure:"quiet"`
	ConfigPath string        `mapstructure:"-"` // not from config file
}

func (c appConfig) destination() model.Destination {
	return model.Destination{Host: c.Host, Port: c.Port}
}

// printedConfig mirrors appConfig with durations rendered the way they are
// written in the config file.
type printedConfig struct {
	Source     string `yaml:"source"`
	Mirror     string `yaml:"mirror"`
	AuditLog   string `yaml:"audit-log"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MinDelay   string `yaml:"min-delay"`
	MaxDelay   string `yaml:"max-delay"`
	StrictExit bool   `yaml:"strict-exit"`
	Quiet      bool   `yaml:"quiet"`
}

// writeConfigYAML dumps the effective configuration in config-file form.
func writeConfigYAML(w io.Writer, cfg appConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(printedConfig{
		Source:     cfg.Source,
		Mirror:     cfg.Mirror,
		AuditLog:   cfg.AuditLog,
		Host:       cfg.Host,
		Port:       cfg.Port,
		MinDelay:   cfg.MinDelay.String(),
		MaxDelay:   cfg.MaxDelay.String(),
		StrictExit: cfg.StrictExit,
		Quiet:      cfg.Quiet,
	}); err != nil {
		return err
	}
	return enc.Close()
}
