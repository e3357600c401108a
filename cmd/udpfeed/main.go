package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// cliOptions holds the command-line flags. Flags that mirror config keys
// can only switch a setting on.
type cliOptions struct {
	configPath  string
	showVersion bool
	printConfig bool
	strictExit  bool
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions

	fs := flag.NewFlagSet("udpfeed", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.config/udpfeed/config.yml)")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information")
	fs.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration as YAML and exit")
	fs.BoolVar(&opts.strictExit, "strict-exit", false, "exit 1 when the run ends with a handled failure")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// apply layers the flags over the loaded config.
func (o cliOptions) apply(cfg appConfig) appConfig {
	if o.strictExit {
		cfg.StrictExit = true
	}
	return cfg
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("udpfeed - CSV to UDP feed replayer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = opts.apply(cfg)

	if opts.printConfig {
		if err := writeConfigYAML(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := runStream(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("UDPFEED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("source", defaultSourcePath)
	v.SetDefault("mirror", defaultMirrorPath)
	v.SetDefault("audit-log", defaultAuditPath)
	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("min-delay", defaultMinDelay)
	v.SetDefault("max-delay", defaultMaxDelay)
	v.SetDefault("strict-exit", false)
	v.SetDefault("quiet", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "udpfeed", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return cfg, errors.New("host is required")
	}
	if cfg.MinDelay < 0 {
		return cfg, fmt.Errorf("invalid min-delay: %s", cfg.MinDelay)
	}
	if cfg.MaxDelay <= 0 {
		return cfg, fmt.Errorf("invalid max-delay: %s must be positive", cfg.MaxDelay)
	}
	if cfg.MaxDelay < cfg.MinDelay {
		return cfg, fmt.Errorf("invalid max-delay: %s is below min-delay %s", cfg.MaxDelay, cfg.MinDelay)
	}

	for _, p := range []struct {
		key string
		val *string
	}{
		{"source", &cfg.Source},
		{"mirror", &cfg.Mirror},
		{"audit-log", &cfg.AuditLog},
	} {
		if strings.TrimSpace(*p.val) == "" {
			return cfg, fmt.Errorf("%s path is required", p.key)
		}
		// Expand ~ in paths
		if strings.HasPrefix(*p.val, "~/") {
			*p.val = filepath.Join(home, (*p.val)[2:])
		}
	}

	return cfg, nil
}
