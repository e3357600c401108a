package main

import (
	"path/filepath"
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want cliOptions
	}{
		{name: "no flags", args: nil, want: cliOptions{}},
		{
			name: "config and strict exit",
			args: []string{"-config", "/etc/udpfeed.yml", "-strict-exit"},
			want: cliOptions{configPath: "/etc/udpfeed.yml", strictExit: true},
		},
		{
			name: "version and print config",
			args: []string{"-version", "-print-config"},
			want: cliOptions{showVersion: true, printConfig: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseFlags(tt.args)
			if err != nil {
				t.Fatalf("parseFlags(%q) returned error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Fatalf("parseFlags(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	t.Parallel()

	if _, err := parseFlags([]string{"-no-such-flag"}); err == nil {
		t.Fatal("parseFlags accepted an unknown flag")
	}
}

func TestStrictExitFlagOverridesConfig(t *testing.T) {
	resetUDPFeedEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.StrictExit {
		t.Fatal("strict-exit should default to false")
	}

	opts, err := parseFlags([]string{"-strict-exit"})
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}
	cfg = opts.apply(cfg)
	if !cfg.StrictExit {
		t.Fatal("StrictExit = false after -strict-exit, want true")
	}

	missing := quietConfig(t, filepath.Join(t.TempDir(), "missing.csv"))
	missing.StrictExit = cfg.StrictExit
	code, err := runStream(missing)
	if err != nil {
		t.Fatalf("runStream returned error: %v", err)
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 with -strict-exit", code)
	}
}

func TestFlagsKeepConfiguredStrictExit(t *testing.T) {
	t.Parallel()

	cfg := appConfig{StrictExit: true}
	if got := (cliOptions{}).apply(cfg); !got.StrictExit {
		t.Fatal("apply without -strict-exit cleared a configured StrictExit")
	}
}
