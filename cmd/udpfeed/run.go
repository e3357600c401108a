package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/udpfeed/internal/audit"
	"github.com/tinytelemetry/udpfeed/internal/streamer"
	"golang.org/x/sync/errgroup"
)

// runStream performs one replay of cfg.Source and returns the process exit
// code. Handled run failures are already in the audit log and exit 0 unless
// strict-exit is set; only setup failures are returned as errors.
func runStream(cfg appConfig) (int, error) {
	configureRuntimeLogger(cfg.Quiet)

	auditLog, err := audit.Open(cfg.AuditLog, audit.Options{})
	if err != nil {
		return 1, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		if err := auditLog.Close(); err != nil {
			log.Printf("udpfeed: closing audit log: %v", err)
		}
	}()

	s, err := streamer.New(streamer.Config{
		SourcePath:  cfg.Source,
		MirrorPath:  cfg.Mirror,
		Destination: cfg.destination(),
		MinDelay:    cfg.MinDelay,
		MaxDelay:    cfg.MaxDelay,
	}, streamer.Options{
		Audit: auditLog.Logger(),
	})
	if err != nil {
		return 1, err
	}

	if !cfg.Quiet {
		printStartupBanner(os.Stdout, cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Use errgroup to tie the run and the signal watcher together.
	g, gctx := errgroup.WithContext(ctx)

	var runErr error
	g.Go(func() error {
		defer cancel()
		runErr = s.Run(gctx)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Printf("udpfeed: received %s, stopping after the current row", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("udpfeed: errgroup exited with error: %v", err)
	}

	stats := s.Stats()
	if runErr != nil {
		log.Printf("udpfeed: run failed after %d rows: %v", stats.RowsSent, runErr)
	} else {
		log.Printf("udpfeed: sent %d rows to %s", stats.RowsSent, cfg.destination())
	}

	return exitCode(runErr, cfg.StrictExit), nil
}

// exitCode is 0 for every finished run unless strict is set, in which case a
// failed run exits 1.
func exitCode(runErr error, strict bool) int {
	if runErr != nil && strict {
		return 1
	}
	return 0
}

func configureRuntimeLogger(quiet bool) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if quiet {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(os.Stderr)
}

func printStartupBanner(w io.Writer, cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("udpfeed")+" "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Feed"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Source         %s", check, dim.Render(shortenPath(cfg.Source))))
	lines = append(lines, fmt.Sprintf("    %s  UDP Target     %s", check, cyan.Render(cfg.destination().Addr())))
	lines = append(lines, fmt.Sprintf("    %s  Pacing         %s", check, dim.Render(fmt.Sprintf("%s to %s per row", cfg.MinDelay, cfg.MaxDelay))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Output"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Mirror         %s", check, dim.Render(shortenPath(cfg.Mirror))))
	lines = append(lines, fmt.Sprintf("    %s  Audit Log      %s", check, dim.Render(shortenPath(cfg.AuditLog))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}
	if cfg.StrictExit {
		lines = append(lines, fmt.Sprintf("    %s  Strict Exit    %s", check, dim.Render("enabled")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Strict Exit    %s", dot, dim.Render("disabled")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
