// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Command autosuggested runs the autocomplete suggestion engine: a sharded,
multi-signal-ranked prefix index fed by a streaming aggregation pipeline,
served over a msgpack debug transport on stdin/stdout.

# Snapshot

On startup the engine builds its initial generation from a snapshot file: a
newline-delimited list of "phrase\tcount\tunix_seconds" rows. The same file
doubles as the source for admin-triggered rebuilds.

# Config

Runtime configuration is managed via a config.toml file (shard count,
top-k per node, cache sizing, ranking weights, ...). A default configuration
is created automatically if one does not exist.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/typeahead/engine/internal/admin"
	"github.com/typeahead/engine/internal/builder"
	"github.com/typeahead/engine/internal/config"
	"github.com/typeahead/engine/internal/ipc"
	"github.com/typeahead/engine/internal/metrics"
	"github.com/typeahead/engine/internal/snapshot"
	"github.com/typeahead/engine/pkg/engine"
)

const (
	Version = "0.1.0-beta"
	AppName = "autosuggested"
	gh      = "https://github.com/typeahead/engine"
)

func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
	}()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigHandler(cancel)

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "config.toml", "Path to config.toml file")
	snapshotFile := flag.String("snapshot", "", "Path to snapshot file (phrase\\tcount\\tunix_seconds per line)")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	source := snapshotSource(*snapshotFile)
	sink := metrics.NoopSink{}

	eng, err := engine.New(cfg, source, sink)
	if err != nil {
		log.Fatalf("failed to assemble engine: %v", err)
	}

	if entries, err := source(ctx); err == nil && len(entries) > 0 {
		if err := eng.Rebuild(ctx, entries); err != nil {
			log.Fatalf("initial build failed: %v", err)
		}
	} else if err != nil {
		log.Warnf("no snapshot loaded: %v", err)
	}

	eng.Start(ctx)
	defer eng.Stop()

	showStartupInfo()

	srv := ipc.NewServer(engine.QueryAdapter{Engine: eng}, eng.Admin())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("ipc server error: %v", err)
	}
}

// snapshotSource builds an admin.SnapshotSource reading a tab-delimited
// "phrase\tcount\tunix_seconds" file, or an empty snapshot when path is "".
func snapshotSource(path string) admin.SnapshotSource {
	return func(ctx context.Context) ([]builder.Entry, error) {
		if path == "" {
			return nil, nil
		}
		return snapshot.Load(path)
	}
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[autosuggested] Sharded prefix suggestions, ranked and trending-aware!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use --help to see available options")
	logger.Print("")
	logger.Print("Find out more at", "gh", gh)
}

func showStartupInfo() {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("================")
	println(" autosuggested ")
	println("================")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("status: ready")
	println("================")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
