// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command adminctl is the operator CLI for the autosuggest engine's admin
// control plane: rebuild, clear-cache, stats, and trending-top. It loads the
// same config and snapshot file as autosuggested and drives an in-process
// admin.ControlPlane directly, rather than dialing a running server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/typeahead/engine/internal/admin"
	"github.com/typeahead/engine/internal/builder"
	"github.com/typeahead/engine/internal/config"
	"github.com/typeahead/engine/internal/snapshot"
	"github.com/typeahead/engine/pkg/engine"
)

var (
	configFile   string
	snapshotFile string
)

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Operate the autosuggest engine's admin control plane",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.toml", "Path to config.toml file")
	rootCmd.PersistentFlags().StringVar(&snapshotFile, "snapshot", "", "Path to snapshot file for rebuild")

	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(trendingTopCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildControlPlane assembles a one-shot Engine sharing the config and
// snapshot source, and returns its admin surface.
func buildControlPlane() (*admin.ControlPlane, error) {
	cfg, err := config.InitConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	source := admin.SnapshotSource(func(ctx context.Context) ([]builder.Entry, error) {
		if snapshotFile == "" {
			return nil, nil
		}
		return snapshot.Load(snapshotFile)
	})

	eng, err := engine.New(cfg, source, nil)
	if err != nil {
		return nil, fmt.Errorf("assemble engine: %w", err)
	}
	return eng.Admin(), nil
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Trigger a full rebuild from the snapshot source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := buildControlPlane()
		if err != nil {
			return err
		}
		if err := cp.Rebuild(cmd.Context()); err != nil {
			return err
		}
		log.Info("rebuild complete")
		return nil
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Purge the result cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := buildControlPlane()
		if err != nil {
			return err
		}
		if err := cp.ClearCache(); err != nil {
			return err
		}
		log.Info("cache cleared")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print shard versions, cache size, and backpressure",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := buildControlPlane()
		if err != nil {
			return err
		}
		report, err := cp.Stats()
		if err != nil {
			return err
		}
		for _, sh := range report.Shards {
			fmt.Printf("shard %d: version %d\n", sh.ShardID, sh.Version)
		}
		fmt.Printf("cache size: %d\n", report.CacheSize)
		fmt.Printf("backpressure: %d\n", report.Backpressure)
		return nil
	},
}

var trendingTopN int

var trendingTopCmd = &cobra.Command{
	Use:   "trending-top",
	Short: "Print the top trending phrases",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := buildControlPlane()
		if err != nil {
			return err
		}
		top, err := cp.TrendingTop(trendingTopN)
		if err != nil {
			return err
		}
		for _, t := range top {
			fmt.Printf("%s\t%d\n", t.Phrase, t.Score)
		}
		return nil
	},
}

func init() {
	trendingTopCmd.Flags().IntVar(&trendingTopN, "n", 10, "Number of trending phrases to print")
}
