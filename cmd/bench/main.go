// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command bench builds the legacy flat-threshold completer and the current
// sharded/ranked engine from the same word list, then A/B compares their
// lookup latency over a fixed set of prefixes.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/typeahead/engine/internal/builder"
	"github.com/typeahead/engine/internal/config"
	"github.com/typeahead/engine/internal/legacybench"
	"github.com/typeahead/engine/pkg/engine"
)

func main() {
	wordsFile := flag.String("words", "", "Path to words file: \"phrase\\tcount\" per line")
	queries := flag.Int("queries", 5000, "Number of lookups to run per engine")
	flag.Parse()

	if *wordsFile == "" {
		log.Fatal("bench: -words is required")
	}

	entries, err := loadWords(*wordsFile)
	if err != nil {
		log.Fatalf("bench: failed to load words: %v", err)
	}
	log.Infof("bench: loaded %d phrases", len(entries))

	legacy := legacybench.NewCompleter()
	for _, e := range entries {
		legacy.AddPhrase(e.Phrase, e.Count)
	}

	cfg := config.DefaultConfig()
	eng, err := engine.New(cfg, func(ctx context.Context) ([]builder.Entry, error) {
		return entries, nil
	}, nil)
	if err != nil {
		log.Fatalf("bench: failed to assemble engine: %v", err)
	}
	if err := eng.Rebuild(context.Background(), entries); err != nil {
		log.Fatalf("bench: initial build failed: %v", err)
	}

	prefixes := samplePrefixes(entries, *queries)

	legacyElapsed := runLegacy(legacy, prefixes)
	engineElapsed := runEngine(eng, prefixes)

	report(len(prefixes), legacyElapsed, engineElapsed)
}

func loadWords(path string) ([]builder.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	now := time.Now()
	var entries []builder.Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		count, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, builder.Entry{Phrase: fields[0], Count: count, LastUpdated: now})
	}
	return entries, scanner.Err()
}

// samplePrefixes draws n prefixes (2-4 runes) from the loaded phrases, with
// replacement, for a repeatable-shape but not bitwise-deterministic load.
func samplePrefixes(entries []builder.Entry, n int) []string {
	if len(entries) == 0 || n <= 0 {
		return nil
	}
	prefixes := make([]string, n)
	for i := 0; i < n; i++ {
		phrase := []rune(entries[rand.Intn(len(entries))].Phrase)
		cut := 2 + rand.Intn(3)
		if cut > len(phrase) {
			cut = len(phrase)
		}
		prefixes[i] = string(phrase[:cut])
	}
	return prefixes
}

func runLegacy(c *legacybench.Completer, prefixes []string) time.Duration {
	start := time.Now()
	for _, p := range prefixes {
		c.Complete(p, 10)
	}
	return time.Since(start)
}

func runEngine(e *engine.Engine, prefixes []string) time.Duration {
	ctx := context.Background()
	start := time.Now()
	for _, p := range prefixes {
		if _, err := e.Suggest(ctx, engine.SuggestRequest{Prefix: p, Limit: 10}); err != nil {
			log.Warnf("bench: suggest error for %q: %v", p, err)
		}
	}
	return time.Since(start)
}

func report(n int, legacyElapsed, engineElapsed time.Duration) {
	fmt.Println("================")
	fmt.Println(" bench results ")
	fmt.Println("================")
	fmt.Printf("queries:        %d\n", n)
	fmt.Printf("legacy total:   %v (%.2f us/op)\n", legacyElapsed, float64(legacyElapsed.Microseconds())/float64(n))
	fmt.Printf("engine total:   %v (%.2f us/op)\n", engineElapsed, float64(engineElapsed.Microseconds())/float64(n))
	if engineElapsed > 0 {
		fmt.Printf("speedup:        %.2fx\n", float64(legacyElapsed)/float64(engineElapsed))
	}
}
