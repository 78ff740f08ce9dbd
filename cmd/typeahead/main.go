// Copyright 2025 The Typeahead Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the typeahead suggestion server and CLI [DBG] application.

Typeahead provides a debounced, latest-wins search-as-you-type controller in
front of a pluggable search provider. It can operate as a MessagePack IPC
server for integration with editors and UI shells, or as a CLI application
for testing and debugging.

The bundled provider matches by case-insensitive prefix against a patricia
trie seeded from a tab-separated file of entries and weights. Any other
provider can be wired in through the library API.

# Usage

Start the server with default settings:

	typeahead -data titles.tsv

Use a custom debounce window and enable debug mode:

	typeahead -data titles.tsv -delay 250 -d

Run in CLI mode for interactive testing:

	typeahead -data titles.tsv -c -limit 10

# Configuration

Runtime configuration is managed through a TOML file:

	[controller]
	delay_ms = 1000
	limit = 24

	[provider]
	min_weight = 1
	max_query = 60
	seed_file = "titles.tsv"

The config file is automatically created with defaults if it doesn't exist.
Flags override config values for the current run.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. One event per
keystroke carries the current full text; the server pushes a frame for each
controller state change. See pkg/server for the frame layout and the
last-keystroke-wins semantics.

Send a keystroke event:

	{"id": "ev1", "t": "inter"}

Receive the settled suggestion frame:

	{"id": "ev1", "st": "ready", "s": [{"i": "t000041", "w": "interstellar", "r": 1}], "c": 1, "t": 1043}

# CLI Mode

CLI mode reads one line per keystroke burst, flushes the debounce window
immediately, and prints the settled suggestion list with timing. It is
primarily intended for development and testing new features before deploying
to server mode.

# Command Line Flags

The following flags control application behavior:

	-data string
	    Seed file with tab-separated "text<TAB>weight" entries
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of suggestions to return (default from config)
	-delay int
	    Debounce window in milliseconds (default from config)
	-config string
	    Path to a custom config.toml
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/typeahead/internal/cli"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/server"
	"github.com/bastiangx/typeahead/pkg/suggest"
)

const (
	Version = "0.3.0"
	AppName = "typeahead"
	gh      = "https://github.com/bastiangx/typeahead"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	seedFile := flag.String("data", "", "Seed file with tab-separated text/weight entries")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of suggestions to return (0 = config default)")
	delayMs := flag.Int("delay", 0, "Debounce window in milliseconds (0 = config default)")
	configPath := flag.String("config", "", "Path to a custom config.toml")

	flag.Parse()

	if *showVersion {
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
		logger.Print("[ typeahead ] Debounced search-as-you-type suggestions!")
		logger.Print("", "version", Version)
		logger.Print("")
		logger.Print("use -h or --help to see available options")
		logger.Print("Github Repo", "gh", gh)

		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	if *limit > 0 {
		appConfig.Controller.Limit = *limit
	}
	if *delayMs > 0 {
		appConfig.Controller.DelayMs = *delayMs
	}

	provider := suggest.NewTrieProvider(appConfig.Provider.MinWeight)
	seedPath := *seedFile
	if seedPath == "" {
		seedPath = appConfig.Provider.SeedFile
	}
	if seedPath != "" {
		count, err := provider.LoadSeedFile(seedPath)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
			os.Exit(1)
		}
		log.Debugf("Seeded provider with %d entries from %s", count, seedPath)
	} else {
		log.Warn("No seed file specified, running with an empty index...")
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		delay := time.Duration(appConfig.CLI.DefaultDelayMs) * time.Millisecond
		cliLimit := appConfig.CLI.DefaultLimit
		if *limit > 0 {
			cliLimit = *limit
		}
		if *delayMs > 0 {
			delay = time.Duration(*delayMs) * time.Millisecond
		}
		waitTimeout := time.Duration(appConfig.CLI.WaitTimeoutMs) * time.Millisecond

		inputHandler := cli.NewInputHandler(provider, delay, cliLimit, appConfig.Provider.MaxQuery, waitTimeout)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Debug("spawning IPC")
	showStartupInfo(seedPath, provider.Stats()["totalEntries"])

	srv := server.NewServer(provider, appConfig)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(seedPath string, entries int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" typeahead ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("entries: [ %d ]", entries)
	if seedPath != "" {
		log.Infof("seed file: ( %s )", seedPath)
	}
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
