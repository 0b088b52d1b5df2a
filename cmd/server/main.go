/*
main.go - Application entry point

PURPOSE:

	Command-line front end for the machine storage engine. The serve command
	runs the HTTP API and the world tick loop; the others inspect definitions
	and stored records without starting a server.

COMMANDS:

	serve          Run the API and tick loop until SIGINT/SIGTERM
	types          Print the machine type catalogue
	inspect <id>   Print a stored machine record as JSON

CONFIGURATION:

	Environment first (see internal/config), then flags. A .env file in the
	working directory is read when present.

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests to complete (30s timeout)
	3. Stop the tick loop, which saves dirty machines one last time
	4. Close the store

EXAMPLES:

	# Run with file database
	./server serve --db=./data/machines.db

	# Run in memory, ticking twice a second
	./server serve --store=memory --tick=500ms

	# Dump a machine
	./server inspect 3f0c...

SEE ALSO:
  - api/server.go: Router configuration
  - internal/app: Store and catalogue wiring
  - machine/world.go: Tick loop and autosave
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/machine-storage/internal/config"
	"github.com/warp/machine-storage/internal/logger"
	"go.uber.org/zap"
)

var version = "dev"

// Flags shared by every command. Zero values leave the config untouched.
var (
	storeFlag       string
	dbFlag          string
	definitionsFlag string
	logLevelFlag    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Machine storage engine",
	Long:          "Transactional item, fluid and energy storage for machines, served over HTTP.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&storeFlag, "store", "", "Record store: memory, sqlite or redis")
	flags.StringVar(&dbFlag, "db", "", `SQLite database path (":memory:" for in-memory)`)
	flags.StringVar(&definitionsFlag, "definitions", "", "Extra machine definitions file (YAML or JSON)")
	flags.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if storeFlag != "" {
		cfg.StoreDriver = storeFlag
	}
	if dbFlag != "" {
		cfg.SQLitePath = dbFlag
	}
	if definitionsFlag != "" {
		cfg.DefinitionsPath = definitionsFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	log, _, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
