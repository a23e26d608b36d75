// Package main provides the sparcl CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spiritoftheplace/sparcl/internal/config"
	"github.com/spiritoftheplace/sparcl/internal/logging"
	"github.com/spiritoftheplace/sparcl/internal/state"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// version is overridden at release time via -ldflags.
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "sparcl",
	Short: "sparcl - spatial computing client state tools",
	Long: `sparcl manages the local state of an Open Spatial Computing Platform
AR client from the terminal: persisted settings, discovered spatial
services, and the placeholder models shown while content loads.

Run without arguments to open the interactive dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The dashboard owns the terminal; zap on stderr would write
		// over it. Interactive invocations get a nop logger and rely
		// on the category log files instead.
		if cmd.Name() == "dashboard" || cmd.Name() == "sparcl" {
			logger = zap.NewNop()
		} else {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		if err := logging.Initialize(resolveWorkspace()); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		if err := logging.InitJournal(); err != nil {
			logger.Warn("event journal unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseJournal()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sparcl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sparcl %s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: auto-detect)")

	rootCmd.AddCommand(versionCmd)
}

// resolveWorkspace returns the --workspace flag value or the detected
// project root, falling back to the current directory.
func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	root, err := config.FindWorkspaceRoot()
	if err != nil {
		cwd, _ := os.Getwd()
		return cwd
	}
	return root
}

// loadConfig reads and validates .sparcl/config.yaml from the
// workspace. A missing file yields defaults.
func loadConfig() (*config.Config, string, error) {
	ws := resolveWorkspace()
	cfg, err := config.Load(filepath.Join(ws, ".sparcl", "config.yaml"))
	if err != nil {
		return nil, ws, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, ws, fmt.Errorf("invalid workspace config: %w", err)
	}
	return cfg, ws, nil
}

// openState hydrates the application state from the configured storage
// backend. The caller owns the returned state and must Close it.
func openState() (*state.AppState, *config.Config, string, error) {
	cfg, ws, err := loadConfig()
	if err != nil {
		return nil, nil, ws, err
	}
	backend, err := storage.Open(cfg.Storage.Driver, cfg.StoragePath(ws))
	if err != nil {
		return nil, nil, ws, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	st, err := state.New(backend)
	if err != nil {
		backend.Close()
		return nil, nil, ws, fmt.Errorf("failed to hydrate state: %w", err)
	}
	return st, cfg, ws, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
