// Package main implements the settings CLI commands for sparcl.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spiritoftheplace/sparcl/internal/config"
	"github.com/spiritoftheplace/sparcl/internal/state"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and edit persisted client settings",
	Long: `Manage the settings an AR session starts from.

Settings persist in the workspace storage backend and survive
restarts. Values are JSON: booleans and numbers pass through as-is,
anything else is stored as a string.`,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings with their current values",
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long: `Set a setting to a new value.

Examples:
  sparcl settings set armode oscp
  sparcl settings set showdashboard false
  sparcl settings set currentmarkerimagewidth 0.4
  sparcl settings set creatormodesettings '{"contentUrl":"https://example.com/a.glb","contentType":"model/gltf-binary"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all settings as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsExport,
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import settings from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsImport,
}

var settingsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print setting changes as they happen",
	Long: `Watch the settings store and print every change until interrupted.

With the file backend, edits made by other processes (or by hand) are
picked up too.`,
	RunE: runSettingsWatch,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsExportCmd)
	settingsCmd.AddCommand(settingsImportCmd)
	settingsCmd.AddCommand(settingsWatchCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	st, cfg, ws, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	keys := st.Settings().Keys()
	fmt.Printf("📁 Workspace: %s (%s backend)\n", ws, cfg.Storage.Driver)
	fmt.Println(strings.Repeat("─", 60))
	for _, key := range keys {
		raw, err := st.Settings().Raw(key)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", key, err)
		}
		fmt.Printf("  %-30s %s\n", key, raw)
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("Total: %d settings\n", len(keys))
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	st, _, _, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	raw, err := st.Settings().Raw(args[0])
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	st, cfg, _, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	key := args[0]
	raw := coerceJSON(args[1])

	// The workspace config can restrict which AR modes a session may
	// enter; enforce that here so the stored value never conflicts.
	// Unknown modes fall through and fail validation in Apply.
	if key == state.KeyARMode {
		var mode string
		if err := json.Unmarshal(raw, &mode); err == nil {
			if _, perr := state.ParseARMode(mode); perr == nil && !cfg.IsModeAllowed(mode) {
				allowed := cfg.Modes.Allowed
				if len(allowed) == 0 {
					allowed = config.ValidModes
				}
				return fmt.Errorf("mode %q is not allowed in this workspace (allowed: %s)",
					mode, strings.Join(allowed, ", "))
			}
		}
	}

	if err := st.Settings().Apply(key, raw); err != nil {
		return err
	}
	fmt.Printf("✅ %s = %s\n", key, raw)
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	st, _, _, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Settings().Reset(args[0]); err != nil {
		return err
	}
	raw, err := st.Settings().Raw(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s reset to default: %s\n", args[0], raw)
	return nil
}

func runSettingsExport(cmd *cobra.Command, args []string) error {
	st, _, _, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := st.ExportDocument().YAML()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if len(args) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[0], err)
	}
	fmt.Printf("✅ Exported settings to %s\n", args[0])
	return nil
}

func runSettingsImport(cmd *cobra.Command, args []string) error {
	st, _, _, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	doc, err := state.ParseSettingsDocument(data)
	if err != nil {
		return err
	}
	if err := st.ImportDocument(doc); err != nil {
		return err
	}
	fmt.Printf("✅ Imported settings from %s\n", args[0])
	return nil
}

func runSettingsWatch(cmd *cobra.Command, args []string) error {
	st, cfg, ws, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	events := make(chan settingEvent, 64)
	unsubs := []state.Unsubscribe{
		watchSetting(st.ARMode, events),
		watchSetting(st.ShowDashboard, events),
		watchSetting(st.AllowP2P, events),
		watchSetting(st.MarkerImage, events),
		watchSetting(st.MarkerImageWidth, events),
		watchSetting(st.CreatorModeSettings, events),
		watchSetting(st.ExperimentModeSettings, events),
		watchSetting(st.DebugAppendCameraImage, events),
		watchSetting(st.DebugShowLocalAxes, events),
		watchSetting(st.DebugUseGeolocationSensors, events),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	if w, ok := st.Settings().Backend().(storage.Watchable); ok {
		if err := w.StartWatch(ctx, func() {
			if err := st.ReloadPersisted(); err != nil {
				logger.Warn("reload after external edit failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("failed to watch %s storage: %w", cfg.Storage.Driver, err)
		}
		defer w.StopWatch()
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.StoragePath(ws))
	} else {
		fmt.Printf("Watching settings on the %s backend (no file watch; external edits are not picked up)\n",
			cfg.Storage.Driver)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case ev := <-events:
				fmt.Printf("%s  %-30s %s\n", time.Now().Format("15:04:05"), ev.key, ev.value)
			}
		}
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	fmt.Println("\nStopped.")
	return nil
}

type settingEvent struct {
	key   string
	value string
}

// watchSetting forwards changes of one persisted cell to events,
// skipping the immediate callback Subscribe makes with the current
// value. A full events channel drops rather than blocks, since a
// notification runs on whichever goroutine wrote the cell.
func watchSetting[T any](cell *state.Persistent[T], events chan<- settingEvent) state.Unsubscribe {
	first := true
	return cell.Subscribe(func(v T) {
		if first {
			first = false
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", v))
		}
		select {
		case events <- settingEvent{key: cell.Key(), value: string(data)}:
		default:
		}
	})
}

// coerceJSON turns CLI-friendly values into the JSON the settings
// store expects: valid JSON passes through, anything else becomes a
// JSON string.
func coerceJSON(value string) []byte {
	raw := []byte(strings.TrimSpace(value))
	if json.Valid(raw) {
		return raw
	}
	return []byte(strconv.Quote(value))
}
