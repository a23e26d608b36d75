// Package main implements the dashboard command for sparcl.
package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spiritoftheplace/sparcl/cmd/sparcl/ui"
	"github.com/spiritoftheplace/sparcl/internal/config"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

var dashboardForce bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive dashboard",
	Long: `Open the terminal dashboard: settings, discovered spatial services
and placeholder models on three pages.

The dashboard honors the showdashboard setting. --force opens it
regardless, without changing the setting.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardForce, "force", false, "Open even while showdashboard is off")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	st, cfg, ws, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	// The dashboard reports itself present; visibility then follows
	// the showdashboard setting.
	st.DashboardDetected.Set(true)

	if !st.ShowDashboard.Get() && !dashboardForce {
		fmt.Println("Dashboard is disabled (showdashboard = false).")
		fmt.Println("Enable it with 'sparcl settings set showdashboard true' or pass --force.")
		return nil
	}

	if err := loadWorkspaceServices(st, cfg.ServicesPath(ws)); err != nil {
		return err
	}

	ucPath := filepath.Join(ws, ".sparcl", "config.json")
	uc, err := config.LoadUserConfig(ucPath)
	if err != nil {
		return err
	}

	// Pick up edits other processes make while the dashboard is open.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if w, ok := st.Settings().Backend().(storage.Watchable); ok {
		if err := w.StartWatch(ctx, func() {
			if err := st.ReloadPersisted(); err != nil {
				logger.Warn("reload after external edit failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("failed to watch settings storage: %w", err)
		}
		defer w.StopWatch()
	}

	model, err := ui.NewModel(ui.Options{
		State:          st,
		Config:         cfg,
		UserConfig:     uc,
		UserConfigPath: ucPath,
		Workspace:      ws,
		Force:          dashboardForce,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	fmt.Println("Dashboard closed.")
	return nil
}
