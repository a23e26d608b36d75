// Package main implements the spatial services CLI commands for sparcl.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/spiritoftheplace/sparcl/internal/oscp"
	"github.com/spiritoftheplace/sparcl/internal/state"
)

var servicesType string

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Manage discovered spatial services",
	Long: `Manage the spatial services records (SSRs) the client works from.

Records normally come from a spatial service discovery lookup; import
stores a lookup response in the workspace so sessions and the
dashboard can use it offline.`,
	RunE: runServicesList,
}

var servicesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import service records into the workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runServicesImport,
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported services grouped by type",
	RunE:  runServicesList,
}

func init() {
	servicesListCmd.Flags().StringVarP(&servicesType, "type", "t", "", "Only show services of this type")

	servicesCmd.AddCommand(servicesImportCmd)
	servicesCmd.AddCommand(servicesListCmd)
	rootCmd.AddCommand(servicesCmd)
}

func runServicesImport(cmd *cobra.Command, args []string) error {
	cfg, ws, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := oscp.LoadRecords(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no valid service records in %s", args[0])
	}

	// Re-encode rather than copy: parsing assigned missing ids and
	// dropped invalid records, and the stored file should reflect that.
	dest := cfg.ServicesPath(ws)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode service records: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	counts := oscp.CountByType(records)
	fmt.Printf("✅ Imported %d service records to %s\n", len(records), dest)
	for _, t := range oscp.KnownServiceTypes {
		if n := counts[t]; n > 0 {
			fmt.Printf("   %-20s %d\n", t, n)
		}
	}
	return nil
}

func runServicesList(cmd *cobra.Command, args []string) error {
	if servicesType != "" {
		if err := checkServiceType(servicesType); err != nil {
			return err
		}
	}

	st, cfg, ws, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	path := cfg.ServicesPath(ws)
	records, err := oscp.LoadRecords(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No services imported yet (looked in %s).\n", path)
			fmt.Println("Run 'sparcl services import <file>' with a discovery response first.")
			return nil
		}
		return err
	}
	st.UpdateServices(records, path)

	if servicesType != "" {
		printServices(servicesType, oscp.ServicesByType(records, oscp.ServiceType(servicesType)), nil)
		return nil
	}

	fmt.Printf("📡 %d service records from %s\n", len(records), path)

	geoMarks := map[string]string{}
	if selected := st.SelectedGeoPoseService.Get(); selected != nil {
		geoMarks[selected.ID] = "*"
	}
	contentMarks := map[string]string{}
	for id, sel := range st.SelectedContentServices.Get() {
		if sel.IsSelected {
			contentMarks[id] = "*"
		}
	}

	printServices(string(oscp.ServiceGeoPose), st.GeoPoseServices.Get(), geoMarks)
	printServices(string(oscp.ServiceContentDiscovery), st.ContentServices.Get(), contentMarks)
	printServices(string(oscp.ServiceP2PMaster), st.P2PServices.Get(), nil)
	fmt.Println("\n* selected for the next session")
	return nil
}

func printServices(heading string, services []oscp.Service, marks map[string]string) {
	fmt.Printf("\n%s (%d)\n", heading, len(services))
	fmt.Println(strings.Repeat("─", 60))
	if len(services) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, svc := range services {
		mark := " "
		if m, ok := marks[svc.ID]; ok {
			mark = m
		}
		title := svc.Title
		if title == "" {
			title = svc.ID
		}
		fmt.Printf("%s %-28s %s\n", mark, title, svc.URL)
	}
}

func checkServiceType(t string) error {
	for _, known := range oscp.KnownServiceTypes {
		if string(known) == t {
			return nil
		}
	}
	names := make([]string, len(oscp.KnownServiceTypes))
	for i, known := range oscp.KnownServiceTypes {
		names[i] = string(known)
	}
	return fmt.Errorf("unknown service type %q (valid: %s)", t, strings.Join(names, ", "))
}

// loadWorkspaceServices reads the imported records, tolerating a
// missing file. The dashboard uses this at startup.
func loadWorkspaceServices(st *state.AppState, path string) error {
	records, err := oscp.LoadRecords(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	st.UpdateServices(records, path)
	return nil
}
