/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the RSE admin backend: runs the HTTP API or
  prints availability and utilisation reports to the terminal.

COMMANDS:
  serve                          Run the HTTP server
  report availability --rse ID   Capacity and free FTE grid for one RSE
  report utilisation [--year Y]  Financial-year utilisation per RSE

CONFIGURATION:
  --config FILE    YAML settings (default etc/config.yaml)
  .env and environment variables override the file:
    CLOCKIFY_API_KEY, CLOCKIFY_WORKSPACE, LEAVE_DIR, DB_PATH,
    PORT, LOG_LEVEL, LOG_FILE

SEE ALSO:
  - app.go: Dependency wiring
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "rse-admin",
		Short: "RSE availability and timesheet backend",
		Long: `rse-admin computes RSE availability from contracts, capacity overrides
and project assignments, and aggregates recorded time into timesheet
and utilisation reports.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(reportCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
