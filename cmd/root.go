package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgsync/pgsync/cmd/export"
	syncmd "github.com/pgsync/pgsync/cmd/sync"
	"github.com/pgsync/pgsync/internal/logger"
	"github.com/pgsync/pgsync/internal/version"
)

var debug bool

var RootCmd = &cobra.Command{
	Use:   "pgsync",
	Short: "PostgreSQL schema comparison and synchronization script generator",
	Long: fmt.Sprintf(`pgsync compares the structure of two PostgreSQL schemas and generates a
reviewable SQL script that aligns the target with the source. It never
applies changes itself.

Version: %s

Commands:
  sync     Compare two schemas and generate an alter script
  export   Generate creation scripts for one schema
  version  Show version information

Use "pgsync [command] --help" for more information about a command.`,
		version.String()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetGlobal(logger.New(debug))
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(syncmd.SyncCmd)
	RootCmd.AddCommand(export.ExportCmd)
	RootCmd.AddCommand(VersionCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
