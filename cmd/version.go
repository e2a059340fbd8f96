package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgsync/pgsync/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of pgsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
