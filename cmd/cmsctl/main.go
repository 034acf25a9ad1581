package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"site-cms/cmd/cmsctl/commands"
)

// Version is set during build with -ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cmsctl",
	Short: "Admin tooling for the site CMS",
	Long: `cmsctl inspects the section registry, previews pages in the terminal,
seeds pages from YAML files and runs generation actions outside the server.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cmsctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cmsctl version %s\n", version)
	},
}

func init() {
	commands.AddPersistentFlags(rootCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(commands.NewSchemasCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewWorkersCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
