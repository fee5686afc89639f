package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice compiles builder-state graphs into runnable scaffolds",
	Long: `Lattice turns a graph of pages, APIs, tables and integrations into a
deterministic application scaffold: models, migrations, handlers, templates,
an OpenAPI document and deployment files, packed into a zip archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug records to stderr")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine-readable JSON")
}

func globalFlags(cmd *cobra.Command) (debug, asJSON bool) {
	debug, _ = cmd.Flags().GetBool("debug")
	asJSON, _ = cmd.Flags().GetBool("json")
	return debug, asJSON
}
