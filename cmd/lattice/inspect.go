package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir>",
	Short: "Check the graph for schema and integrity errors",
	Long:  `Normalizes the graph without generating anything and reports lint warnings.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, asJSON := globalFlags(cmd)
		project, _ := cmd.Flags().GetString("project")
		return cli.RunValidate(cmd.Context(), args[0], project, asJSON, cmd.OutOrStdout())
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <file|dir>",
	Short: "Export the graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the normalized graph.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		overlay, _ := cmd.Flags().GetBool("overlay")
		return cli.RunGraph(cmd.Context(), args[0], project, overlay, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, graphCmd)
	validateCmd.Flags().String("project", "", "Override the project id")
	graphCmd.Flags().String("project", "", "Override the project id")
	graphCmd.Flags().Bool("overlay", false, "Compile and mark generated and failed nodes")
}
