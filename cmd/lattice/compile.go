package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file|dir>",
	Short: "Compile a graph into a scaffold",
	Long: `Compiles a graph file (JSON, YAML or HCL) or a directory of node documents.
The scaffold can be written to a directory (--out) and/or a zip archive (--archive).
With --watch, a node directory is recompiled on every change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, asJSON := globalFlags(cmd)
		project, _ := cmd.Flags().GetString("project")
		out, _ := cmd.Flags().GetString("out")
		archive, _ := cmd.Flags().GetString("archive")
		smoke, _ := cmd.Flags().GetBool("smoke")
		readme, _ := cmd.Flags().GetBool("readme")
		watch, _ := cmd.Flags().GetBool("watch")

		opts := cli.CompileOptions{
			EngineOptions: cli.EngineOptions{Debug: debug, Smoke: smoke},
			Path:          args[0],
			ProjectID:     project,
			Out:           out,
			Archive:       archive,
			Readme:        readme,
			JSON:          asJSON,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if watch {
			return cli.RunWatch(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		}
		return cli.RunCompile(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().String("project", "", "Override the project id")
	compileCmd.Flags().StringP("out", "o", "", "Write the scaffold tree to this directory")
	compileCmd.Flags().String("archive", "", "Write the zip archive to this file")
	compileCmd.Flags().Bool("smoke", false, "Re-read the archive and validate it after packaging")
	compileCmd.Flags().Bool("readme", false, "Render the generated README")
	compileCmd.Flags().BoolP("watch", "w", false, "Recompile a node directory on every change")
}
