package main

import (
	"os"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves compile, validate, project and archive endpoints over HTTP, with
Prometheus metrics on /metrics and compile progress as server-sent events.
Projects live in Redis when --redis or ` + cli.EnvRedisAddr + ` is set, and are
encrypted at rest when ` + cli.EnvEncryptionKey + ` holds a hex AES-256 key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, asJSON := globalFlags(cmd)
		port, _ := cmd.Flags().GetInt("port")
		engineOpts, err := engineFlags(cmd, debug)
		if err != nil {
			return err
		}
		opts := cli.ServeOptions{
			EngineOptions: engineOpts,
			Port:          port,
			JSON:          asJSON,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunServe(ctx, opts, cmd.ErrOrStderr())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes compile_graph, validate_graph and slugify as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := globalFlags(cmd)
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		engineOpts, err := engineFlags(cmd, debug)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunMCP(ctx, transport, port, engineOpts, cmd.ErrOrStderr())
	},
}

func engineFlags(cmd *cobra.Command, debug bool) (cli.EngineOptions, error) {
	redisAddr, _ := cmd.Flags().GetString("redis")
	if redisAddr == "" {
		redisAddr = os.Getenv(cli.EnvRedisAddr)
	}
	storeDir, _ := cmd.Flags().GetString("store-dir")
	archiveDir, _ := cmd.Flags().GetString("archive-dir")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	smoke, _ := cmd.Flags().GetBool("smoke")
	redact, _ := cmd.Flags().GetBool("redact")
	key, err := cli.ParseEncryptionKey(os.Getenv(cli.EnvEncryptionKey))
	if err != nil {
		return cli.EngineOptions{}, err
	}
	return cli.EngineOptions{
		Debug:         debug,
		Smoke:         smoke,
		RedisAddr:     redisAddr,
		StoreDir:      storeDir,
		ArchiveDir:    archiveDir,
		ProjectTTL:    ttl,
		EncryptionKey: key,
		Redact:        redact,
	}, nil
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis", "", "Redis address for projects, archives and locks (default $"+cli.EnvRedisAddr+")")
	cmd.Flags().String("store-dir", "", "Keep projects as JSON files in this directory")
	cmd.Flags().String("archive-dir", "", "Keep archives in this directory")
	cmd.Flags().Duration("ttl", 0, "Expire Redis projects and archives after this long")
	cmd.Flags().Bool("smoke", false, "Smoke test every archive")
	cmd.Flags().Bool("redact", false, "Mask credential-like props before storing projects")
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	addEngineFlags(serveCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	addEngineFlags(mcpCmd)
}
