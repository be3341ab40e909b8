package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/context-store/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing context store, query and lookup tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, svc, log, closeBackend, err := openService(false)
		if err != nil {
			return err
		}
		defer closeBackend()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		log.WithField("backend", cfg.Storage.Backend).Info("ctxstore MCP server started on stdio")

		srv := mcpserver.NewServer(svc)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
