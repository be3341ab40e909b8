package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ctxstore",
	Short: "Store and retrieve smart-contract development context",
	Long: `ctxstore keeps a curated knowledge base of code examples, best practices,
error patterns and security tips for smart-contract development. Records
live in memory, Redis or SQLite and are served over a REST API and an
MCP server for AI agents.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
