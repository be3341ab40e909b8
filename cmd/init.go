package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ctxstore configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a storage backend and writes the config file (default .ctxstore.yml).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
