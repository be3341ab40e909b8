package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/storage"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one stored context as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, _, closeBackend, err := openService(true)
		if err != nil {
			return err
		}
		defer closeBackend()

		p, err := svc.Retrieve(context.Background(), args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("context %s not found", args[0])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, _, closeBackend, err := openService(true)
		if err != nil {
			return err
		}
		defer closeBackend()

		ok, err := svc.Delete(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("context %s not found", args[0])
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many contexts are stored, by type",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, svc, _, closeBackend, err := openService(true)
		if err != nil {
			return err
		}
		defer closeBackend()

		stats, err := svc.Stats(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Backend: %s\n", cfg.Storage.Backend)
		fmt.Printf("Total contexts: %d\n", stats.Total)

		types := make([]string, 0, len(stats.ByType))
		for t := range stats.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("  %-16s %d\n", t, stats.ByType[storage.ContextType(t)])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd, deleteCmd, statsCmd)
}
