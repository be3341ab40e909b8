package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/contextengine"
	"github.com/ziadkadry99/context-store/internal/importers"
	"github.com/ziadkadry99/context-store/internal/progress"
	"github.com/ziadkadry99/context-store/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths or globs...]",
	Short: "Load context records from YAML, JSON and Markdown files",
	Long: `Reads corpus files (directories and doublestar globs such as "corpus/**/*.yml"
are expanded) and stores every record they contain through batch ingestion.
Files that fail to parse and records that fail validation are reported and
skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("json", false, "print the ingest summary as JSON")
	rootCmd.AddCommand(ingestCmd)
}

type ingestFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type ingestSummary struct {
	Files    int             `json:"files"`
	Stored   int             `json:"stored"`
	IDs      []string        `json:"ids"`
	Failures []ingestFailure `json:"failures,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	_, svc, log, closeBackend, err := openService(true)
	if err != nil {
		return err
	}
	defer closeBackend()

	files, err := importers.Expand(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no corpus files matched %v", args)
	}

	items, loadErrs := importers.LoadAll(files)
	summary := ingestSummary{Files: len(files), IDs: []string{}}
	for _, e := range loadErrs {
		log.WithError(e).Warn("skipping corpus file")
		summary.Failures = append(summary.Failures, ingestFailure{Error: e.Error()})
	}

	var reporter progress.Reporter = progress.Nop{}
	if !jsonOutput {
		reporter = progress.NewReporter()
	}
	reporter.Start(len(items))

	batchSize := svc.Config().MaxBatchSize
	if batchSize <= 0 {
		batchSize = contextengine.DefaultConfig().MaxBatchSize
	}
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		chunk := items[start:end]

		payloads := make([]storage.ContextPayload, len(chunk))
		for i, it := range chunk {
			payloads[i] = it.Payload
		}

		res, err := svc.BatchIngest(ctx, payloads)
		if err != nil {
			reporter.Finish()
			return fmt.Errorf("ingesting records %d-%d: %w", start, end-1, err)
		}
		summary.IDs = append(summary.IDs, res.IDs...)
		for _, e := range res.Errors {
			summary.Failures = append(summary.Failures, ingestFailure{
				Source: chunk[e.Index].Source,
				Error:  e.Error,
			})
		}
		reporter.Update(end, chunk[len(chunk)-1].Source)
	}
	reporter.Finish()
	summary.Stored = len(summary.IDs)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Stored %d of %d context(s) from %d file(s).\n", summary.Stored, len(items), summary.Files)
	if len(summary.Failures) > 0 {
		fmt.Printf("\n%d failure(s):\n", len(summary.Failures))
		for _, f := range summary.Failures {
			if f.Source != "" {
				fmt.Printf("  - %s: %s\n", f.Source, f.Error)
			} else {
				fmt.Printf("  - %s\n", f.Error)
			}
		}
	}
	return nil
}
