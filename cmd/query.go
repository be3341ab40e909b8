package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/context-store/internal/storage"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search stored contexts by type, tag, contract type and free text",
	Long: `Filters the context store and prints one page of results ordered by
relevance score. Free text matches when every word appears in the title,
description, content or tags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSlice("type", nil, "filter by context type (repeatable or comma separated)")
	queryCmd.Flags().StringSlice("tag", nil, "filter by tag; any listed tag matches")
	queryCmd.Flags().String("contract", "", "filter by contract type")
	queryCmd.Flags().Int("limit", 0, "maximum number of results (default from config)")
	queryCmd.Flags().Int("offset", 0, "number of results to skip")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	types, _ := cmd.Flags().GetStringSlice("type")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	contract, _ := cmd.Flags().GetString("contract")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	params := storage.QueryParams{
		Tags:         tags,
		ContractType: contract,
		Limit:        limit,
		Offset:       offset,
	}
	for _, t := range types {
		params.Types = append(params.Types, storage.ContextType(strings.TrimSpace(t)))
	}
	if len(args) == 1 {
		params.Query = args[0]
	}

	_, svc, _, closeBackend, err := openService(true)
	if err != nil {
		return err
	}
	defer closeBackend()

	res, err := svc.Query(ctx, params)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if jsonOutput {
		return printQueryResultsJSON(res)
	}

	if len(res.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	printQueryResultsTable(res)
	return nil
}

type queryResultJSON struct {
	Rank           int      `json:"rank"`
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	RelevanceScore float64  `json:"relevance_score"`
	Tags           []string `json:"tags,omitempty"`
	ContractType   string   `json:"contract_type,omitempty"`
	Summary        string   `json:"summary"`
}

func printQueryResultsJSON(res *storage.QueryResult) error {
	out := struct {
		Total   int               `json:"total"`
		Offset  int               `json:"offset"`
		Limit   int               `json:"limit"`
		Results []queryResultJSON `json:"results"`
	}{Total: res.Total, Offset: res.Offset, Limit: res.Limit, Results: []queryResultJSON{}}

	for i, r := range res.Results {
		out.Results = append(out.Results, queryResultJSON{
			Rank:           res.Offset + i + 1,
			ID:             r.ID,
			Type:           string(r.Type),
			Title:          r.Metadata.Title,
			RelevanceScore: r.Metadata.RelevanceScore,
			Tags:           r.Metadata.Tags,
			ContractType:   r.Metadata.ContractType,
			Summary:        truncate(r.Content, 200),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printQueryResultsTable(res *storage.QueryResult) {
	fmt.Printf("Showing %d of %d results:\n\n", len(res.Results), res.Total)
	for i, r := range res.Results {
		contract := ""
		if r.Metadata.ContractType != "" {
			contract = fmt.Sprintf(" (%s)", r.Metadata.ContractType)
		}

		fmt.Printf("  %d. [%.2f] %s%s\n", res.Offset+i+1, r.Metadata.RelevanceScore, r.Metadata.Title, contract)
		fmt.Printf("     ID: %s  Type: %s\n", r.ID, r.Type)
		if len(r.Metadata.Tags) > 0 {
			fmt.Printf("     Tags: %s\n", strings.Join(r.Metadata.Tags, ", "))
		}
		fmt.Printf("     %s\n\n", truncate(strings.Join(strings.Fields(r.Content), " "), 120))
	}
}
