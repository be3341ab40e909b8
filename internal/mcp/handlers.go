package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// handleStoreContext validates and stores a new record.
func (s *Server) handleStoreContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: type"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	p := &storage.ContextPayload{
		Type:    storage.ContextType(typ),
		Content: content,
		Metadata: storage.ContextMetadata{
			Title:          title,
			Description:    request.GetString("description", ""),
			Tags:           splitList(request.GetString("tags", "")),
			RelevanceScore: request.GetFloat("relevance_score", 0),
			ContractType:   request.GetString("contract_type", ""),
			Language:       request.GetString("language", ""),
			Author:         request.GetString("author", ""),
		},
	}

	id, err := s.svc.Ingest(ctx, p)
	if err != nil {
		return toolError("store failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored context %s", id)), nil
}

// handleGetContext returns one record as JSON.
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	p, err := s.svc.Retrieve(ctx, id)
	if err != nil {
		return toolError("get failed", err), nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding record: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleQueryContext runs a filtered, paginated query.
func (s *Server) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := filterParams(request)
	params.Limit = request.GetInt("limit", 0)
	params.Offset = request.GetInt("offset", 0)

	res, err := s.svc.Query(ctx, params)
	if err != nil {
		return toolError("query failed", err), nil
	}
	if len(res.Results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No matching contexts (total %d).", res.Total)), nil
	}
	return mcp.NewToolResultText(formatResults(res.Results, res.Total, res.Offset)), nil
}

// handleUpdateContext applies a partial update built from the arguments that
// were actually supplied.
func (s *Server) handleUpdateContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	args := request.GetArguments()
	has := func(key string) bool {
		_, ok := args[key]
		return ok
	}
	str := func(key string) *string {
		if !has(key) {
			return nil
		}
		v := request.GetString(key, "")
		return &v
	}

	var patch storage.ContextPatch
	if has("type") {
		t := storage.ContextType(request.GetString("type", ""))
		patch.Type = &t
	}
	patch.Content = str("content")

	meta := &storage.MetadataPatch{
		Title:        str("title"),
		Description:  str("description"),
		ContractType: str("contract_type"),
		Language:     str("language"),
		Author:       str("author"),
	}
	if has("tags") {
		meta.Tags = splitList(request.GetString("tags", ""))
		if meta.Tags == nil {
			meta.Tags = []string{}
		}
	}
	if has("relevance_score") {
		score := request.GetFloat("relevance_score", 0)
		meta.RelevanceScore = &score
	}
	patch.Metadata = meta

	ok, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return toolError("update failed", err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("context %q not found", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated context %s", id)), nil
}

// handleDeleteContext removes a record.
func (s *Server) handleDeleteContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	ok, err := s.svc.Delete(ctx, id)
	if err != nil {
		return toolError("delete failed", err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("context %q not found", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted context %s", id)), nil
}

// handleFindSimilar lists records related to a reference record.
func (s *Server) handleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	results, err := s.svc.FindSimilar(ctx, id, request.GetInt("limit", 0))
	if err != nil {
		return toolError("find similar failed", err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No similar contexts found."), nil
	}
	return mcp.NewToolResultText(formatResults(results, len(results), 0)), nil
}

// handleCountContexts counts records, optionally filtered.
func (s *Server) handleCountContexts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter *storage.QueryParams
	if params := filterParams(request); hasFilter(params) {
		filter = &params
	}

	n, err := s.svc.Count(ctx, filter)
	if err != nil {
		return toolError("count failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
}

// handleContextStats reports totals per type.
func (s *Server) handleContextStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError("stats failed", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n", stats.Total))
	for _, t := range storage.ContextTypes {
		sb.WriteString(fmt.Sprintf("%s: %d\n", t, stats.ByType[t]))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func filterParams(request mcp.CallToolRequest) storage.QueryParams {
	params := storage.QueryParams{
		Query:        request.GetString("query", ""),
		Tags:         splitList(request.GetString("tags", "")),
		ContractType: request.GetString("contract_type", ""),
	}
	for _, t := range splitList(request.GetString("types", "")) {
		params.Types = append(params.Types, storage.ContextType(t))
	}
	return params
}

func hasFilter(p storage.QueryParams) bool {
	return len(p.Types) > 0 || len(p.Tags) > 0 || p.ContractType != "" || strings.TrimSpace(p.Query) != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// toolError turns a service error into a tool result an agent can act on.
func toolError(prefix string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: context not found", prefix))
	case errors.Is(err, storage.ErrValidation):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
	case storage.IsStorageError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: storage unavailable: %v", prefix, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
	}
}

// formatResults renders records in a compact text form for agent consumption.
func formatResults(results []storage.ContextPayload, total, offset int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Showing %d of %d context(s):\n", len(results), total))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", offset+i+1))
		sb.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
		sb.WriteString(fmt.Sprintf("Title: %s\n", r.Metadata.Title))
		sb.WriteString(fmt.Sprintf("Type: %s\n", r.Type))
		if len(r.Metadata.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(r.Metadata.Tags, ", ")))
		}
		if r.Metadata.ContractType != "" {
			sb.WriteString(fmt.Sprintf("Contract: %s\n", r.Metadata.ContractType))
		}
		if r.Metadata.Language != "" {
			sb.WriteString(fmt.Sprintf("Language: %s\n", r.Metadata.Language))
		}
		sb.WriteString(fmt.Sprintf("Relevance: %.2f\n", r.Metadata.RelevanceScore))

		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
