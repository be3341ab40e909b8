package mcp

import "github.com/mark3labs/mcp-go/mcp"

var contextTypeNames = []string{
	"best_practice", "code_example", "error_pattern", "documentation",
	"security_tip", "optimization", "deployment_tool",
}

// storeContextTool defines the store_context MCP tool.
var storeContextTool = mcp.NewTool("store_context",
	mcp.WithDescription("Store a knowledge record (best practice, code example, security tip, ...) and return its id."),
	mcp.WithString("type",
		mcp.Required(),
		mcp.Description("Kind of record"),
		mcp.Enum(contextTypeNames...),
	),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Short title"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("Record body, usually Markdown or source code"),
	),
	mcp.WithString("description",
		mcp.Description("One-line summary"),
	),
	mcp.WithString("tags",
		mcp.Description("Comma-separated tags, e.g. \"token,transfer\""),
	),
	mcp.WithNumber("relevance_score",
		mcp.Description("Non-negative ranking score; higher ranks first"),
	),
	mcp.WithString("contract_type",
		mcp.Description("Contract category the record applies to, e.g. \"token\""),
	),
	mcp.WithString("language",
		mcp.Description("Programming language of code content"),
	),
	mcp.WithString("author",
		mcp.Description("Who contributed the record"),
	),
)

// getContextTool defines the get_context MCP tool.
var getContextTool = mcp.NewTool("get_context",
	mcp.WithDescription("Get a stored record by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Record id"),
	),
)

// queryContextTool defines the query_context MCP tool.
var queryContextTool = mcp.NewTool("query_context",
	mcp.WithDescription("Find records by type, tags, contract type and free text. Results are ordered by relevance score."),
	mcp.WithString("query",
		mcp.Description("Free text; every word must appear in the content, title, description or tags"),
	),
	mcp.WithString("types",
		mcp.Description("Comma-separated record types"),
	),
	mcp.WithString("tags",
		mcp.Description("Comma-separated tags; a record matches if it has any of them"),
	),
	mcp.WithString("contract_type",
		mcp.Description("Exact contract type"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Number of results to skip"),
	),
)

// updateContextTool defines the update_context MCP tool.
var updateContextTool = mcp.NewTool("update_context",
	mcp.WithDescription("Update selected fields of a stored record. Omitted fields are left unchanged."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Record id"),
	),
	mcp.WithString("type",
		mcp.Description("New record type"),
		mcp.Enum(contextTypeNames...),
	),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("content", mcp.Description("New body")),
	mcp.WithString("description", mcp.Description("New summary")),
	mcp.WithString("tags", mcp.Description("Comma-separated tags replacing the current ones; empty clears them")),
	mcp.WithNumber("relevance_score", mcp.Description("New ranking score")),
	mcp.WithString("contract_type", mcp.Description("New contract type; empty clears it")),
	mcp.WithString("language", mcp.Description("New language")),
	mcp.WithString("author", mcp.Description("New author")),
)

// deleteContextTool defines the delete_context MCP tool.
var deleteContextTool = mcp.NewTool("delete_context",
	mcp.WithDescription("Delete a stored record by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Record id"),
	),
)

// findSimilarTool defines the find_similar_contexts MCP tool.
var findSimilarTool = mcp.NewTool("find_similar_contexts",
	mcp.WithDescription("Find records of the same type sharing at least one tag with the given record."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Reference record id"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results (default 5)"),
	),
)

// countContextsTool defines the count_contexts MCP tool.
var countContextsTool = mcp.NewTool("count_contexts",
	mcp.WithDescription("Count stored records, optionally restricted by the same filters as query_context."),
	mcp.WithString("query", mcp.Description("Free text filter")),
	mcp.WithString("types", mcp.Description("Comma-separated record types")),
	mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	mcp.WithString("contract_type", mcp.Description("Exact contract type")),
)

// contextStatsTool defines the context_stats MCP tool.
var contextStatsTool = mcp.NewTool("context_stats",
	mcp.WithDescription("Get the total number of stored records and a breakdown by type."),
)
