package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/overview"
	"github.com/mfenderov/lifeadmin/internal/search"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Server exposes the vault to MCP clients.
type Server struct {
	mcpServer *server.MCPServer
	store     *store.Store
	search    *search.Service
}

// NewServer creates a new MCP server with the vault tools registered.
func NewServer(config Config, s *store.Store, svc *search.Service) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: mcpServer,
		store:     s,
		search:    svc,
	}

	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search vault documents by keyword. Returns document metadata and AI summaries."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, srv.searchHandler)

	naturalTool := mcp.NewTool("ask_documents",
		mcp.WithDescription("Find documents with a natural-language question such as \"car insurance from last year\". Requires AI to be enabled."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question in plain language"),
		),
	)
	mcpServer.AddTool(naturalTool, srv.naturalHandler)

	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get a document by ID, including its extracted text and summary"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document ID to retrieve"),
		),
	)
	mcpServer.AddTool(getDocTool, srv.getDocumentHandler)

	insightsTool := mcp.NewTool("list_insights",
		mcp.WithDescription("List generated insights such as renewals, anomalies and spending summaries"),
		mcp.WithString("status",
			mcp.Description("Insight status (default: active)"),
			mcp.Enum(string(models.StatusActive), string(models.StatusDismissed), string(models.StatusResolved)),
		),
		mcp.WithString("category",
			mcp.Description("Restrict to one life category"),
			mcp.Enum(models.CategoryKeys()...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of insights (default: 50)"),
		),
	)
	mcpServer.AddTool(insightsTool, srv.insightsHandler)

	overviewTool := mcp.NewTool("category_overview",
		mcp.WithDescription("Summarize document counts and outstanding insights per life category"),
	)
	mcpServer.AddTool(overviewTool, srv.overviewHandler)

	return srv
}

func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	items, err := s.search.Keyword(ctx, query, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(briefs(items))
}

func (s *Server) naturalHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	res, err := s.search.Natural(ctx, question, 20)
	if errors.Is(err, llm.ErrDisabled) {
		return mcp.NewToolResultError("AI features not enabled; use search_documents instead"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"explanation": res.Explanation,
		"documents":   briefs(res.Items),
	})
}

func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	item, err := s.store.GetItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && item.IsDeleted()) {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}
	return jsonResult(item)
}

func (s *Server) insightsHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.InsightFilter{
		Status:   models.InsightStatus(req.GetString("status", string(models.StatusActive))),
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", 50),
	}
	if !filter.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status: %s", filter.Status)), nil
	}

	insights, err := s.store.ListInsights(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list insights failed: %v", err)), nil
	}
	return jsonResult(insights)
}

func (s *Server) overviewHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ov, err := overview.Build(ctx, s.store)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("overview failed: %v", err)), nil
	}
	return jsonResult(ov)
}

// brief is the search-result shape: metadata and summary, no full text.
type brief struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	CreatedAt    string `json:"created_at"`
	Category     string `json:"category,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Vendor       string `json:"vendor,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Date         string `json:"date,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

func briefs(items []models.Item) []brief {
	out := make([]brief, 0, len(items))
	for _, item := range items {
		b := brief{
			ID:        item.ID,
			Filename:  item.OriginalFilename,
			CreatedAt: item.CreatedAt.Format("2006-01-02"),
		}
		if sum := item.Summary; sum != nil {
			b.Category = models.StringValue(sum.Category)
			b.DocumentType = models.StringValue(sum.DocumentType)
			b.Vendor = models.StringValue(sum.ExtractedVendor)
			b.Amount = models.StringValue(sum.ExtractedAmount)
			b.Date = models.StringValue(sum.ExtractedDate)
			b.Summary = models.StringValue(sum.SummaryText)
		}
		out = append(out, b)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
