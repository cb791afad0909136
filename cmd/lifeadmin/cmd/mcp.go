package cmd

import (
	"fmt"

	"github.com/mfenderov/lifeadmin/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for document retrieval.

The server communicates via stdio and provides these tools:
  - search_documents: Search documents by keyword
  - ask_documents: Natural-language document search (AI only)
  - get_document: Get a document with its text and summary
  - list_insights: List active, dismissed or resolved insights
  - category_overview: Documents and insights per life category

Example:
  lifeadmin mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{index: true})
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewServer(mcp.Config{
		Name:    a.cfg.MCP.Name,
		Version: a.cfg.MCP.Version,
	}, a.store, a.search())

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
