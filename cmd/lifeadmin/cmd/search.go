package cmd

import (
	"fmt"

	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/spf13/cobra"
)

var (
	searchLimit   int
	searchFormat  string
	searchNatural bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find documents",
	Long: `Search the vault by keyword, or with --natural let the LLM turn a question
into filters over categories, vendors, document types and dates.

Examples:
  # Keyword search
  lifeadmin search "electric ireland"

  # Natural language
  lifeadmin search --natural "car insurance from last year"

  # JSON output
  lifeadmin search "passport" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().BoolVar(&searchNatural, "natural", false, "Interpret the query with the LLM")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{index: true})
	if err != nil {
		return err
	}
	defer a.Close()

	query := args[0]
	svc := a.search()

	var items []models.Item
	if searchNatural {
		if !a.aiEnabled() {
			return llm.ErrDisabled
		}
		res, err := svc.Natural(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if searchFormat == "json" {
			return printJSON(res)
		}
		fmt.Printf("%s\n\n", res.Explanation)
		items = res.Items
	} else {
		items, err = svc.Keyword(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if searchFormat == "json" {
			return printJSON(items)
		}
	}

	if len(items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(items))
	for i, item := range items {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("File:    %s\n", item.OriginalFilename)
		fmt.Printf("ID:      %s\n", item.ID)
		fmt.Printf("Added:   %s\n", item.CreatedAt.Format("2006-01-02"))
		if sum := item.Summary; sum != nil {
			fmt.Printf("Category: %s\n", orNone(models.StringValue(sum.Category)))
			if v := models.StringValue(sum.ExtractedVendor); v != "" {
				fmt.Printf("Vendor:  %s\n", v)
			}
			if s := models.StringValue(sum.SummaryText); s != "" {
				fmt.Printf("Summary: %s\n", s)
			}
		}
		fmt.Println()
	}
	return nil
}
