package cmd

import (
	"errors"
	"fmt"

	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/spf13/cobra"
)

var (
	categorySet  string
	summaryClear bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [item-id]",
	Short: "Generate AI summaries",
	Long: `Summarize one item, or every item that has text but no summary yet.
With --clear the item's summary, category and entity link are removed so the
next run summarizes it afresh.

Examples:
  lifeadmin summarize
  lifeadmin summarize 3f1c2a9e-...
  lifeadmin summarize 3f1c2a9e-... --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize [item-id]",
	Short: "Assign life categories",
	Long: `Categorize one item, or every uncategorized item. With --set the category
is recorded as a correction and used to guide later categorization.

Examples:
  lifeadmin categorize
  lifeadmin categorize 3f1c2a9e-... --set insurance`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCategorize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd, categorizeCmd)

	summarizeCmd.Flags().BoolVar(&summaryClear, "clear", false, "remove the item's summary instead of generating one")
	categorizeCmd.Flags().StringVar(&categorySet, "set", "", "record this category for the item instead of asking the LLM")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	if summaryClear {
		if len(args) != 1 {
			return errors.New("--clear needs an item id")
		}
		if _, err := a.store.GetItem(ctx, args[0]); err != nil {
			return err
		}
		if err := a.store.DeleteSummary(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Cleared summary for %s\n", args[0])
		return nil
	}

	if !a.aiEnabled() {
		return llm.ErrDisabled
	}

	s := a.summarizer()
	if len(args) == 1 {
		sum, err := s.Generate(ctx, args[0])
		if err != nil {
			return err
		}
		if sum == nil {
			fmt.Println("Item has no text to summarize.")
			return nil
		}
		fmt.Printf("Summary:  %s\n", models.StringValue(sum.SummaryText))
		fmt.Printf("Type:     %s\n", models.StringValue(sum.DocumentType))
		fmt.Printf("Vendor:   %s\n", models.StringValue(sum.ExtractedVendor))
		fmt.Printf("Amount:   %s\n", models.StringValue(sum.ExtractedAmount))
		fmt.Printf("Date:     %s\n", models.StringValue(sum.ExtractedDate))
		return nil
	}

	n, err := s.SummarizeMissing(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Summarized %d items\n", n)
	return nil
}

func runCategorize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.categorizer()
	if categorySet != "" {
		if len(args) != 1 {
			return errors.New("--set needs an item id")
		}
		category := models.Category(categorySet)
		if !category.Valid() {
			return fmt.Errorf("unknown category %q (one of %v)", categorySet, models.CategoryKeys())
		}
		correction, err := c.Correct(ctx, args[0], category)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s -> %s\n", correction.Filename, orNone(correction.OldCategory), correction.NewCategory)
		return nil
	}

	if !a.aiEnabled() {
		return llm.ErrDisabled
	}
	if len(args) == 1 {
		category, err := c.Categorize(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(category)
		return nil
	}

	n, err := c.CategorizeAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Categorized %d items\n", n)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
