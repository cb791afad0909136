package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mfenderov/lifeadmin/internal/overview"
	"github.com/mfenderov/lifeadmin/internal/pipeline"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/spf13/cobra"
)

var (
	insightsStatus   string
	insightsCategory string
	insightsLimit    int
	insightsOnly     string
	outputFormat     string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate and manage insights",
}

var insightsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the insight generators",
	Long: `Sweep expired insights, then run the rule-based generators and, with an LLM
configured, summaries, categorization, AI insights and category analysis.
Running it twice creates no duplicates. --only limits the run to one group of
generators; the sweep always runs.

Examples:
  lifeadmin insights generate
  lifeadmin insights generate --only rules
  lifeadmin insights generate --only categories --format json`,
	RunE: runInsightsGenerate,
}

var insightsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List insights",
	RunE:  runInsightsList,
}

var insightsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired and long-dismissed insights",
	RunE:  runInsightsSweep,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show documents and insights per life category",
	RunE:  runOverview,
}

func init() {
	rootCmd.AddCommand(insightsCmd, overviewCmd)
	insightsCmd.AddCommand(insightsGenerateCmd, insightsListCmd, insightsSweepCmd,
		transitionCmd("dismiss", "Dismiss an insight", (*store.Store).DismissInsight),
		transitionCmd("resolve", "Mark an insight resolved", (*store.Store).ResolveInsight),
		transitionCmd("unresolve", "Return a resolved insight to active", (*store.Store).UnresolveInsight),
	)

	insightsGenerateCmd.Flags().StringVar(&insightsOnly, "only", "all", "all, rules, ai or categories")
	insightsListCmd.Flags().StringVar(&insightsStatus, "status", string(models.StatusActive), "active, dismissed or resolved")
	insightsListCmd.Flags().StringVar(&insightsCategory, "category", "", "only insights for this category")
	insightsListCmd.Flags().IntVar(&insightsLimit, "limit", 50, "maximum number of insights")
	insightsCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	overviewCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
}

func transitionCmd(use, short string, apply func(*store.Store, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <insight-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, needs{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := apply(a.store, ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", use, args[0])
			return nil
		},
	}
}

func runInsightsGenerate(cmd *cobra.Command, args []string) error {
	scope, err := pipeline.ParseScope(insightsOnly)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline().Generate(ctx, scope)
	if err != nil {
		return fmt.Errorf("insight generation failed: %w", err)
	}
	if outputFormat == "json" {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(r *pipeline.Report) {
	fmt.Printf("Insight generation complete (AI: %t):\n", r.AIEnabled)
	fmt.Printf("  Swept:            %d expired, %d dismissed\n", r.Expired, r.Dismissed)
	fmt.Printf("  Vendor patterns:  %d\n", r.VendorPatterns)
	fmt.Printf("  Spending summary: %d\n", r.SpendingSummary)
	fmt.Printf("  Upcoming dates:   %d\n", r.UpcomingDates)
	if r.AIEnabled {
		fmt.Printf("  Summarized:       %d\n", r.Summarized)
		fmt.Printf("  Categorized:      %d\n", r.Categorized)
		fmt.Printf("  Anomalies:        %d\n", r.Anomalies)
		fmt.Printf("  Trends:           %d\n", r.Trends)
		fmt.Printf("  Relationships:    %d\n", r.Relationships)
		fmt.Printf("  Recommendations:  %d\n", r.Recommendations)
		for _, c := range r.Categories {
			fmt.Printf("  %-17s %s (%d docs, %d created)\n", string(c.Category)+":", c.Status, c.Documents, c.Created)
		}
		if len(r.Categories) > 0 {
			fmt.Printf("  Est. tokens:      %d\n", r.EstimatedTokens)
		}
	}
	fmt.Printf("  Created:          %d\n", r.Created())
	fmt.Printf("  Duration:         %v\n", r.Duration.Round(time.Millisecond))
	if len(r.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("    - %v\n", e)
		}
	}
}

func runInsightsList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	status := models.InsightStatus(insightsStatus)
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", insightsStatus)
	}
	insights, err := a.store.ListInsights(ctx, store.InsightFilter{
		Status:   status,
		Category: insightsCategory,
		Limit:    insightsLimit,
	})
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(insights)
	}
	if len(insights) == 0 {
		fmt.Println("No insights.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tTYPE\tCATEGORY\tTITLE")
	for _, in := range insights {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", in.ID, in.Priority, in.InsightType, in.Category, in.Title)
	}
	return w.Flush()
}

func runInsightsSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.store.SweepInsights(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d expired and %d dismissed insights\n", res.Expired, res.Dismissed)
	return nil
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	ov, err := overview.Build(ctx, a.store)
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(ov)
	}

	fmt.Printf("%d documents, %d uncategorized, %d active insights (%d high priority)\n\n",
		ov.TotalDocuments, ov.Uncategorized, ov.TotalInsights, ov.TotalHighPriority)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tCATEGORY\tDOCS\t%\tINSIGHTS\tSTATUS")
	for _, c := range ov.Categories {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%d\t%s\n", c.Icon, c.Name, c.DocCount, c.Percentage, c.InsightCount, c.StatusLabel)
	}
	return w.Flush()
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
