package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault health and counts",
	RunE:  runStatus,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(statusCmd, reindexCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{index: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Ping(); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	items, err := a.store.CountLiveItems(ctx)
	if err != nil {
		return err
	}
	stats, err := a.categorizer().Stats(ctx)
	if err != nil {
		return err
	}
	active, err := a.store.CountActiveInsights(ctx, "")
	if err != nil {
		return err
	}

	fmt.Printf("Database:      %s (%s)\n", a.cfg.Database.Driver, a.cfg.Database.DSN)
	fmt.Printf("Documents:     %d (%d uncategorized)\n", items, stats.Uncategorized)
	fmt.Printf("Insights:      %d active\n", active)
	fmt.Printf("AI:            %s\n", enabledLabel(a.aiEnabled(), a.cfg.LLM.Provider+"/"+a.cfg.LLM.Model))
	search := "filename only"
	if a.index != nil {
		search = "unreachable"
		if a.index.Ping(ctx) {
			search = "elasticsearch " + a.cfg.Elasticsearch.Index
		}
	}
	fmt.Printf("Search:        %s\n", search)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.engine.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	fmt.Printf("Indexed %d documents\n", n)
	return nil
}

func enabledLabel(on bool, detail string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + detail + ")"
}
