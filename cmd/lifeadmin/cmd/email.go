package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mfenderov/lifeadmin/internal/mailbox"
	"github.com/spf13/cobra"
)

var emailSince string

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Import emails and their attachments",
}

var emailSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import recent messages from the configured IMAP mailbox",
	Long: `Fetch recent messages from the IMAP mailbox and store each message and
its attachments. Messages imported before are skipped.

Examples:
  lifeadmin email sync
  lifeadmin email sync --since 2024-01-01`,
	RunE: runEmailSync,
}

var emailImportCmd = &cobra.Command{
	Use:   "import <file.eml...>",
	Short: "Import saved .eml files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEmailImport,
}

func init() {
	rootCmd.AddCommand(emailCmd)
	emailCmd.AddCommand(emailSyncCmd, emailImportCmd)

	emailSyncCmd.Flags().StringVar(&emailSince, "since", "", "only messages on or after this date (default: imap.lookback ago)")
}

func runEmailSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	since := time.Now().Add(-a.cfg.IMAP.Lookback)
	if emailSince != "" {
		since, err = time.Parse(time.DateOnly, emailSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
	}

	src, err := mailbox.NewIMAPSource(mailbox.IMAPConfig{
		Addr:       a.cfg.IMAP.Addr,
		Username:   a.cfg.IMAP.Username,
		Password:   a.cfg.IMAP.Password,
		Folder:     a.cfg.IMAP.Folder,
		Insecure:   a.cfg.IMAP.Insecure,
		MaxResults: a.cfg.IMAP.MaxResults,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Syncing %s since %s\n", a.cfg.IMAP.Folder, since.Format(time.DateOnly))
	res, err := a.engine.SyncMailbox(ctx, src, since)
	if err != nil {
		return fmt.Errorf("email sync failed: %w", err)
	}

	fmt.Printf("\nEmail sync complete:\n")
	fmt.Printf("  Fetched:     %d\n", res.Fetched)
	fmt.Printf("  Imported:    %d\n", res.Imported)
	fmt.Printf("  Skipped:     %d\n", res.Skipped)
	fmt.Printf("  Attachments: %d\n", res.Attachments)
	if len(res.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	return nil
}

func runEmailImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	failed := 0
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		res, err := a.engine.IngestEmail(ctx, raw)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		if res.Skipped {
			fmt.Printf("= %s (already imported)\n", path)
			continue
		}
		fmt.Printf("✓ %s -> %s (%d attachments)\n", path, res.Email.ID, len(res.Attachments))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(args))
	}
	return nil
}
