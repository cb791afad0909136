package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/mfenderov/lifeadmin/internal/ingestion"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Add files to the vault",
	Long: `Upload files to object storage, extract their text and record them.

Files whose content is already in the vault are reported as duplicates.

Examples:
  lifeadmin upload ~/Downloads/car-insurance-2024.pdf
  lifeadmin upload scans/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		res, err := a.engine.Upload(ctx, ingestion.Upload{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		if res.Duplicate {
			fmt.Printf("= %s (duplicate of %s)\n", path, res.ID)
			continue
		}
		fmt.Printf("✓ %s -> %s (%d bytes, text: %t)\n", path, res.ID, res.SizeBytes, res.HasText)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}
