package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clipCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Save a web page to the vault",
	Long: `Fetch a single page (links are not followed), store the HTML and index its text.

Example:
  lifeadmin clip https://www.citizensinformation.ie/en/travel-and-recreation/passports/`,
	Args: cobra.ExactArgs(1),
	RunE: runClip,
}

func init() {
	rootCmd.AddCommand(clipCmd)
}

func runClip(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{blobs: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.ClipURL(ctx, args[0])
	if err != nil {
		return fmt.Errorf("clip failed: %w", err)
	}
	if res.Duplicate {
		fmt.Printf("Already saved as %s\n", res.ID)
		return nil
	}
	fmt.Printf("Saved %s as %s\n", res.Filename, res.ID)
	return nil
}
