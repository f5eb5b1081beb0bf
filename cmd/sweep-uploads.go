package cmd

import (
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/wanderlust/internal/media"
	"github.com/spf13/cobra"
)

var sweepUploadsCmd = &cobra.Command{
	Use:   "sweep-uploads",
	Short: "Remove uploads that no story references",
	Long:  `Run the upload janitor once. Uploads younger than the configured grace period are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		store, err := media.NewStorage(cmd.Context(), cfg.Media)
		if err != nil {
			return fmt.Errorf("failed to initialize media storage: %w", err)
		}

		result, err := media.NewJanitor(store, db, cfg.Media.Janitor.GracePeriod).Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to sweep uploads: %w", err)
		}

		freed, _ := safecast.Convert[uint64](result.Freed)
		fmt.Printf("Scanned: %d\n", result.Scanned)
		fmt.Printf("Removed: %d\n", result.Removed)
		fmt.Printf("Freed: %s\n", humanize.Bytes(freed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepUploadsCmd)
}
