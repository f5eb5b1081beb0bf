package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Show database statistics",
	Long:  `Display statistics about registered users and travel stories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		fmt.Println("Database Statistics:")
		fmt.Printf("Users: %s\n", humanize.Comma(stats.Users))
		fmt.Printf("Travel Stories: %s\n", humanize.Comma(stats.Stories))
		fmt.Printf("Favourite Stories: %s\n", humanize.Comma(stats.FavouriteCount))

		if stats.LatestStoryTime != nil {
			fmt.Printf("Latest Story: %s (%s)\n", stats.LatestStoryTime.Format(time.RFC3339), timediff.TimeDiff(*stats.LatestStoryTime))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbStatsCmd)
}
