package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veritas/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached search results",
	Long: `Remove cached search results from the disk cache directory (cache.dir).

With --expired only entries past their TTL are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Cache.Dir == "" {
			fmt.Println("No disk cache configured (cache.dir is empty); nothing to clear.")
			return nil
		}

		disk := cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.TTL)
		if expired, _ := cmd.Flags().GetBool("expired"); expired {
			n, err := disk.Prune()
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			fmt.Printf("✓ Removed %d expired entries from %s\n", n, cfg.Cache.Dir)
			return nil
		}

		if err := disk.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("✓ Cleared cache: %s\n", cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().Bool("expired", false, "only remove expired entries")
}
