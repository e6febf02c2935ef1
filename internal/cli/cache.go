package cli

import (
	"fmt"
	"time"

	"github.com/aily-project/aily-builder/internal/objcache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the object cache (C4).",
	}
	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheDiffCommand())
	return cmd
}

func openCache(root string) (*objcache.Cache, error) {
	if root == "" {
		root = viper.GetString("build.cache_root")
	}
	return objcache.New(root)
}

func newCacheStatsCommand() *cobra.Command {
	var cacheRoot string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cache entry count, size and hardlink/copy counters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cacheRoot)
			if err != nil {
				return err
			}
			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("entries: %d\nbytes: %d\nhardlinks: %d\ncopies: %d\n",
				stats.Count, stats.Bytes, stats.HardLinks, stats.Copies)
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "Cache root (default: configured build.cache_root).")
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheRoot string
	var maxAge time.Duration
	var pattern string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Sweep cache entries older than --max-age (default: everything).",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cacheRoot)
			if err != nil {
				return err
			}
			removed, err := c.Sweep(maxAge, pattern)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "Cache root (default: configured build.cache_root).")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove entries whose meta is older than this (0 removes all).")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only remove keys containing this substring.")
	return cmd
}

func newCacheDiffCommand() *cobra.Command {
	var cacheRoot string
	cmd := &cobra.Command{
		Use:   "diff <keyA> <keyB>",
		Short: "Diff two cache entries' recorded recipe text, to explain a cache miss.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cacheRoot)
			if err != nil {
				return err
			}
			a, err := c.ReadMeta(args[0])
			if err != nil {
				return err
			}
			b, err := c.ReadMeta(args[1])
			if err != nil {
				return err
			}
			fmt.Print(objcache.Diff(a, b))
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "Cache root (default: configured build.cache_root).")
	return cmd
}
