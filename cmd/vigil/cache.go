package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/cache"
	"github.com/panbanda/vigil/internal/output"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the diagnostic cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Flags:  commonFlags(),
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Flags:  commonFlags(),
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, error) {
	loaded, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config.Cache
	return cache.New(cfg.Dir, cfg.TTL, cfg.Enabled)
}

func runCacheStats(c *cli.Context) error {
	dc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := dc.GetStats()
	if err != nil {
		return err
	}
	table := output.NewTable("Cache", []string{"Entries", "Size", "Oldest", "Newest"}, [][]string{{
		fmt.Sprint(stats.Entries),
		fmt.Sprintf("%d bytes", stats.TotalSize),
		stats.OldestAge.Round(time.Second).String(),
		stats.NewestAge.Round(time.Second).String(),
	}}, nil, stats)
	return output.NewWriterFormatter(output.FormatText, c.App.Writer, false).Output(table)
}

func runCacheClear(c *cli.Context) error {
	dc, err := openCache(c)
	if err != nil {
		return err
	}
	if err := dc.Clear(); err != nil {
		return err
	}
	output.NewWriterFormatter(output.FormatText, c.App.Writer, false).Success("Cache cleared")
	return nil
}
