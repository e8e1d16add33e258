// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/cacheutil"
	"github.com/staranto/recipectl/internal/meta"
	"github.com/staranto/recipectl/internal/output"
)

var statsColumns = []output.Column{
	{Key: "dir", Title: "DIR"},
	{Key: "entries", Title: "ENTRIES"},
	{Key: "size", Title: "SIZE"},
}

// CacheCommandBuilder returns the cache command with clear and stats.
func CacheCommandBuilder(meta meta.Meta) *cli.Command {
	clearCmd := &CommandBuilder{
		Name:  "clear",
		Usage: "remove every cached image",
		Meta:  meta,
		Flags: []cli.Flag{
			&cli.BoolWithInverseFlag{
				Name:  "wait",
				Usage: "block until the cache is cleared",
				Value: true,
			},
		},
		Action: cacheClearAction,
	}

	stats := &CommandBuilder{
		Name:   "stats",
		Usage:  "show cache entry count and size",
		Meta:   meta,
		Action: cacheStatsAction,
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "manage the image cache",
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{clearCmd.Build(), stats.Build()},
	}
}

func openCache(cmd *cli.Command) (*cacheutil.Cache, error) {
	dir, err := CacheDir(cmd)
	if err != nil {
		return nil, err
	}
	return cacheutil.New(dir)
}

// cacheClearAction never reports a clear failure; it is logged by the cache.
// --no-wait returns as soon as the clear is dispatched, which in a CLI means
// it may not finish.
func cacheClearAction(ctx context.Context, cmd *cli.Command) error {
	m, err := NewManager(ctx, cmd)
	if err != nil {
		return err
	}
	m.ClearCache()
	if cmd.Bool("wait") {
		m.Wait()
	}
	return nil
}

func cacheStatsAction(ctx context.Context, cmd *cli.Command) error {
	cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	stats, err := cache.Stats()
	if err != nil {
		return err
	}

	row := map[string]interface{}{
		"dir":     stats.Dir,
		"entries": stats.Entries,
		"size":    humanize.Bytes(uint64(stats.TotalBytes)),
	}
	return EmitValue(cmd, stats, row, statsColumns)
}
