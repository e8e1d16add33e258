// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/cacheutil"
	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/meta"
	"github.com/staranto/recipectl/internal/output"
)

var imageColumns = []output.Column{
	{Key: "url", Title: "URL"},
	{Key: "cache", Title: "CACHE"},
	{Key: "size", Title: "SIZE"},
	{Key: "key", Title: "KEY"},
}

var cachedColumns = []output.Column{
	{Key: "url", Title: "URL"},
	{Key: "cached", Title: "CACHED"},
	{Key: "key", Title: "KEY"},
}

var keyColumns = []output.Column{
	{Key: "url", Title: "URL"},
	{Key: "key", Title: "KEY"},
	{Key: "path", Title: "PATH"},
}

// ImageCommandBuilder returns the image command and its get, cached and key
// subcommands.
func ImageCommandBuilder(meta meta.Meta) *cli.Command {
	get := &CommandBuilder{
		Name:      "get",
		Usage:     "load images through the cache",
		UsageText: "recipectl image get [--out FILE|-] URL...",
		Meta:      meta,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "write the image bytes to FILE, or - for stdout (single URL only)",
			},
			&cli.BoolFlag{
				Name:  "dedup",
				Usage: "coalesce concurrent loads of the same URL",
			},
		},
		Action: imageGetAction,
	}

	cached := &CommandBuilder{
		Name:      "cached",
		Usage:     "report whether images are cached, without fetching",
		UsageText: "recipectl image cached URL...",
		Meta:      meta,
		Action:    imageCachedAction,
	}

	key := &CommandBuilder{
		Name:      "key",
		Usage:     "print the cache key and entry path for URLs",
		UsageText: "recipectl image key URL...",
		Meta:      meta,
		Action:    imageKeyAction,
	}

	return &cli.Command{
		Name:  "image",
		Usage: "image cache operations",
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{get.Build(), cached.Build(), key.Build()},
	}
}

func urlArgs(cmd *cli.Command) ([]string, error) {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return nil, errors.New("at least one URL is required")
	}
	return urls, nil
}

func imageGetAction(ctx context.Context, cmd *cli.Command) error {
	urls, err := urlArgs(cmd)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if out != "" && len(urls) > 1 {
		return errors.New("--out accepts a single URL")
	}

	var opts []images.Option
	if cmd.Bool("dedup") {
		opts = append(opts, images.WithDedup())
	}
	m, err := NewManager(ctx, cmd, opts...)
	if err != nil {
		return err
	}
	// Let the background cache writes land before the process exits.
	defer m.Wait()

	var rows []map[string]interface{}
	for _, u := range urls {
		img, err := m.Get(ctx, u)
		if err != nil {
			return err
		}
		log.Debugf("loaded %s (%d bytes, hit=%t)", u, len(img.Data), img.Hit)

		switch out {
		case "":
		case "-":
			_, err = cmd.Root().Writer.Write(img.Data)
			return err
		default:
			if err := os.WriteFile(out, img.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
		}

		state := "MISS"
		if img.Hit {
			state = "HIT"
		}
		rows = append(rows, map[string]interface{}{
			"url":   u,
			"cache": state,
			"size":  humanize.Bytes(uint64(len(img.Data))),
			"bytes": len(img.Data),
			"key":   cacheutil.Key(u),
		})
	}

	return Emit(cmd, rows, imageColumns)
}

func imageCachedAction(ctx context.Context, cmd *cli.Command) error {
	urls, err := urlArgs(cmd)
	if err != nil {
		return err
	}
	m, err := NewManager(ctx, cmd)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, map[string]interface{}{
			"url":    u,
			"cached": m.IsCached(u),
			"key":    cacheutil.Key(u),
		})
	}
	return Emit(cmd, rows, cachedColumns)
}

func imageKeyAction(ctx context.Context, cmd *cli.Command) error {
	urls, err := urlArgs(cmd)
	if err != nil {
		return err
	}
	dir, err := CacheDir(cmd)
	if err != nil {
		return err
	}
	cache, err := cacheutil.New(dir)
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, map[string]interface{}{
			"url":  u,
			"key":  cacheutil.Key(u),
			"path": cache.EntryPath(u),
		})
	}
	return Emit(cmd, rows, keyColumns)
}
