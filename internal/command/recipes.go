// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/meta"
	"github.com/staranto/recipectl/internal/output"
	"github.com/staranto/recipectl/internal/recipes"
)

var recipeColumns = []output.Column{
	{Key: "name", Title: "NAME"},
	{Key: "cuisine", Title: "CUISINE"},
	{Key: "cached", Title: "CACHED"},
	{Key: "image", Title: "IMAGE"},
}

// RecipesCommandBuilder returns the recipes command, which lists a recipe feed
// and optionally warms the image cache for it.
func RecipesCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "recipes",
		Usage:     "list recipes from a feed",
		UsageText: "recipectl recipes [--endpoint all|malformed|empty|URL] [--search TERM] [--prefetch]",
		Meta:      meta,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile(meta.Namespace, meta.Config.Source, &cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   fmt.Sprintf("feed name (%s) or URL", strings.Join(recipes.EndpointNames(), ", ")),
				Sources: cli.NewValueSourceChain(cli.EnvVar("RECIPECTL_ENDPOINT")),
				Value:   "all",
			}),
			&cli.StringFlag{
				Name:    "search",
				Aliases: []string{"q"},
				Usage:   "only recipes whose name or cuisine contains TERM",
			},
			&cli.BoolFlag{
				Name:  "prefetch",
				Usage: "load every recipe image into the cache",
			},
			&cli.BoolFlag{
				Name:  "large",
				Usage: "prefer the large photo",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "maximum image loads in flight with --prefetch",
				Sources: cli.NewValueSourceChain(
					yaml.YAML(meta.Namespace+"."+"concurrency", altsrc.StringSourcer(cfg.Source)),
				),
				Value: images.DefaultConcurrency,
				Validator: func(value int) error {
					return FlagValidators(value, PositiveIntValidator)
				},
			},
			&cli.BoolFlag{
				Name:  "group",
				Usage: "group recipes by first letter",
			},
		},
		Action: recipesAction,
	}
	return cb.Build()
}

func recipesAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	repo, err := recipes.NewRepository(NewFetcher(ctx), cmd.String("endpoint"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	all, err := repo.Fetch(ctx)
	if err != nil {
		return err
	}
	list := recipes.Search(all, cmd.String("search"))
	large := cmd.Bool("large")

	mgr, err := NewManager(ctx, cmd, images.WithDedup())
	if err != nil {
		return err
	}

	if cmd.Bool("prefetch") {
		report := mgr.Prefetch(ctx, list.ImageURLs(large), cmd.Int("concurrency"))
		for _, r := range report.Results {
			if r.Err != nil {
				log.WithError(r.Err).Warnf("failed to prefetch %s", r.URL)
			}
		}
		log.Infof("prefetch: %d cached, %d fetched, %d failed", report.Hits, report.Fetched, report.Failed)
		mgr.Wait()
	}

	rows := make([]map[string]interface{}, 0, len(list))
	for _, r := range list {
		img := r.BestImageURL(large)
		row := map[string]interface{}{
			"id":      r.ID.String(),
			"name":    r.Name,
			"cuisine": r.Cuisine,
			"title":   r.DisplayTitle(),
			"image":   img,
			"cached":  img != "" && mgr.IsCached(img),
			"source":  r.SourceURL,
			"youtube": r.YoutubeURL,
		}
		if cmd.Bool("group") {
			row["letter"] = r.FirstLetter()
		}
		rows = append(rows, row)
	}

	cols := recipeColumns
	if cmd.Bool("group") {
		cols = append([]output.Column{{Key: "letter", Title: "#"}}, recipeColumns...)
		if cmd.String("sort") == "" {
			return groupedEmit(cmd, rows, cols)
		}
	}
	return Emit(cmd, rows, cols)
}

// groupedEmit orders rows by letter and then name, case-insensitively, before
// rendering.
func groupedEmit(cmd *cli.Command, rows []map[string]interface{}, cols []output.Column) error {
	opts := OutputOptions(cmd)
	opts.Sort = "letter,name"
	return output.SliceDiceSpit(cmd.Root().Writer, rows, cols, opts)
}
