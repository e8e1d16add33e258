// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/meta"
	"github.com/staranto/recipectl/internal/recipes"
	"github.com/staranto/recipectl/internal/server"
)

// ServeCommandBuilder returns the serve command, which exposes the image
// cache and recipe feed over HTTP.
func ServeCommandBuilder(meta meta.Meta) *cli.Command {
	cb := &CommandBuilder{
		Name:      "serve",
		Usage:     "serve cached images and recipes over HTTP",
		UsageText: "recipectl serve [--addr :8080] [--no-metrics]",
		Meta:      meta,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("RECIPECTL_ADDR"),
					yaml.YAML(meta.Namespace+"."+"addr", altsrc.StringSourcer(cfg.Source)),
				),
				Value: ":8080",
			},
			&cli.BoolWithInverseFlag{
				Name:  "metrics",
				Usage: "expose prometheus metrics on /metrics",
				Sources: cli.NewValueSourceChain(
					yaml.YAML(meta.Namespace+"."+"metrics", altsrc.StringSourcer(cfg.Source)),
				),
				Value: true,
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "recipe feed name or URL backing /recipes",
				Value:   "all",
			},
		},
		Action: serveAction,
	}
	return cb.Build()
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := NewManager(ctx, cmd, images.WithDedup(), images.WithMetrics(images.NewMetrics(reg)))
	if err != nil {
		return err
	}
	defer m.Wait()

	repo, err := recipes.NewRepository(NewFetcher(ctx), cmd.String("endpoint"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	srv := server.New(m, repo, &server.Config{
		MetricsEnabled: cmd.Bool("metrics"),
		Gatherer:       reg,
	})
	return srv.Run(ctx, cmd.String("addr"))
}
