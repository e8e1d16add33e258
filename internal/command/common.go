// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/aws"
	"github.com/staranto/recipectl/internal/cacheutil"
	"github.com/staranto/recipectl/internal/config"
	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/meta"
	"github.com/staranto/recipectl/internal/output"
	"github.com/staranto/recipectl/internal/transport"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CommandBuilder constructs a cli.Command with the global flags, the meta and
// the shared validators wired in.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Commands  []*cli.Command
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder. Subcommands inherit
// the global flags through the parent.
func (cb *CommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags:    append(cb.Flags, NewGlobalFlags(cb.Meta.Namespace)...),
		Commands: cb.Commands,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: cb.Action,
	}
}

// CacheDir resolves the cache root from --cache-dir, falling back to the
// platform default.
func CacheDir(cmd *cli.Command) (string, error) {
	if dir := cmd.String("cache-dir"); dir != "" {
		return dir, nil
	}
	if dir, ok := cacheutil.DefaultDir(); ok {
		return dir, nil
	}
	return "", errors.New("unable to resolve a cache directory, use --cache-dir")
}

// NewManager builds an image manager from the command's flags.
func NewManager(ctx context.Context, cmd *cli.Command, opts ...images.Option) (*images.Manager, error) {
	dir, err := CacheDir(cmd)
	if err != nil {
		return nil, err
	}
	cache, err := cacheutil.New(dir)
	if err != nil {
		return nil, err
	}
	log.Debugf("cache dir: %s", dir)

	opts = append([]images.Option{images.WithTimeout(cmd.Duration("timeout"))}, opts...)
	return images.NewManager(cache, NewFetcher(ctx), opts...)
}

// NewFetcher returns a fetcher for http, https and s3 URLs. The S3 client is
// only built the first time an s3 URL is fetched.
func NewFetcher(ctx context.Context) transport.Fetcher {
	web := transport.NewHTTPFetcher(nil)

	s3Fetcher := sync.OnceValues(func() (transport.Fetcher, error) {
		region, _ := config.GetString("s3.region", "")
		profile, _ := config.GetString("s3.profile", "")
		endpoint, _ := config.GetString("s3.endpoint", "")
		client, err := aws.NewS3(ctx,
			aws.WithRegion(region),
			aws.WithProfile(profile),
			aws.WithEndpoint(endpoint))
		if err != nil {
			return nil, err
		}
		return transport.NewS3Fetcher(client), nil
	})

	return transport.Mux{
		"http":  web,
		"https": web,
		"s3": transport.FetcherFunc(func(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
			f, err := s3Fetcher()
			if err != nil {
				return nil, &transport.Error{Kind: transport.KindNetwork, URL: rawURL, Err: err}
			}
			return f.Fetch(ctx, rawURL, timeout)
		}),
	}
}

// OutputOptions collects the rendering flags.
func OutputOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format: cmd.String("output"),
		Color:  cmd.Bool("color"),
		Titles: cmd.Bool("titles"),
		Sort:   cmd.String("sort"),
		Filter: cmd.String("filter"),
	}
}

// Emit renders rows through the common output routine.
func Emit(cmd *cli.Command, rows []map[string]interface{}, cols []output.Column) error {
	return output.SliceDiceSpit(cmd.Root().Writer, rows, cols, OutputOptions(cmd))
}

// EmitValue renders a single value. Text output falls back to a one-row
// table.
func EmitValue(cmd *cli.Command, v any, row map[string]interface{}, cols []output.Column) error {
	opts := OutputOptions(cmd)
	if opts.Format == "json" || opts.Format == "yaml" {
		return output.Encode(cmd.Root().Writer, opts.Format, v)
	}
	return output.SliceDiceSpit(cmd.Root().Writer, []map[string]interface{}{row}, cols, opts)
}
