// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/command"
	"github.com/staranto/recipectl/internal/config"
	mylog "github.com/staranto/recipectl/internal/log"
	"github.com/staranto/recipectl/internal/version"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	args, err = mangleArguments(app, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		printError(os.Stderr, err)
		return 2
	}

	return 0
}

// printError shows classified failures the way a user should see them.
func printError(w io.Writer, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, ae.UserMessage())
	if action := ae.RecoveryAction(); action != "" {
		fmt.Fprintln(w, action)
	}
	log.WithError(err).Debugf("%s", ae.Kind)
}

// mangleArguments expands an argument set from the config file into args.
// The set is named by an @name argument anywhere after the command path and
// defaults to @defaults. Its arguments are inserted right after the command
// path, so anything given on the command line is parsed later and wins.
//
//	recipes:
//	  defaults: [--titles]
//	  wide: --large --prefetch
func mangleArguments(app *cli.Command, args []string) ([]string, error) {
	if len(args) < 2 {
		return args, nil
	}

	// Walk the command path: recipectl image get ...
	idx := 1
	var path []string
	for cur := app; idx < len(args); idx++ {
		sub := cur.Command(args[idx])
		if sub == nil {
			break
		}
		path = append(path, sub.Name)
		cur = sub
	}
	if len(path) == 0 {
		return args, nil
	}

	preamble := make([]string, idx)
	copy(preamble, args[:idx])

	// Short-circuit for --help/-h. If help is requested, just keep the path
	// and add --help flag.
	for _, a := range args[idx:] {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help"), nil
		}
	}

	set := "defaults"
	explicit := false
	rest := make([]string, 0, len(args)-idx)
	for _, a := range args[idx:] {
		if !explicit && len(a) > 1 && strings.HasPrefix(a, "@") {
			set = a[1:]
			explicit = true
			continue
		}
		rest = append(rest, a)
	}

	key := strings.Join(path, ".") + "." + set
	setArgs, err := config.GetStringSlice(key)
	if err != nil && explicit {
		return nil, fmt.Errorf("argument set @%s not found (%s)", set, key)
	}

	var expanded []string
	for _, arg := range setArgs {
		expanded = append(expanded, strings.Fields(arg)...)
	}

	out := append(preamble, expanded...)
	out = append(out, rest...)
	log.Debugf("set=%s, args=%v", set, out)
	return out, nil
}
