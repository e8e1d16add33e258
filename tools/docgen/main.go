// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/command"
)

// Minimal doc generator. For every top level command it writes:
//   - docs/commands/<cmd>.md rendered from the command tree
//   - docs/man/share/man1/recipectl-<cmd>.1 via md2man

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	commandsDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")

	for _, d := range []string{commandsDir, manOutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fatalf("creating output dir %s: %v", d, err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"recipectl"})
	if err != nil {
		fatalf("building command tree: %v", err)
	}

	var processed int
	for _, cmd := range app.Commands {
		if cmd.Hidden || cmd.Name == "help" {
			continue
		}

		md := renderMarkdown(cmd)
		mdPath := filepath.Join(commandsDir, cmd.Name+".md")
		if err := writeFileIfChanged(mdPath, []byte(md), writeOnlyIfChanged); err != nil {
			fatalf("writing markdown for %s: %v", cmd.Name, err)
		}

		manPath := filepath.Join(manOutDir, fmt.Sprintf("recipectl-%s.1", cmd.Name))
		if err := writeFileIfChanged(manPath, md2man.Render([]byte(md)), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd.Name, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no commands found")
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

// renderMarkdown documents cmd and its subcommands in the layout md2man
// expects: a title line followed by NAME, SYNOPSIS and section headers.
func renderMarkdown(cmd *cli.Command) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%% recipectl-%s(1)\n\n", cmd.Name))
	b.WriteString("# NAME\n\n")
	b.WriteString(fmt.Sprintf("recipectl-%s - %s\n\n", cmd.Name, cmd.Usage))

	b.WriteString("# SYNOPSIS\n\n")
	if cmd.UsageText != "" {
		b.WriteString("`" + cmd.UsageText + "`\n\n")
	} else {
		b.WriteString(fmt.Sprintf("`recipectl %s [flags]`\n\n", cmd.Name))
	}

	writeFlags(&b, cmd.Flags)

	if len(cmd.Commands) > 0 {
		b.WriteString("# COMMANDS\n\n")
		for _, sub := range cmd.Commands {
			b.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", sub.Name, sub.Usage))
			if sub.UsageText != "" {
				b.WriteString("`" + sub.UsageText + "`\n\n")
			}
			writeFlags(&b, sub.Flags)
		}
	}
	return b.String()
}

func writeFlags(b *strings.Builder, flags []cli.Flag) {
	if len(flags) == 0 {
		return
	}
	b.WriteString("# OPTIONS\n\n")
	for _, f := range flags {
		var names []string
		for _, n := range f.Names() {
			if len(n) == 1 {
				names = append(names, "-"+n)
			} else {
				names = append(names, "--"+n)
			}
		}
		usage := ""
		if df, ok := f.(cli.DocGenerationFlag); ok {
			usage = df.GetUsage()
		}
		b.WriteString(fmt.Sprintf("**%s**\n: %s\n\n", strings.Join(names, ", "), usage))
	}
}
