// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/recipectl/internal/output"
)

// GlobalFlagsValidator checks the constraints that involve more than one flag
// or the filesystem.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if dir := c.String("cache-dir"); dir != "" {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return fmt.Errorf("--cache-dir %s is not a directory", dir)
		}
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func PositiveDurationValidator(value any) error {
	if value.(time.Duration) <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func PositiveIntValidator(value any) error {
	if value.(int) <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
