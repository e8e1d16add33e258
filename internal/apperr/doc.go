// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package apperr is the error vocabulary surfaced to callers of the image and
// recipe layers. Transport failures are classified into a small set of kinds
// that a presentation layer can render and decide whether to offer a retry.
package apperr
