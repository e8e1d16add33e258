// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package recipes fetches the recipe list and provides the client-side
// search, sort and grouping used to render it and to pick which images to
// prefetch.
package recipes
