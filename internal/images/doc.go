// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package images is the single entry point for getting image bytes by URL.
//
// A Manager consults the disk cache first and only goes to the network on a
// miss. Successful fetches are written back to the cache in the background;
// failures are classified into apperr kinds and never cached or retried.
//
// Concurrent loads of the same URL each fetch independently unless the
// Manager is built WithDedup, in which case they share one in-flight fetch.
package images
