// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cacheutil provides the on-disk image cache. Entries are raw bytes
// stored under a single root directory, named by a short SHA-256 prefix of the
// source URL plus its file extension. There is no index or metadata; the
// directory listing is the cache.
package cacheutil
