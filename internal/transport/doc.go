// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package transport fetches raw bytes for a URL over HTTP(S) or S3 and
// classifies failures (timeout, network, HTTP status, empty body) so callers
// can map them into their own error vocabulary.
package transport
