// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws builds AWS SDK v2 clients for fetching images stored in S3 or an
// S3-compatible object store.
package aws
