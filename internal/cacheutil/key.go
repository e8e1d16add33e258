// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// KeyHashLen is the number of hex characters of the digest kept in a key.
// Truncation trades collision resistance for short filenames.
const KeyHashLen = 16

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Key derives the cache filename for rawURL: the first KeyHashLen hex chars
// of SHA-256 over the canonical URL string, plus the lowercased path
// extension when there is a filename-safe one.
func Key(rawURL string) string {
	canonical, ext := canonicalize(rawURL)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:KeyHashLen] + ext
}

func canonicalize(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return rawURL, ""
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if !extRe.MatchString(ext) {
		ext = ""
	}
	return u.String(), ext
}
