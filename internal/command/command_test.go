// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/cacheutil"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

// isolateConfig keeps a developer's own recipectl.yaml out of the tests.
func isolateConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("RECIPECTL_CFG", "")
	t.Setenv("RECIPECTL_CACHE_DIR", filepath.Join(home, "cache"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"recipectl"}, args...)
	app, err := InitApp(context.Background(), full)
	require.NoError(t, err)

	var buf bytes.Buffer
	app.Writer = &buf
	app.ErrWriter = io.Discard
	err = app.Run(context.Background(), full)
	return buf.String(), err
}

func decodeRows(t *testing.T, s string) []map[string]interface{} {
	t.Helper()
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &rows), s)
	return rows
}

func imageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/img/"):
			_, _ = w.Write(pngBytes)
		case r.URL.Path == "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestInitApp(t *testing.T) {
	isolateConfig(t)

	app, err := InitApp(context.Background(), []string{"recipectl", "recipes"})
	require.NoError(t, err)

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"cache", "image", "recipes", "serve", "completion"}, names)

	get := app.Command("image").Command("get")
	require.NotNil(t, get)
	for i := 1; i < len(get.Flags); i++ {
		assert.LessOrEqual(t, get.Flags[i-1].Names()[0], get.Flags[i].Names()[0])
	}

	m := GetMeta(app.Command("recipes"))
	assert.Equal(t, "recipes", m.Namespace)
}

func TestImageGet(t *testing.T) {
	isolateConfig(t)
	srv, hits := imageServer(t)
	dir := t.TempDir()
	u := srv.URL + "/img/a.png"

	out, err := run(t, "image", "get", "--cache-dir", dir, "-o", "json", u)
	require.NoError(t, err)
	rows := decodeRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "MISS", rows[0]["cache"])
	assert.Equal(t, "12 B", rows[0]["size"])
	assert.Equal(t, cacheutil.Key(u), rows[0]["key"])

	out, err = run(t, "image", "get", "--cache-dir", dir, "-o", "json", u)
	require.NoError(t, err)
	rows = decodeRows(t, out)
	assert.Equal(t, "HIT", rows[0]["cache"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestImageGet_Out(t *testing.T) {
	isolateConfig(t)
	srv, _ := imageServer(t)
	dir := t.TempDir()
	dst := filepath.Join(t.TempDir(), "a.png")

	_, err := run(t, "image", "get", "--cache-dir", dir, "--out", dst, srv.URL+"/img/a.png")
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, b)

	out, err := run(t, "image", "get", "--cache-dir", dir, "--out", "-", srv.URL+"/img/a.png")
	require.NoError(t, err)
	assert.Equal(t, string(pngBytes), out)

	_, err = run(t, "image", "get", "--cache-dir", dir, "--out", dst, srv.URL+"/img/a.png", srv.URL+"/img/b.png")
	assert.Error(t, err)
}

func TestImageGet_Errors(t *testing.T) {
	isolateConfig(t)
	srv, _ := imageServer(t)
	dir := t.TempDir()

	_, err := run(t, "image", "get", "--cache-dir", dir, srv.URL+"/down")
	assert.ErrorIs(t, err, apperr.ErrServerError)

	_, err = run(t, "image", "get", "--cache-dir", dir, srv.URL+"/missing.png")
	assert.ErrorIs(t, err, apperr.ErrInvalidData)

	_, err = run(t, "image", "get", "--cache-dir", dir)
	assert.ErrorContains(t, err, "at least one URL")
}

func TestImageCachedAndKey(t *testing.T) {
	isolateConfig(t)
	srv, hits := imageServer(t)
	dir := t.TempDir()
	a, b := srv.URL+"/img/a.png", srv.URL+"/img/b.png"

	_, err := run(t, "image", "get", "--cache-dir", dir, a)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	out, err := run(t, "image", "cached", "--cache-dir", dir, "-o", "json", a, b)
	require.NoError(t, err)
	rows := decodeRows(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, true, rows[0]["cached"])
	assert.Equal(t, false, rows[1]["cached"])
	assert.Equal(t, int32(1), hits.Load(), "cached must not fetch")

	out, err = run(t, "image", "key", "--cache-dir", dir, "-o", "json", a)
	require.NoError(t, err)
	rows = decodeRows(t, out)
	assert.Equal(t, cacheutil.Key(a), rows[0]["key"])
	assert.Equal(t, filepath.Join(dir, cacheutil.Key(a)), rows[0]["path"])
}

func TestCacheStatsAndClear(t *testing.T) {
	isolateConfig(t)
	srv, _ := imageServer(t)
	dir := t.TempDir()

	_, err := run(t, "image", "get", "--cache-dir", dir, srv.URL+"/img/a.png", srv.URL+"/img/b.png")
	require.NoError(t, err)

	out, err := run(t, "cache", "stats", "--cache-dir", dir, "-o", "json")
	require.NoError(t, err)
	var stats cacheutil.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(2*len(pngBytes)), stats.TotalBytes)

	_, err = run(t, "cache", "clear", "--cache-dir", dir)
	require.NoError(t, err)

	out, err = run(t, "cache", "stats", "--cache-dir", dir, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.Entries)
	assert.DirExists(t, dir)
}

func TestCacheClear_MissingRoot(t *testing.T) {
	isolateConfig(t)
	dir := filepath.Join(t.TempDir(), "never-written")

	_, err := run(t, "cache", "clear", "--cache-dir", dir)
	require.NoError(t, err)
	assert.NoDirExists(t, dir)

	_, err = run(t, "cache", "clear", "--no-wait", "--cache-dir", dir)
	assert.NoError(t, err)
}

func TestCacheDir_NotADirectory(t *testing.T) {
	isolateConfig(t)
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))

	_, err := run(t, "cache", "stats", "--cache-dir", f)
	assert.ErrorContains(t, err, "not a directory")
}

func feedServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			_, _ = w.Write(pngBytes)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"recipes":[
			{"uuid":"0c6ca6e7-e32a-4053-b824-1dbf749910d8","name":"Apam Balik","cuisine":"Malaysian",
			 "photo_url_small":"%[1]s/img/apam-small.jpg","photo_url_large":"%[1]s/img/apam-large.jpg"},
			{"uuid":"599344f4-3c5c-4cca-b914-2210e3b3312f","name":"Banana Pancakes","cuisine":"American",
			 "photo_url_small":"%[1]s/img/banana-small.jpg"},
			{"uuid":"not-a-uuid","name":"Broken","cuisine":"None"}
		]}`, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecipes(t *testing.T) {
	isolateConfig(t)
	srv := feedServer(t, http.StatusOK)
	dir := t.TempDir()

	out, err := run(t, "recipes", "--cache-dir", dir, "--endpoint", srv.URL+"/feed.json", "-o", "json")
	require.NoError(t, err)
	rows := decodeRows(t, out)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, false, r["cached"])
	}

	out, err = run(t, "recipes", "--cache-dir", dir, "--endpoint", srv.URL+"/feed.json",
		"--prefetch", "--large", "--sort", "name", "-o", "json")
	require.NoError(t, err)
	rows = decodeRows(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "Apam Balik", rows[0]["name"])
	assert.Equal(t, srv.URL+"/img/apam-large.jpg", rows[0]["image"])
	assert.Equal(t, srv.URL+"/img/banana-small.jpg", rows[1]["image"])
	for _, r := range rows {
		assert.Equal(t, true, r["cached"])
	}

	out, err = run(t, "recipes", "--cache-dir", dir, "--endpoint", srv.URL+"/feed.json",
		"--search", "malay", "--group", "-o", "json")
	require.NoError(t, err)
	rows = decodeRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["letter"])
}

func TestRecipes_Errors(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()

	srv := feedServer(t, http.StatusServiceUnavailable)
	_, err := run(t, "recipes", "--cache-dir", dir, "--endpoint", srv.URL+"/feed.json")
	assert.ErrorIs(t, err, apperr.ErrServerError)

	_, err = run(t, "recipes", "--cache-dir", dir, "--endpoint", "nope")
	assert.ErrorContains(t, err, "endpoint must be one of")

	_, err = run(t, "recipes", "--cache-dir", dir, "--concurrency", "0")
	assert.Error(t, err)
}

func TestCompletion(t *testing.T) {
	isolateConfig(t)

	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "complete -F _recipectl recipectl")

	out, err = run(t, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef recipectl")
}

func TestServe_StopsOnCancel(t *testing.T) {
	isolateConfig(t)

	full := []string{"recipectl", "serve", "--cache-dir", t.TempDir(), "--addr", "127.0.0.1:0"}
	app, err := InitApp(context.Background(), full)
	require.NoError(t, err)
	app.Writer = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, full) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		fn      FlagValidatorType
		wantErr bool
	}{
		{"output text", "text", OutputValidator, false},
		{"output yaml", "yaml", OutputValidator, false},
		{"output raw", "raw", OutputValidator, true},
		{"jammed", "--titles", JammedFlagValidator, true},
		{"not jammed", "/tmp/cache", JammedFlagValidator, false},
		{"duration", time.Second, PositiveDurationValidator, false},
		{"zero duration", time.Duration(0), PositiveDurationValidator, true},
		{"int", 4, PositiveIntValidator, false},
		{"negative int", -1, PositiveIntValidator, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FlagValidators(tt.value, tt.fn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
