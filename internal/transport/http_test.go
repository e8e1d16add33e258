// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Success(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "recipectl", r.Header.Get("User-Agent"))
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL+"/a.jpg", time.Second)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestHTTPFetcher_Status(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{name: "not found", code: http.StatusNotFound},
		{name: "forbidden", code: http.StatusForbidden},
		{name: "unavailable", code: http.StatusServiceUnavailable},
		{name: "internal", code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, time.Second)
			var te *Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, KindStatus, te.Kind)
			assert.Equal(t, tt.code, te.StatusCode)
			assert.Contains(t, te.Error(), "HTTP error")
		})
	}
}

func TestHTTPFetcher_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, time.Second)
	assert.Equal(t, KindNoData, KindOf(err))
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 100))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), WithMaxBytes(10))
	_, err := f.Fetch(context.Background(), srv.URL, time.Second)
	assert.Equal(t, KindInvalidResponse, KindOf(err))

	f = NewHTTPFetcher(srv.Client(), WithMaxBytes(100))
	got, err := f.Fetch(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL, 50*time.Millisecond)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestHTTPFetcher_Canceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(ctx, srv.URL, 5*time.Second)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(nil).Fetch(context.Background(), u, time.Second)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	f := NewHTTPFetcher(nil)
	for _, u := range []string{"", "not a url", "/relative/a.jpg", "ftp://example.com/a.jpg", "http://[::1"} {
		_, err := f.Fetch(context.Background(), u, time.Second)
		assert.Equal(t, KindInvalidURL, KindOf(err), u)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("RECIPECTL_TEST_DURATION", "")
	assert.Equal(t, time.Second, getEnvDuration("RECIPECTL_TEST_DURATION", time.Second))

	t.Setenv("RECIPECTL_TEST_DURATION", "15")
	assert.Equal(t, 15*time.Second, getEnvDuration("RECIPECTL_TEST_DURATION", time.Second))

	t.Setenv("RECIPECTL_TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDuration("RECIPECTL_TEST_DURATION", time.Second))

	t.Setenv("RECIPECTL_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("RECIPECTL_TEST_DURATION", time.Second))
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("RECIPECTL_HTTP_TIMEOUT", "7")
	cfg := DefaultConfig()
	assert.Equal(t, 7*time.Second, cfg.Timeout)

	c := NewHTTPClient(&cfg)
	assert.Equal(t, 7*time.Second, c.Timeout)
}
