// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/cacheutil"
	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/recipes"
	"github.com/staranto/recipectl/internal/transport"
)

var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d}

const imageURL = "https://example.com/a.png"

type mockFetcher struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

type mockRecipes struct {
	c   recipes.Collection
	err error
}

func (m *mockRecipes) Fetch(ctx context.Context) (recipes.Collection, error) {
	return m.c, m.err
}

func newTestManager(t *testing.T, f transport.Fetcher, opts ...images.Option) *images.Manager {
	t.Helper()
	c, err := cacheutil.New(t.TempDir())
	require.NoError(t, err)
	m, err := images.NewManager(c, f, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Wait)
	return m
}

func imagePath(u string) string {
	return "/images?url=" + url.QueryEscape(u)
}

func TestHealth(t *testing.T) {
	srv := New(newTestManager(t, &mockFetcher{}), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestGetImage_MissThenHit(t *testing.T) {
	f := &mockFetcher{data: pngBytes}
	m := newTestManager(t, f)
	srv := New(m, nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, imagePath(imageURL), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	m.Wait()

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, imagePath(imageURL), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGetImage_ContentType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	srv := New(newTestManager(t, &mockFetcher{data: png}), nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, imagePath(imageURL), nil))
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
}

func TestGetImage_MissingURL(t *testing.T) {
	srv := New(newTestManager(t, &mockFetcher{}), nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestGetImage_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantKind    string
		recoverable bool
	}{
		{name: "timeout", err: &transport.Error{Kind: transport.KindTimeout}, wantStatus: http.StatusGatewayTimeout, wantKind: "timeout", recoverable: true},
		{name: "network", err: &transport.Error{Kind: transport.KindNetwork}, wantStatus: http.StatusBadGateway, wantKind: "network_unavailable", recoverable: true},
		{name: "503", err: &transport.Error{Kind: transport.KindStatus, StatusCode: 503}, wantStatus: http.StatusBadGateway, wantKind: "server_error", recoverable: true},
		{name: "404", err: &transport.Error{Kind: transport.KindStatus, StatusCode: 404}, wantStatus: http.StatusUnprocessableEntity, wantKind: "invalid_data"},
		{name: "no data", err: &transport.Error{Kind: transport.KindNoData}, wantStatus: http.StatusUnprocessableEntity, wantKind: "no_data"},
		{name: "invalid url", err: &transport.Error{Kind: transport.KindInvalidURL}, wantStatus: http.StatusInternalServerError, wantKind: "repository_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			h := NewHandler(newTestManager(t, &mockFetcher{err: tt.err}), nil)

			req := httptest.NewRequest(http.MethodGet, imagePath(imageURL), nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, h.GetImage(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.recoverable, body.Recoverable)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHeadImage(t *testing.T) {
	f := &mockFetcher{data: pngBytes}
	m := newTestManager(t, f)
	srv := New(m, nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, imagePath(imageURL), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.calls.Load(), "HEAD never fetches")

	require.NoError(t, m.Cache().WriteSync(imageURL, pngBytes))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, imagePath(imageURL), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/images", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCacheAndStats(t *testing.T) {
	m := newTestManager(t, &mockFetcher{})
	require.NoError(t, m.Cache().WriteSync(imageURL, pngBytes))
	require.NoError(t, m.Cache().WriteSync("https://example.com/b.png", []byte("abc")))
	srv := New(m, nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats cacheutil.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(len(pngBytes)+3), stats.TotalBytes)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	m.Wait()
	assert.False(t, m.IsCached(imageURL))
}

func TestRecipes(t *testing.T) {
	c := recipes.Collection{
		{ID: uuid.New(), Name: "Bakewell Tart", Cuisine: "British"},
		{ID: uuid.New(), Name: "Apam Balik", Cuisine: "Malaysian"},
		{ID: uuid.New(), Name: "Apple Frangipan Tart", Cuisine: "British"},
	}
	srv := New(newTestManager(t, &mockFetcher{}), &mockRecipes{c: c}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes?q=tart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []recipes.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Apple Frangipan Tart", got[0].Name)
	assert.Equal(t, "Bakewell Tart", got[1].Name)
}

func TestRecipes_Errors(t *testing.T) {
	srv := New(newTestManager(t, &mockFetcher{}), &mockRecipes{err: apperr.MalformedData("No valid recipes found in response")}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed_data")

	srv = New(newTestManager(t, &mockFetcher{}), nil, nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		expectedStatus int
	}{
		{name: "disabled", config: nil, expectedStatus: http.StatusNotFound},
		{name: "enabled", config: &Config{MetricsEnabled: true}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := newTestManager(t, &mockFetcher{data: pngBytes}, images.WithMetrics(images.NewMetrics(reg)))
			if tt.config != nil {
				tt.config.Gatherer = reg
			}
			srv := New(m, nil, tt.config)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, imagePath(imageURL), nil))
			require.Equal(t, http.StatusOK, rec.Code)

			rec = httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "recipectl_image_cache_misses_total 1")
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(apperr.KindMalformedData))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.KindRepository))
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New(newTestManager(t, &mockFetcher{}), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
