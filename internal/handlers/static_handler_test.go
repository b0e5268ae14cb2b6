package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticHandler_ETag(t *testing.T) {
	handler, err := NewStaticHandler()
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	assets := []struct {
		path        string
		etag        string
		contentType string
	}{
		{"/static/css/app.css", handler.css.etag, "text/css; charset=utf-8"},
		{"/static/images/favicon.svg", handler.favicon.etag, "image/svg+xml"},
		{"/favicon.ico", handler.favicon.etag, "image/svg+xml"},
	}

	for _, asset := range assets {
		t.Run(asset.path, func(t *testing.T) {
			require.NotEmpty(t, asset.etag, "ETag should be calculated during initialization")

			req := httptest.NewRequest(http.MethodGet, asset.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, asset.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, asset.etag, w.Header().Get("ETag"))
			assert.Equal(t, "public, max-age=43200, must-revalidate", w.Header().Get("Cache-Control"))
			assert.NotEmpty(t, w.Body.Bytes())

			etag := w.Header().Get("ETag")
			assert.True(t, len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"',
				"ETag should be quoted as per RFC 7232")
		})
	}

	t.Run("matching ETag returns 304", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
		req.Header.Set("If-None-Match", handler.css.etag)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.Bytes(), "No content should be returned for 304")
		assert.Equal(t, handler.css.etag, w.Header().Get("ETag"), "ETag header should be present in 304 response per RFC 7232")
	})

	t.Run("ETag list and weak validators", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
		req.Header.Set("If-None-Match", `"other", W/`+handler.css.etag)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("non-matching ETag returns full content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
		req.Header.Set("If-None-Match", `"stale"`)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("POST is not routed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/static/css/app.css", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestParseETags(t *testing.T) {
	tests := []struct {
		header   string
		expected []string
	}{
		{`"a"`, []string{`"a"`}},
		{`"a", "b"`, []string{`"a"`, `"b"`}},
		{` , "a",,`, []string{`"a"`}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseETags(tt.header), tt.header)
	}
}

func TestMatchesETag(t *testing.T) {
	assert.True(t, matchesETag("*", `"x"`))
	assert.True(t, matchesETag(`"x"`, `"x"`))
	assert.False(t, matchesETag(`"y"`, `"x"`))
}
