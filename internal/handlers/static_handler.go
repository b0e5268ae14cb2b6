package handlers

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/rs/zerolog"
)

//go:embed assets/css/*.css assets/images/*.svg
var assetsFS embed.FS

// staticAsset is an embedded file served with a content-hash ETag
type staticAsset struct {
	content     []byte
	etag        string
	contentType string
}

// StaticHandler manages static file serving with ETag support
type StaticHandler struct {
	logger  zerolog.Logger
	css     staticAsset
	favicon staticAsset
}

func loadAsset(logger zerolog.Logger, path, contentType string) (staticAsset, error) {
	content, err := assetsFS.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to read embedded asset")
		return staticAsset{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	hash := sha256.Sum256(content)
	etag := fmt.Sprintf("\"%s\"", hex.EncodeToString(hash[:]))
	logger.Debug().Str("path", path).Str("etag", etag).Int("content_size", len(content)).Msg("Cached asset with ETag")
	return staticAsset{content: content, etag: etag, contentType: contentType}, nil
}

// NewStaticHandler creates a new static file handler
func NewStaticHandler() (*StaticHandler, error) {
	logger := logging.GetLogger("static-handler")

	css, err := loadAsset(logger, "assets/css/app.css", "text/css; charset=utf-8")
	if err != nil {
		return nil, err
	}
	favicon, err := loadAsset(logger, "assets/images/favicon.svg", "image/svg+xml")
	if err != nil {
		return nil, err
	}

	return &StaticHandler{logger: logger, css: css, favicon: favicon}, nil
}

// RegisterRoutes registers static asset routes
func (h *StaticHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /static/css/app.css", h.serveCSS)
	mux.HandleFunc("GET /favicon.ico", h.serveFavicon)
	mux.HandleFunc("GET /static/images/favicon.svg", h.serveFavicon)
}

func (h *StaticHandler) serveCSS(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, h.css)
}

func (h *StaticHandler) serveFavicon(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, h.favicon)
}

// serveAsset serves an embedded asset, answering 304 when the client copy is current
func (h *StaticHandler) serveAsset(w http.ResponseWriter, r *http.Request, asset staticAsset) {
	// ETag goes on 304 responses too
	w.Header().Set("ETag", asset.etag)

	if ifNoneMatch := r.Header.Get("If-None-Match"); ifNoneMatch != "" {
		if matchesETag(ifNoneMatch, asset.etag) {
			h.logger.Debug().Str("if_none_match", ifNoneMatch).Msg("ETag matches - returning 304 Not Modified")
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", asset.contentType)
	w.Header().Set("Cache-Control", "public, max-age=43200, must-revalidate")

	if _, err := w.Write(asset.content); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write response")
	}
}

// matchesETag checks if the If-None-Match header matches the current ETag.
// Supports a comma-separated list and the '*' wildcard.
func matchesETag(ifNoneMatch, currentETag string) bool {
	if strings.TrimSpace(ifNoneMatch) == "*" {
		return true
	}
	for _, etag := range parseETags(ifNoneMatch) {
		if strings.TrimPrefix(etag, "W/") == currentETag {
			return true
		}
	}
	return false
}

// parseETags parses comma-separated ETags from If-None-Match header
func parseETags(header string) []string {
	parts := strings.Split(header, ",")
	etags := make([]string, 0, len(parts))
	for _, part := range parts {
		etag := strings.TrimSpace(part)
		if etag != "" {
			etags = append(etags, etag)
		}
	}
	return etags
}
