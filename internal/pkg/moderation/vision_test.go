package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
)

func visionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, "gpt-4o-mini", req.Model)
			if assert.Len(t, req.Messages, 1) && assert.Len(t, req.Messages[0].Content, 2) {
				assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,"))
			}
		}

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestVision(t *testing.T, srv *httptest.Server) (*VisionGateway, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("\xff\xd8\xff\xe0fakejpeg"), 0o644))
	cfg := config.Default().Moderation
	cfg.VisionEndpoint = srv.URL
	cfg.VisionAPIKey = "sk-test"
	return NewVisionGateway(cfg, dir, srv.Client()), "photo.jpg"
}

func TestVisionGatewayParsesVerdict(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		status   string
		category string
	}{
		{"confident detection", `{"trash_detected": true, "trash_type": "plastic", "confidence": 0.91}`, models.AIStatusAutoConfirmed, models.CategoryPlastic},
		{"confident but nothing detected", `{"trash_detected": false, "trash_type": "none", "confidence": 0.9}`, models.AIStatusNeedsReview, models.CategoryNone},
		{"fenced json", "```json\n{\"trash_detected\": true, \"trash_type\": \"construction\", \"confidence\": 0.6}\n```", models.AIStatusNeedsReview, models.CategoryConstruction},
		{"low confidence", `{"trash_detected": true, "trash_type": "weird", "confidence": 0.2}`, models.AIStatusRejected, models.CategoryMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := visionServer(t, http.StatusOK, tt.content)
			defer srv.Close()
			gw, ref := newTestVision(t, srv)

			res, err := gw.Analyze(context.Background(), ref)

			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.category, res.Category)
		})
	}
}

func TestVisionGatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"http error", http.StatusTooManyRequests, `{}`},
		{"not json", http.StatusOK, "I think there is trash"},
		{"missing confidence", http.StatusOK, `{"trash_detected": true}`},
		{"out of range", http.StatusOK, `{"trash_detected": true, "confidence": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := visionServer(t, tt.status, tt.content)
			defer srv.Close()
			gw, ref := newTestVision(t, srv)

			_, err := gw.Analyze(context.Background(), ref)
			assert.Error(t, err)
		})
	}
}

func TestNewGatewaySelectsBackend(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "heuristic", NewGateway(cfg, nil).Name())

	cfg.Moderation.Backend = config.ModerationBackendVision
	assert.Equal(t, "vision", NewGateway(cfg, nil).Name())
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(` {"a":1} `))
	assert.Equal(t, `{}`, stripCodeFence("```\n{}\n```"))
}
