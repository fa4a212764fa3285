package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	"github.com/zhouzirui/z-story/backend/internal/service/ai/aitest"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
)

func newTestRouter(t *testing.T, enabled bool) http.Handler {
	t.Helper()
	presets := preset.NewMemoryStore(preset.Seed())
	client := ai.NewClient(&aitest.TextModel{}, nil, nil, ai.ClientOptions{})
	svc := storyService.NewService(client, nil, storyService.Options{Genres: presets})
	t.Cleanup(svc.Wait)

	r, err := NewRouter(Dependencies{Presets: presets, Stories: svc, GenerationEnabled: enabled})
	if err != nil {
		t.Fatalf("NewRouter err: %v", err)
	}
	return r
}

func TestRouterServesAllSurfaces(t *testing.T) {
	r := newTestRouter(t, true)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/options", http.StatusOK},
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodPost, "/api/sessions", http.StatusCreated},
		{http.MethodGet, "/api/sessions/missing", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/", http.StatusOK},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.Code)
		}
	}
}

func TestRouterCORSHeaders(t *testing.T) {
	r := newTestRouter(t, true)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}
}

func TestRouterGenerationDisabled(t *testing.T) {
	r := newTestRouter(t, false)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode err: %v", err)
	}

	resp = httptest.NewRecorder()
	body := strings.NewReader(`{"gender":"男性","age":"15","genre":"SF","setting":"x"}`)
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/sessions/"+created.ID+"/start", body))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
