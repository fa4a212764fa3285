package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	"github.com/zhouzirui/z-story/backend/internal/service/ai/aitest"
	storyService "github.com/zhouzirui/z-story/backend/internal/service/story"
)

func setupRouter(t *testing.T, enabled bool) (*chi.Mux, *storyService.Service, *aitest.TextModel) {
	t.Helper()
	text := &aitest.TextModel{}
	image := &aitest.ImageModel{Image: aitest.PNG}
	presets := preset.NewMemoryStore(preset.Seed())
	svc := storyService.NewService(ai.NewClient(text, image, nil, ai.ClientOptions{}), nil, storyService.Options{Genres: presets})
	t.Cleanup(svc.Wait)

	h, err := New(svc, presets, enabled, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, svc, text
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

var validForm = url.Values{
	"gender":  {"男性"},
	"age":     {"15"},
	"genre":   {"ファンタジー"},
	"setting": {"竜の棲む山脈のふもとの村。"},
}

func TestSetupFormPrefilled(t *testing.T) {
	r, _, _ := setupRouter(t, true)

	resp := get(r, "/")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{"ノンバイナリー", "サイバーパンク", preset.DefaultSetting, `action="/play"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("setup page missing %q", want)
		}
	}
}

func TestPlayFlow(t *testing.T) {
	r, svc, text := setupRouter(t, true)

	text.PushStory("村の鐘が鳴り響いた。", []string{"山へ向かう", "長老を訪ねる", "剣を磨く"}, "a mountain village at dusk")
	resp := postForm(r, "/play", validForm)
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.Code)
	}
	location := resp.Header().Get("Location")
	if !strings.HasPrefix(location, "/play/") {
		t.Fatalf("unexpected redirect %q", location)
	}
	svc.Wait()

	body := get(r, location).Body.String()
	for _, want := range []string{"村の鐘が鳴り響いた。", "長老を訪ねる", "data:image/png;base64,", "a mountain village at dusk"} {
		if !strings.Contains(body, want) {
			t.Fatalf("play page missing %q", want)
		}
	}
	if strings.Contains(body, `http-equiv="refresh"`) {
		t.Fatal("idle page must not auto refresh")
	}

	text.Gate = make(chan struct{})
	text.PushStory("山道は険しかった。", []string{"a", "b", "c"}, "a steep path")
	resp = postForm(r, location+"/choose", url.Values{"custom": {"崖を登る"}})
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.Code)
	}

	pending := get(r, location).Body.String()
	if !strings.Contains(pending, "崖を登る") {
		t.Fatal("pending action must be visible before the continuation resolves")
	}
	if !strings.Contains(pending, `http-equiv="refresh"`) {
		t.Fatal("loading page must auto refresh")
	}

	text.Gate <- struct{}{}
	svc.Wait()

	final := get(r, location).Body.String()
	if !strings.Contains(final, "山道は険しかった。") {
		t.Fatal("continuation missing from play page")
	}

	text.Gate = nil
	text.Push("【セーブデータ】村から山道へ", nil)
	summary := get(r, location+"/summary").Body.String()
	if !strings.Contains(summary, "<textarea") || !strings.Contains(summary, "【セーブデータ】村から山道へ") {
		t.Fatal("summary page must show the summary in a textarea")
	}
}

func TestOpeningFailureShowsOverlay(t *testing.T) {
	r, svc, text := setupRouter(t, true)

	text.Push("", errors.New("invalid key"))
	resp := postForm(r, "/play", validForm)
	location := resp.Header().Get("Location")
	svc.Wait()

	body := get(r, location).Body.String()
	if !strings.Contains(body, storyService.OpeningFailedMessage) {
		t.Fatal("expected opening failure overlay")
	}
	if !strings.Contains(body, `class="overlay"`) {
		t.Fatal("expected overlay markup")
	}
	if !strings.Contains(body, location+"/start") {
		t.Fatal("setup form must restart the same session")
	}
}

func TestCreateRejectsBlankSettings(t *testing.T) {
	r, _, text := setupRouter(t, true)

	form := url.Values{"gender": {"男性"}, "age": {""}, "genre": {"SF"}, "setting": {"x"}}
	resp := postForm(r, "/play", form)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if text.Calls() != 0 {
		t.Fatal("no backend call expected")
	}
}

func TestCreateDisabled(t *testing.T) {
	r, _, _ := setupRouter(t, false)

	resp := postForm(r, "/play", validForm)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestResetRedirectsHome(t *testing.T) {
	r, svc, _ := setupRouter(t, true)
	snap := svc.Create(context.Background())

	resp := postForm(r, "/play/"+snap.ID+"/reset", nil)
	if resp.Code != http.StatusSeeOther || resp.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", resp.Code, resp.Header().Get("Location"))
	}
	if _, err := svc.Snapshot(context.Background(), snap.ID); !errors.Is(err, storyService.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestImageURL(t *testing.T) {
	if got := imageURL("javascript:alert(1)"); got != "" {
		t.Fatalf("expected unsafe url dropped, got %q", got)
	}
	if got := imageURL(ai.DefaultPlaceholderURL); string(got) != ai.DefaultPlaceholderURL {
		t.Fatalf("expected placeholder kept, got %q", got)
	}
}
