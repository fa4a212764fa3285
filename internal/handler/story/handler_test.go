package story

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
	"github.com/zhouzirui/z-story/backend/internal/service/ai/aitest"
	storyservice "github.com/zhouzirui/z-story/backend/internal/service/story"
)

const settingsBody = `{"gender":"女性","age":"17","genre":"ミステリー","setting":"霧の港町で失踪事件を追う探偵見習い。"}`

func setupRouter(t *testing.T, enabled bool) (*chi.Mux, *storyservice.Service, *aitest.TextModel) {
	t.Helper()
	text := &aitest.TextModel{}
	client := ai.NewClient(text, nil, nil, ai.ClientOptions{})
	svc := storyservice.NewService(client, nil, storyservice.Options{Genres: preset.NewMemoryStore(preset.Seed())})
	t.Cleanup(svc.Wait)

	r := chi.NewRouter()
	New(svc, enabled, nil).RegisterRoutes(r)
	return r, svc, text
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var view SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return view
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := do(r, http.MethodPost, "/sessions", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if view.Phase != storyservice.PhaseSetup {
		t.Fatalf("expected setup phase, got %s", view.Phase)
	}
	return view.ID
}

func TestStartAndChoose(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	text.PushStory("霧の中、汽笛が鳴った。", []string{"桟橋へ行く", "酒場で聞き込む", "宿に戻る"}, "a foggy harbor at night")
	resp := do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeView(t, resp)
	if len(view.Segments) != 1 || len(view.Choices) != 3 {
		t.Fatalf("unexpected opening view: %+v", view)
	}

	text.PushStory("桟橋には誰もいなかった。", []string{"a", "b", "c"}, "an empty pier")
	resp = do(r, http.MethodPost, "/sessions/"+id+"/choices", `{"action":"桟橋へ行く"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	view = decodeView(t, resp)
	if len(view.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(view.Segments))
	}
	if !view.Segments[1].IsUserAction || view.Segments[1].UserActionText != "桟橋へ行く" {
		t.Fatalf("expected user action second, got %+v", view.Segments[1])
	}
}

func TestStartInvalidSettings(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+id+"/start", `{"gender":"女性","age":"","genre":"SF","setting":"x"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if text.Calls() != 0 {
		t.Fatalf("expected no backend call, got %d", text.Calls())
	}
}

func TestStartGenerationFailure(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	text.Push("", errors.New("invalid api key"))
	resp := do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if view.Phase != storyservice.PhaseSetup || view.Error != storyservice.OpeningFailedMessage {
		t.Fatalf("expected reset to setup with error, got %+v", view)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	text.PushStory("序章", []string{"a", "b", "c"}, "scene")
	do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)

	resp := do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestChooseFailureKeepsAction(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	text.PushStory("序章", []string{"a", "b", "c"}, "scene")
	do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)

	text.Push("", errors.New("503"))
	resp := do(r, http.MethodPost, "/sessions/"+id+"/choices", `{"action":"扉を開ける"}`)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	view := decodeView(t, resp)
	if len(view.Segments) != 2 {
		t.Fatalf("expected the action to stay in the transcript, got %d segments", len(view.Segments))
	}
	if view.Error != storyservice.ContinuationFailedMessage {
		t.Fatalf("expected continuation error, got %q", view.Error)
	}
}

func TestChooseBeforeStart(t *testing.T) {
	r, _, _ := setupRouter(t, true)
	id := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+id+"/choices", `{"action":"進む"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	resp = do(r, http.MethodPost, "/sessions/"+id+"/choices", `{"action":""}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSummary(t *testing.T) {
	r, _, text := setupRouter(t, true)
	id := createSession(t, r)

	resp := do(r, http.MethodGet, "/sessions/"+id+"/summary", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", resp.Code)
	}

	text.PushStory("序章", []string{"a", "b", "c"}, "scene")
	do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)

	text.Push("", errors.New("timeout"))
	resp = do(r, http.MethodGet, "/sessions/"+id+"/summary", "")
	var failed SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&failed); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !failed.Failed || failed.Summary != ai.SummaryFallbackText {
		t.Fatalf("expected fallback summary, got %+v", failed)
	}

	text.Push("   ", nil)
	resp = do(r, http.MethodGet, "/sessions/"+id+"/summary", "")
	var empty SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&empty); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !empty.Failed {
		t.Fatalf("empty payload must be reported as failed, got %+v", empty)
	}

	text.Push("【セーブデータ】港町にて", nil)
	resp = do(r, http.MethodGet, "/sessions/"+id+"/summary", "")
	var ok SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if ok.Failed || ok.Summary != "【セーブデータ】港町にて" {
		t.Fatalf("unexpected summary %+v", ok)
	}
}

func TestResetAndNotFound(t *testing.T) {
	r, _, _ := setupRouter(t, true)
	id := createSession(t, r)

	if resp := do(r, http.MethodDelete, "/sessions/"+id, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := do(r, http.MethodGet, "/sessions/"+id, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGenerationDisabled(t *testing.T) {
	r, _, _ := setupRouter(t, false)
	id := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+id+"/start", settingsBody)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		storyservice.ErrSessionNotFound: http.StatusNotFound,
		storyservice.ErrBusy:            http.StatusConflict,
		storyservice.ErrInvalidAction:   http.StatusBadRequest,
		ai.ErrGeneration:                http.StatusBadGateway,
		errors.New("something else"):    http.StatusInternalServerError,
		storyservice.ErrEmptyTranscript: http.StatusConflict,
		storyservice.ErrAlreadyStarted:  http.StatusConflict,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Errorf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
