package story

import (
	"sync"
	"time"

	"github.com/zhouzirui/z-story/backend/internal/model/story"
)

// Phase is the controller state of a session.
type Phase string

const (
	PhaseSetup                Phase = "setup"
	PhaseAwaitingOpening      Phase = "awaiting_opening"
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingContinuation Phase = "awaiting_continuation"
)

// User-visible error messages.
const (
	OpeningFailedMessage      = "物語の開始に失敗しました。APIキーと接続を確認してください。"
	ContinuationFailedMessage = "物語の続きを生成できませんでした。もう一度お試しください。"
)

// Snapshot is an immutable view of a session for the presentation layer.
type Snapshot struct {
	ID                 string              `json:"id"`
	Phase              Phase               `json:"phase"`
	Settings           *story.GameSettings `json:"settings,omitempty"`
	Segments           []story.Segment     `json:"segments"`
	TextLoading        bool                `json:"textLoading"`
	ImageLoading       bool                `json:"imageLoading"`
	CurrentImageURL    string              `json:"currentImageUrl,omitempty"`
	CurrentImagePrompt string              `json:"currentImagePrompt,omitempty"`
	Error              string              `json:"error,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Playing reports whether the story has begun.
func (s Snapshot) Playing() bool {
	return s.Phase == PhaseIdle || s.Phase == PhaseAwaitingContinuation
}

// Choices returns the options offered to the user right now: those of the
// latest narrator segment, and only while no continuation is in flight.
func (s Snapshot) Choices() []string {
	if s.Phase != PhaseIdle {
		return nil
	}
	for i := len(s.Segments) - 1; i >= 0; i-- {
		seg := s.Segments[i]
		if seg.IsUserAction {
			if seg.Status == story.StatusFailed {
				continue
			}
			return nil
		}
		return seg.Choices
	}
	return nil
}

type cachedSummary struct {
	version uint64
	text    string
	valid   bool
}

// Session holds the whole state of one playthrough.
type Session struct {
	mu sync.Mutex

	id         string
	phase      Phase
	settings   *story.GameSettings
	transcript *story.Transcript

	pendingImages      int
	latestNarratorID   string
	currentImageURL    string
	currentImagePrompt string
	lastError          string
	summary            cachedSummary

	createdAt time.Time
	updatedAt time.Time

	subscribers map[int]chan Snapshot
	nextSubID   int
	closed      bool
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		id:          id,
		phase:       PhaseSetup,
		transcript:  story.NewTranscript(),
		createdAt:   now,
		updatedAt:   now,
		subscribers: make(map[int]chan Snapshot),
	}
}

// resetLocked drops settings and transcript and returns to setup.
func (s *Session) resetLocked() {
	s.phase = PhaseSetup
	s.settings = nil
	s.transcript = story.NewTranscript()
	s.pendingImages = 0
	s.latestNarratorID = ""
	s.currentImageURL = ""
	s.currentImagePrompt = ""
	s.summary = cachedSummary{}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                 s.id,
		Phase:              s.phase,
		Segments:           s.transcript.Segments(),
		TextLoading:        s.phase == PhaseAwaitingOpening || s.phase == PhaseAwaitingContinuation,
		ImageLoading:       s.pendingImages > 0,
		CurrentImageURL:    s.currentImageURL,
		CurrentImagePrompt: s.currentImagePrompt,
		Error:              s.lastError,
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
	if s.settings != nil {
		settings := *s.settings
		snap.Settings = &settings
	}
	return snap
}

// publishLocked stamps the update and fans the snapshot out. Slow subscribers
// only miss intermediate states: the oldest queued snapshot is dropped.
func (s *Session) publishLocked() Snapshot {
	s.updatedAt = time.Now().UTC()
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

func (s *Session) subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
