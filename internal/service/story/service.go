package story

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zhouzirui/z-story/backend/internal/analysis/mood"
	"github.com/zhouzirui/z-story/backend/internal/model/preset"
	"github.com/zhouzirui/z-story/backend/internal/model/story"
	"github.com/zhouzirui/z-story/backend/internal/service/ai"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyStarted  = errors.New("session already started")
	ErrNotPlaying      = errors.New("story has not started")
	ErrBusy            = errors.New("a continuation is already in progress")
	ErrInvalidAction   = errors.New("action is required")
	ErrEmptyTranscript = ai.ErrEmptyTranscript
)

// Generator is the subset of the generation client the controller drives.
type Generator interface {
	RequestStory(ctx context.Context, req ai.Request) (ai.StoryResult, error)
	RequestIllustration(ctx context.Context, prompt string) string
	RequestSummary(ctx context.Context, req ai.Request) (string, error)
}

// Options tunes a Service.
type Options struct {
	Genres           preset.Store
	ImageStyleSuffix string
}

// Service orchestrates the turn lifecycle of every session: optimistic user
// actions, continuation requests, illustrations and summaries.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	assembler  *ai.PromptAssembler
	gen        Generator
	genres     preset.Store
	imageStyle string
	logger     *zap.Logger

	summaries  singleflight.Group
	background sync.WaitGroup
}

// NewService wires the controller.
func NewService(gen Generator, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:   make(map[string]*Session),
		assembler:  ai.NewPromptAssembler(opts.Genres),
		gen:        gen,
		genres:     opts.Genres,
		imageStyle: strings.TrimSpace(opts.ImageStyleSuffix),
		logger:     logger,
	}
}

// Create provisions an empty session in the setup phase.
func (s *Service) Create(_ context.Context) Snapshot {
	sess := newSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", sess.id))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked()
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(_ context.Context, id string) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Reset ends a session and discards its settings and transcript.
func (s *Service) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.close()
	s.logger.Info("session reset", zap.String("session_id", id))
	return nil
}

// Subscribe streams snapshots of a session, starting with the current one.
// The returned cancel func must be called to release the subscription.
func (s *Service) Subscribe(id string) (<-chan Snapshot, func(), error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.subscribe()
	return ch, cancel, nil
}

// Start generates the opening segment. A failure sends the session back to
// setup with no partial state retained.
func (s *Service) Start(ctx context.Context, id string, settings story.GameSettings) (Snapshot, error) {
	sess, settings, err := s.beginOpening(id, settings)
	if err != nil {
		return Snapshot{}, err
	}
	return s.finishOpening(ctx, sess, settings)
}

// StartAsync validates and enters awaiting_opening, then generates the opening
// in the background. Progress is observable through Snapshot or Subscribe.
func (s *Service) StartAsync(ctx context.Context, id string, settings story.GameSettings) (Snapshot, error) {
	sess, settings, err := s.beginOpening(id, settings)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		_, _ = s.finishOpening(context.WithoutCancel(ctx), sess, settings)
	}()
	return snap, nil
}

func (s *Service) beginOpening(id string, settings story.GameSettings) (*Session, story.GameSettings, error) {
	if err := settings.Validate(); err != nil {
		return nil, settings, err
	}
	settings = settings.Normalize()

	sess, err := s.get(id)
	if err != nil {
		return nil, settings, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.phase != PhaseSetup {
		return nil, settings, ErrAlreadyStarted
	}
	sess.phase = PhaseAwaitingOpening
	sess.settings = &settings
	sess.lastError = ""
	sess.publishLocked()
	return sess, settings, nil
}

func (s *Service) finishOpening(ctx context.Context, sess *Session, settings story.GameSettings) (Snapshot, error) {
	log := s.logger.With(zap.String("session_id", sess.id))

	log.Info("requesting opening", zap.String("genre", settings.Genre))
	result, genErr := s.gen.RequestStory(ctx, s.assembler.BuildOpeningRequest(settings))

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if genErr != nil {
		sess.resetLocked()
		sess.lastError = OpeningFailedMessage
		log.Error("opening failed, session back to setup", zap.Error(genErr))
		return sess.publishLocked(), genErr
	}

	segment := s.narratorSegment(result)
	if err := sess.transcript.Append(segment); err != nil {
		sess.resetLocked()
		sess.lastError = OpeningFailedMessage
		log.Error("opening segment rejected", zap.Error(err))
		return sess.publishLocked(), fmt.Errorf("%w: %v", ai.ErrGeneration, err)
	}
	sess.phase = PhaseIdle
	s.startIllustrationLocked(ctx, sess, segment)

	log.Info("story started", zap.String("segment_id", segment.ID), zap.String("mood", segment.Mood))
	return sess.publishLocked(), nil
}

// Choose submits a user action. The action is visible in the transcript
// before the continuation resolves and is never rolled back; on failure it is
// marked failed and the session stays playable.
func (s *Service) Choose(ctx context.Context, id, action string) (Snapshot, error) {
	t, snap, err := s.beginTurn(id, action)
	if err != nil {
		return snap, err
	}
	return s.finishTurn(ctx, t)
}

// ChooseAsync appends the pending user action and resolves the continuation
// in the background. The returned snapshot already shows the action.
func (s *Service) ChooseAsync(ctx context.Context, id, action string) (Snapshot, error) {
	t, snap, err := s.beginTurn(id, action)
	if err != nil {
		return snap, err
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		_, _ = s.finishTurn(context.WithoutCancel(ctx), t)
	}()
	return snap, nil
}

type turn struct {
	sess    *Session
	segment story.Segment
	history []story.Segment
	action  string
}

func (s *Service) beginTurn(id, action string) (turn, Snapshot, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return turn{}, Snapshot{}, ErrInvalidAction
	}

	sess, err := s.get(id)
	if err != nil {
		return turn{}, Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	switch {
	case sess.phase == PhaseAwaitingContinuation:
		return turn{}, sess.snapshotLocked(), ErrBusy
	case sess.phase != PhaseIdle || sess.transcript.Len() == 0:
		return turn{}, sess.snapshotLocked(), ErrNotPlaying
	}

	history := sess.transcript.Context()
	userSegment := story.NewUserActionSegment(action)
	if err := sess.transcript.Append(userSegment); err != nil {
		return turn{}, sess.snapshotLocked(), err
	}
	sess.phase = PhaseAwaitingContinuation
	sess.lastError = ""
	snap := sess.publishLocked()

	return turn{sess: sess, segment: userSegment, history: history, action: action}, snap, nil
}

func (s *Service) finishTurn(ctx context.Context, t turn) (Snapshot, error) {
	sess := t.sess
	log := s.logger.With(zap.String("session_id", sess.id))

	log.Info("requesting continuation", zap.String("segment_id", t.segment.ID))
	result, genErr := s.continuation(ctx, t.history, t.action)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if genErr != nil {
		if err := sess.transcript.Resolve(t.segment.ID, story.StatusFailed); err != nil {
			log.Warn("failed to mark user action", zap.Error(err))
		}
		sess.phase = PhaseIdle
		sess.lastError = ContinuationFailedMessage
		log.Error("continuation failed", zap.String("segment_id", t.segment.ID), zap.Error(genErr))
		return sess.publishLocked(), genErr
	}

	if err := sess.transcript.Resolve(t.segment.ID, story.StatusConfirmed); err != nil {
		log.Warn("failed to confirm user action", zap.Error(err))
	}
	segment := s.narratorSegment(result)
	if err := sess.transcript.Append(segment); err != nil {
		sess.phase = PhaseIdle
		sess.lastError = ContinuationFailedMessage
		return sess.publishLocked(), fmt.Errorf("%w: %v", ai.ErrGeneration, err)
	}
	sess.phase = PhaseIdle
	s.startIllustrationLocked(ctx, sess, segment)

	log.Info("story continued", zap.String("segment_id", segment.ID), zap.Int("segments", sess.transcript.Len()))
	return sess.publishLocked(), nil
}

func (s *Service) continuation(ctx context.Context, history []story.Segment, action string) (ai.StoryResult, error) {
	req, err := s.assembler.BuildContinuationRequest(history, action)
	if err != nil {
		return ai.StoryResult{}, err
	}
	return s.gen.RequestStory(ctx, req)
}

// Summary returns a save-data summary of the session. Results are cached
// until the transcript context changes; failures are not cached and yield
// ai.SummaryFallbackText alongside the error.
func (s *Service) Summary(ctx context.Context, id string) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	if sess.settings == nil || sess.transcript.Len() == 0 {
		sess.mu.Unlock()
		return "", ErrEmptyTranscript
	}
	version := sess.transcript.Version()
	if sess.summary.valid && sess.summary.version == version {
		text := sess.summary.text
		sess.mu.Unlock()
		return text, nil
	}
	history := sess.transcript.Context()
	settings := *sess.settings
	sess.mu.Unlock()

	// Shared by every caller of the same version, so no single caller's
	// cancellation may abort it.
	shared := context.WithoutCancel(ctx)
	key := id + ":" + strconv.FormatUint(version, 10)
	v, err, _ := s.summaries.Do(key, func() (any, error) {
		req, err := s.assembler.BuildSummaryRequest(history, settings)
		if err != nil {
			return "", err
		}
		return s.gen.RequestSummary(shared, req)
	})
	if err != nil {
		s.logger.Error("summary failed", zap.String("session_id", id), zap.Error(err))
		return ai.SummaryFallbackText, err
	}
	text := v.(string)

	sess.mu.Lock()
	if sess.transcript.Version() == version {
		sess.summary = cachedSummary{version: version, text: text, valid: true}
	}
	sess.mu.Unlock()

	return text, nil
}

// Wait blocks until every background generation has settled.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) narratorSegment(result ai.StoryResult) story.Segment {
	segment := story.NewNarratorSegment(result.Text, result.Choices, result.ImagePrompt)
	segment.Mood = string(mood.Analyze(result.Text).Mood)
	return segment
}

// startIllustrationLocked requests the image after the text is already
// visible. The result is attached to the same segment when it resolves.
func (s *Service) startIllustrationLocked(ctx context.Context, sess *Session, segment story.Segment) {
	sess.pendingImages++
	sess.latestNarratorID = segment.ID
	sess.currentImagePrompt = segment.ImagePrompt

	prompt := s.illustrationPrompt(segment, sess.settings)
	bg := context.WithoutCancel(ctx)
	log := s.logger.With(zap.String("session_id", sess.id), zap.String("segment_id", segment.ID))

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ref := s.gen.RequestIllustration(bg, prompt)

		sess.mu.Lock()
		defer sess.mu.Unlock()

		if err := sess.transcript.AttachIllustration(segment.ID, ref); err != nil {
			log.Debug("illustration discarded", zap.Error(err))
			return
		}
		if sess.pendingImages > 0 {
			sess.pendingImages--
		}
		if sess.latestNarratorID == segment.ID {
			sess.currentImageURL = ref
		}
		sess.publishLocked()
	}()
}

func (s *Service) illustrationPrompt(segment story.Segment, settings *story.GameSettings) string {
	base := strings.TrimSpace(segment.ImagePrompt)
	if base == "" {
		return ""
	}

	parts := []string{base}
	if segment.Mood != "" {
		parts = append(parts, mood.StyleSuffix(mood.Label(segment.Mood)))
	}
	if settings != nil && s.genres != nil {
		if genre, ok := s.genres.FindByName(settings.Genre); ok && genre.ImageStyle != "" {
			parts = append(parts, genre.ImageStyle)
		}
	}
	if s.imageStyle != "" {
		parts = append(parts, s.imageStyle)
	}
	return strings.Join(parts, ", ")
}

func (s *Service) get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
