package story

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrInvalidSegment   = errors.New("invalid segment")
	ErrImmutableSegment = errors.New("segment cannot be modified")
)

// Transcript is the ordered, append-only record of a session. It is replayed as
// context on every generation request, so entries are never removed, reordered
// or rewritten. The only mutations are attaching an illustration to a narrator
// entry and resolving the status of a pending user action.
type Transcript struct {
	mu       sync.RWMutex
	segments []Segment
	index    map[string]int
	version  uint64
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		segments: make([]Segment, 0, 16),
		index:    make(map[string]int),
	}
}

// Append adds a segment at the end.
func (t *Transcript) Append(segment Segment) error {
	if !segment.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidSegment, segment.ID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.index[segment.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidSegment, segment.ID)
	}
	t.index[segment.ID] = len(t.segments)
	t.segments = append(t.segments, segment.clone())
	t.version++
	return nil
}

// AttachIllustration sets the image reference of a narrator segment.
func (t *Transcript) AttachIllustration(segmentID, ref string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[segmentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	if t.segments[i].IsUserAction {
		return fmt.Errorf("%w: user action %s has no illustration", ErrImmutableSegment, segmentID)
	}
	t.segments[i].ImageURL = ref
	return nil
}

// Resolve moves a pending user action to confirmed or failed.
func (t *Transcript) Resolve(segmentID string, status Status) error {
	if status != StatusConfirmed && status != StatusFailed {
		return fmt.Errorf("%w: unsupported status %q", ErrImmutableSegment, status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[segmentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	seg := &t.segments[i]
	if !seg.IsUserAction || seg.Status != StatusPending {
		return fmt.Errorf("%w: %s is not a pending user action", ErrImmutableSegment, segmentID)
	}
	seg.Status = status
	t.version++
	return nil
}

// Segments returns a copy of all entries in chronological order.
func (t *Transcript) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]Segment, len(t.segments))
	for i, seg := range t.segments {
		copied[i] = seg.clone()
	}
	return copied
}

// Context returns the entries replayed to the backend. Failed user actions were
// never answered and are left out.
func (t *Transcript) Context() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ctx := make([]Segment, 0, len(t.segments))
	for _, seg := range t.segments {
		if seg.IsUserAction && seg.Status == StatusFailed {
			continue
		}
		ctx = append(ctx, seg.clone())
	}
	return ctx
}

// Get looks up a segment by id.
func (t *Transcript) Get(segmentID string) (Segment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[segmentID]
	if !ok {
		return Segment{}, false
	}
	return t.segments[i].clone(), true
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.segments)
}

// Version changes whenever the replayed context changes. Illustrations do not
// count since they are never sent back to the backend.
func (t *Transcript) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}
