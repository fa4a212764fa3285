package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	storymodel "github.com/zhouzirui/z-story/backend/internal/model/story"
)

var errNotDataURL = errors.New("illustration is not an inline image")

// imageSaver writes inline illustrations to disk once per segment.
type imageSaver struct {
	dir   string
	saved map[string]bool
}

func newImageSaver(dir string) *imageSaver {
	return &imageSaver{dir: dir, saved: make(map[string]bool)}
}

func (s *imageSaver) enabled() bool {
	return s.dir != ""
}

// save returns the written path, or "" when there is nothing new to write.
func (s *imageSaver) save(seg storymodel.Segment) (string, error) {
	if !s.enabled() || seg.IsUserAction || seg.ImageURL == "" || s.saved[seg.ID] {
		return "", nil
	}
	s.saved[seg.ID] = true

	data, ext, err := decodeDataURL(seg.ImageURL)
	if errors.Is(err, errNotDataURL) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, seg.ID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// decodeDataURL parses data:<mime>;base64,<payload>.
func decodeDataURL(ref string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, "", errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("malformed data url")
	}

	ext := ".png"
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode illustration: %w", err)
	}
	return data, ext, nil
}
