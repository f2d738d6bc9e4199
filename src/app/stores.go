package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"imaginarium/src/repository"
)

const s3ConfigVersion = 2

type (
	// GalleryStore persists the ordered image list of each identity.
	GalleryStore struct {
		kv  repository.KeyValueStore
		log zerolog.Logger
		now func() time.Time
	}

	// S3ConfigStore persists object storage settings of each identity.
	S3ConfigStore struct {
		kv  repository.KeyValueStore
		log zerolog.Logger
	}

	s3ConfigRecord struct {
		Version int `json:"version"`
		S3Config
	}

	Theme string

	ThemeStore struct {
		kv repository.KeyValueStore
	}
)

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func NewGalleryStore(kv repository.KeyValueStore, log zerolog.Logger) *GalleryStore {
	return &GalleryStore{
		kv:  kv,
		log: log.With().Str("component", "gallery-store").Logger(),
		now: time.Now,
	}
}

func galleryKey(userID string) string { return "generatedImages_" + userID }

// Load reads the stored list and repairs incomplete entries. A list that can not
// be parsed at all is removed from the store and an empty gallery is returned.
func (g *GalleryStore) Load(ctx context.Context, userID string) ([]GeneratedImage, error) {
	raw, err := g.kv.Get(ctx, galleryKey(userID))
	if errors.Is(err, repository.ErrNotFound) {
		return []GeneratedImage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		g.log.Error().Err(err).Str("user", userID).Msg("error parsing stored images, clearing")
		if err := g.kv.Delete(ctx, galleryKey(userID)); err != nil {
			return nil, fmt.Errorf("clear gallery: %w", err)
		}
		return []GeneratedImage{}, nil
	}

	images := make([]GeneratedImage, 0, len(entries))
	for _, e := range entries {
		images = append(images, g.repair(e))
	}
	return images, nil
}

func (g *GalleryStore) repair(raw json.RawMessage) GeneratedImage {
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &fields)

	str := func(name string) string {
		var s string
		if v, ok := fields[name]; ok && json.Unmarshal(v, &s) == nil {
			return s
		}
		return ""
	}

	image := GeneratedImage{
		ID:     str("id"),
		URL:    str("url"),
		Prompt: str("prompt"),
		Alt:    str("alt"),
		Name:   str("name"),
		AIHint: str("aiHint"),
	}
	if image.ID == "" || image.ID == "undefined" {
		image.ID = fmt.Sprintf("%d-%s", g.now().UnixMilli(), strings.ToLower(ulid.Make().String()))
	}
	if image.URL == "" {
		image.URL = InvalidImageURL(image.ID)
	}
	if image.Prompt == "" {
		image.Prompt = UntitledPrompt
	}
	if image.Alt == "" {
		image.Alt = "Image for prompt: " + image.Prompt
	}
	return image
}

// Save writes images as given; callers truncate beforehand.
func (g *GalleryStore) Save(ctx context.Context, userID string, images []GeneratedImage) error {
	if images == nil {
		images = []GeneratedImage{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("marshal gallery: %w", err)
	}
	return g.kv.Set(ctx, galleryKey(userID), string(raw), 0)
}

func (g *GalleryStore) Clear(ctx context.Context, userID string) error {
	return g.kv.Delete(ctx, galleryKey(userID))
}

func NewS3ConfigStore(kv repository.KeyValueStore, log zerolog.Logger) *S3ConfigStore {
	return &S3ConfigStore{
		kv:  kv,
		log: log.With().Str("component", "s3-config-store").Logger(),
	}
}

func s3ConfigKey(userID string) string { return "s3ImaginariumConfig_" + userID }

// Load returns nil when nothing is stored. Absent fields default to empty strings,
// fields of older record versions are ignored, and an unreadable record is removed.
func (s *S3ConfigStore) Load(ctx context.Context, userID string) (*S3Config, error) {
	raw, err := s.kv.Get(ctx, s3ConfigKey(userID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	var record s3ConfigRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("error parsing stored s3 config, clearing")
		if err := s.kv.Delete(ctx, s3ConfigKey(userID)); err != nil {
			return nil, fmt.Errorf("clear s3 config: %w", err)
		}
		return nil, nil
	}
	config := record.S3Config
	return &config, nil
}

func (s *S3ConfigStore) Save(ctx context.Context, userID string, config S3Config) error {
	raw, err := json.Marshal(s3ConfigRecord{Version: s3ConfigVersion, S3Config: config})
	if err != nil {
		return fmt.Errorf("marshal s3 config: %w", err)
	}
	return s.kv.Set(ctx, s3ConfigKey(userID), string(raw), 0)
}

func (s *S3ConfigStore) Delete(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, s3ConfigKey(userID))
}

// ParseTheme accepts light, dark and system.
func ParseTheme(raw string) (Theme, bool) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, true
	default:
		return ThemeSystem, false
	}
}

func NewThemeStore(kv repository.KeyValueStore) *ThemeStore {
	return &ThemeStore{kv: kv}
}

func themeKey(userID string) string { return "imaginarium-ui-theme_" + userID }

// Load falls back to the system theme when nothing valid is stored.
func (t *ThemeStore) Load(ctx context.Context, userID string) (Theme, error) {
	raw, err := t.kv.Get(ctx, themeKey(userID))
	if errors.Is(err, repository.ErrNotFound) {
		return ThemeSystem, nil
	}
	if err != nil {
		return ThemeSystem, err
	}
	theme, _ := ParseTheme(raw)
	return theme, nil
}

func (t *ThemeStore) Save(ctx context.Context, userID string, theme Theme) error {
	return t.kv.Set(ctx, themeKey(userID), string(theme), 0)
}
