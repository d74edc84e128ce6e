package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/metrics"
	"github.com/snarg/describe-aloud/internal/storage"
)

// ErrEmptyText is returned when there is nothing to read aloud.
var ErrEmptyText = errors.New("text is required")

// AudioSaver is the part of storage.AudioStore the service needs.
type AudioSaver interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

// EventPublishFunc is a callback for publishing service events.
type EventPublishFunc func(eventType string, payload map[string]any)

// ServiceOptions configures the speech service.
type ServiceOptions struct {
	Synthesizer  Synthesizer
	Store        AudioSaver
	PublishEvent EventPublishFunc
	Now          func() time.Time // defaults to time.Now
	Log          zerolog.Logger
}

// Service turns caption text into a playable audio URL.
type Service struct {
	synth   Synthesizer
	store   AudioSaver
	publish EventPublishFunc
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a speech service.
func NewService(opts ServiceOptions) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		synth:   opts.Synthesizer,
		store:   opts.Store,
		publish: opts.PublishEvent,
		now:     now,
		log:     opts.Log,
	}
}

// Speak synthesizes text, stores the audio and returns its URL.
func (s *Service) Speak(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, text)
	metrics.ObserveVendor(s.synth.Name(), start, err)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	key := storage.NewKey(s.now(), audio.Ext)
	if err := s.store.Save(ctx, key, audio.Data, audio.ContentType); err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("audio url: %w", err)
	}

	durationMs := int(time.Since(start).Milliseconds())
	if s.publish != nil {
		s.publish("spoken", map[string]any{
			"key":         key,
			"provider":    s.synth.Name(),
			"chars":       len(text),
			"bytes":       len(audio.Data),
			"duration_ms": durationMs,
		})
	}

	s.log.Debug().
		Str("key", key).
		Int("chars", len(text)).
		Int("bytes", len(audio.Data)).
		Int("duration_ms", durationMs).
		Msg("speech synthesized")

	return url, nil
}

// Provider returns the configured synthesizer name.
func (s *Service) Provider() string { return s.synth.Name() }
