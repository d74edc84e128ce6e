// Package describe turns an uploaded image into caption text using one or two
// vision providers.
package describe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/metrics"
	"github.com/snarg/describe-aloud/internal/vision"
)

// NoDescription is returned in place of a caption when a vendor has none.
const NoDescription = "No description available"

// EventPublishFunc is a callback for publishing service events.
type EventPublishFunc func(eventType string, payload map[string]any)

// Description is the outcome of one describe call. Single mode fills Text;
// dual mode fills the per-vendor fields and Combined.
type Description struct {
	Dual bool

	Text string

	AzureDescription  string
	GoogleDescription string
	Combined          string
}

// ProviderError wraps a failing provider call with the provider's name.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// ServiceOptions configures the describe service. Secondary is only set in
// dual mode.
type ServiceOptions struct {
	Primary      vision.Provider
	Secondary    vision.Provider
	PublishEvent EventPublishFunc
	Log          zerolog.Logger
}

// Service captions images.
type Service struct {
	primary   vision.Provider
	secondary vision.Provider
	publish   EventPublishFunc
	log       zerolog.Logger
}

// NewService creates a describe service.
func NewService(opts ServiceOptions) *Service {
	return &Service{
		primary:   opts.Primary,
		secondary: opts.Secondary,
		publish:   opts.PublishEvent,
		log:       opts.Log,
	}
}

// Dual reports whether a second provider is configured.
func (s *Service) Dual() bool { return s.secondary != nil }

// Providers returns the configured provider names in call order.
func (s *Service) Providers() []string {
	names := []string{s.primary.Name()}
	if s.secondary != nil {
		names = append(names, s.secondary.Name())
	}
	return names
}

// Describe captions image. Providers are called one after the other; if any
// fails the whole call fails.
func (s *Service) Describe(ctx context.Context, image []byte) (*Description, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	start := time.Now()

	first, err := s.call(ctx, s.primary, image)
	if err != nil {
		return nil, err
	}

	var d *Description
	if s.secondary == nil {
		d = &Description{Text: orFallback(first.Text)}
	} else {
		second, err := s.call(ctx, s.secondary, image)
		if err != nil {
			return nil, err
		}
		d = &Description{
			Dual:              true,
			AzureDescription:  orFallback(first.Text),
			GoogleDescription: orFallback(second.Text),
		}
		d.Combined = Combine(d.AzureDescription, d.GoogleDescription)
	}

	durationMs := int(time.Since(start).Milliseconds())
	if s.publish != nil {
		s.publish("described", map[string]any{
			"providers":   s.Providers(),
			"description": d.Speakable(),
			"image_bytes": len(image),
			"duration_ms": durationMs,
		})
	}

	s.log.Debug().
		Strs("providers", s.Providers()).
		Int("image_bytes", len(image)).
		Int("duration_ms", durationMs).
		Msg("image described")

	return d, nil
}

func (s *Service) call(ctx context.Context, p vision.Provider, image []byte) (*vision.Result, error) {
	start := time.Now()
	res, err := p.Describe(ctx, image)
	metrics.ObserveVendor(p.Name(), start, err)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	return res, nil
}

// Speakable returns the text the page reads aloud for this description.
func (d *Description) Speakable() string {
	if d.Dual {
		return d.Combined
	}
	return d.Text
}

// Combine builds the dual-mode sentence read aloud by the page.
func Combine(caption, objects string) string {
	return fmt.Sprintf("%s. Detected objects: %s.", caption, objects)
}

func orFallback(s string) string {
	if s == "" {
		return NoDescription
	}
	return s
}
