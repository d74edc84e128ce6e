package speech

import (
	"context"
	"fmt"
)

// Synthesizer is the interface for text-to-speech backends.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
	Name() string // "elevenlabs"
}

// Audio is synthesized speech as returned by a Synthesizer.
type Audio struct {
	Data        []byte
	ContentType string // e.g. "audio/mpeg"
	Ext         string // file extension without dot, e.g. "mp3"
}

// APIError is a non-OK answer from a speech vendor.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}
