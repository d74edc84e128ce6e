package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/config"
)

const startupCheckTimeout = 10 * time.Second

// AudioStore abstracts storage backends for synthesized speech.
type AudioStore interface {
	// Save stores audio data. key format: tts/{YYYY-MM-DD}/{uuid}.{ext}
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// URL returns a URL the browser can play the audio from: a presigned URL
	// for S3, or a path under /audio/ for local storage.
	URL(ctx context.Context, key string) (string, error)

	// LocalPath returns the local filesystem path if the file exists on disk.
	// Returns "" if not available locally.
	LocalPath(key string) string

	// Check verifies the backend is usable. Called once at startup.
	Check(ctx context.Context) error

	// Type returns "local" or "s3".
	Type() string
}

// New creates an AudioStore based on config and checks it before returning.
// An unreachable S3 bucket is an error, not a silent fallback to disk.
func New(cfg config.S3Config, audioDir string, log zerolog.Logger) (AudioStore, error) {
	var store AudioStore
	if cfg.Enabled() {
		s3store, err := NewS3Store(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}
		store = s3store
	} else {
		store = NewLocalStore(audioDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupCheckTimeout)
	defer cancel()
	if err := store.Check(ctx); err != nil {
		return nil, fmt.Errorf("%s audio store check failed: %w", store.Type(), err)
	}

	if cfg.Enabled() {
		log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("using S3 audio store")
	} else {
		log.Info().Str("dir", audioDir).Msg("using local audio store")
	}
	return store, nil
}

// NewKey returns a fresh, date-partitioned key for synthesized audio.
func NewKey(now time.Time, ext string) string {
	if ext == "" {
		ext = "mp3"
	}
	return path.Join("tts", now.UTC().Format("2006-01-02"), uuid.NewString()+"."+ext)
}
