package vision

import (
	"context"
	"fmt"
)

// Provider is the interface for image captioning backends.
type Provider interface {
	Describe(ctx context.Context, image []byte) (*Result, error)
	Name() string // "azure", "google"
}

// Result is the common captioning result from any provider.
type Result struct {
	Text       string   // caption or detected-object list; "" if the vendor had none
	Confidence float64  // 0 if the vendor doesn't report one
	Tags       []string // extra vendor tags/labels, may be nil
}

// APIError is a non-OK answer from a vendor API. Body holds the raw vendor
// response so callers can log it.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}
