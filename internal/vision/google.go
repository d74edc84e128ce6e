package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"
)

// GoogleClient calls Google Cloud Vision images:annotate with an API key.
// Implements the Provider interface.
type GoogleClient struct {
	svc        *gvision.Service
	maxResults int64
	timeout    time.Duration
}

// NewGoogleClient creates a Google Vision client. endpoint overrides the API
// base URL when non-empty (it must end in "/").
func NewGoogleClient(ctx context.Context, apiKey, endpoint string, maxResults int64, timeout time.Duration) (*GoogleClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := gvision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google vision service: %w", err)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &GoogleClient{svc: svc, maxResults: maxResults, timeout: timeout}, nil
}

// Name returns the provider name.
func (gc *GoogleClient) Name() string { return "google" }

// Describe requests object localization and label detection. Text lists the
// distinct detected object names; labels are used when no objects were found.
func (gc *GoogleClient) Describe(ctx context.Context, image []byte) (*Result, error) {
	if gc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gc.timeout)
		defer cancel()
	}

	req := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{{
			Image: &gvision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*gvision.Feature{
				{Type: "OBJECT_LOCALIZATION", MaxResults: gc.maxResults},
				{Type: "LABEL_DETECTION", MaxResults: gc.maxResults},
			},
		}},
	}

	resp, err := gc.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			body := gerr.Body
			if body == "" {
				body = gerr.Message
			}
			return nil, &APIError{Provider: "google", Status: gerr.Code, Body: body}
		}
		return nil, fmt.Errorf("google request: %w", err)
	}

	if len(resp.Responses) == 0 {
		return &Result{}, nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, &APIError{Provider: "google", Status: int(r.Error.Code), Body: r.Error.Message}
	}

	var objects []string
	var best float64
	seen := make(map[string]bool)
	for _, o := range r.LocalizedObjectAnnotations {
		name := strings.TrimSpace(o.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		objects = append(objects, name)
		if o.Score > best {
			best = o.Score
		}
	}

	var labels []string
	for _, l := range r.LabelAnnotations {
		if d := strings.TrimSpace(l.Description); d != "" {
			labels = append(labels, d)
		}
	}

	out := &Result{Tags: labels}
	switch {
	case len(objects) > 0:
		out.Text = strings.Join(objects, ", ")
		out.Confidence = best
	case len(labels) > 0:
		out.Text = strings.Join(labels, ", ")
		out.Confidence = r.LabelAnnotations[0].Score
	}
	return out, nil
}
