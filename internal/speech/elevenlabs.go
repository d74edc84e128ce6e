package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsClient calls the ElevenLabs Text-to-Speech API.
// Implements the Synthesizer interface.
type ElevenLabsClient struct {
	baseURL string
	apiKey  string
	voiceID string
	model   string // e.g. "eleven_multilingual_v2"
	client  *http.Client
}

// elevenLabsRequest is the JSON body for POST /v1/text-to-speech/{voice_id}.
type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// NewElevenLabsClient creates a new ElevenLabs TTS client.
func NewElevenLabsClient(apiKey, voiceID, model string, timeout time.Duration) *ElevenLabsClient {
	return &ElevenLabsClient{
		baseURL: elevenLabsBaseURL,
		apiKey:  apiKey,
		voiceID: voiceID,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a different API host (tests, proxies).
func (el *ElevenLabsClient) WithBaseURL(base string) *ElevenLabsClient {
	el.baseURL = strings.TrimRight(base, "/")
	return el
}

// Name returns the provider name.
func (el *ElevenLabsClient) Name() string { return "elevenlabs" }

// Synthesize converts text to MP3 audio.
func (el *ElevenLabsClient) Synthesize(ctx context.Context, text string) (*Audio, error) {
	payload, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: el.model})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := el.baseURL + "/v1/text-to-speech/" + url.PathEscape(el.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", el.apiKey)

	resp, err := el.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "elevenlabs", Status: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return &Audio{Data: body, ContentType: ct, Ext: "mp3"}, nil
}
