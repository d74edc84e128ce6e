package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/auth"
	"github.com/snarg/describe-aloud/internal/speech"
)

const (
	msgTextRequired   = "Text is required"
	msgSpeechDisabled = "Text to speech is not configured"
	msgSpeechFailed   = "Error converting text to speech"

	maxSpeechBodyBytes = 64 << 10
)

// Speaker turns text into a playable audio URL.
type Speaker interface {
	Speak(ctx context.Context, text string) (string, error)
}

// SpeechRequest is the POST /api/textToSpeech body.
type SpeechRequest struct {
	Text string `json:"text"`
}

// SpeechResponse carries the URL of the synthesized audio.
type SpeechResponse struct {
	AudioURL string `json:"audioUrl"`
}

// SpeechHandler reads captions aloud. A nil speaker means TTS is disabled.
type SpeechHandler struct {
	speaker Speaker
	log     zerolog.Logger
}

// NewSpeechHandler creates a speech handler.
func NewSpeechHandler(s Speaker, log zerolog.Logger) *SpeechHandler {
	return &SpeechHandler{
		speaker: s,
		log:     log.With().Str("handler", "speech").Logger(),
	}
}

// Speak handles /api/textToSpeech. Only POST is accepted.
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	if h.speaker == nil {
		WriteError(w, http.StatusServiceUnavailable, msgSpeechDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSpeechBodyBytes)

	var req SpeechRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, msgTextRequired)
		return
	}

	url, err := h.speaker.Speak(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) {
			WriteError(w, http.StatusBadRequest, msgTextRequired)
			return
		}
		ev := h.log.Error().Err(err).Str("request_id", r.Header.Get(requestIDHeader))
		if u := auth.UserFromContext(r.Context()); u != nil {
			ev = ev.Str("user_id", u.ID)
		}
		var apiErr *speech.APIError
		if errors.As(err, &apiErr) {
			ev = ev.Str("provider", apiErr.Provider).
				Int("vendor_status", apiErr.Status).
				Str("vendor_body", apiErr.Body)
		}
		ev.Msg("text to speech failed")
		WriteError(w, http.StatusInternalServerError, msgSpeechFailed)
		return
	}

	WriteJSON(w, http.StatusOK, SpeechResponse{AudioURL: url})
}
