package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/auth"
	"github.com/snarg/describe-aloud/internal/describe"
	"github.com/snarg/describe-aloud/internal/vision"
)

// Fixed client-facing messages.
const (
	msgImageRequired   = "Image is required"
	msgInvalidImage    = "Image must be base64-encoded"
	msgImageTooLarge   = "Image is too large"
	msgUnsupportedType = "Unsupported image format"
	msgDescribeFailed  = "Error processing image"
)

// Describer captions images.
type Describer interface {
	Describe(ctx context.Context, image []byte) (*describe.Description, error)
}

// DescribeRequest is the POST /api/describeImage body.
type DescribeRequest struct {
	Image string `json:"image"`
}

// DescribeResponse is returned in single-vendor mode.
type DescribeResponse struct {
	Description string `json:"description"`
}

// DualDescribeResponse is returned when two vendors are configured.
type DualDescribeResponse struct {
	AzureDescription    string `json:"azureDescription"`
	GoogleDescription   string `json:"googleDescription"`
	CombinedDescription string `json:"combinedDescription"`
}

// DescribeHandler relays uploaded images to the vision providers.
type DescribeHandler struct {
	describer     Describer
	maxImageBytes int64
	log           zerolog.Logger
}

// NewDescribeHandler creates a describe handler. maxImageBytes bounds the
// decoded image size.
func NewDescribeHandler(d Describer, maxImageBytes int64, log zerolog.Logger) *DescribeHandler {
	return &DescribeHandler{
		describer:     d,
		maxImageBytes: maxImageBytes,
		log:           log.With().Str("handler", "describe").Logger(),
	}
}

// maxBodyBytes allows for base64 expansion plus JSON framing. Encoders that
// wrap lines at 64 or 76 columns add an escaped "\r\n" (4 bytes in JSON) per
// line, so one line break per 64 encoded bytes is budgeted.
func (h *DescribeHandler) maxBodyBytes() int64 {
	enc := (h.maxImageBytes + 2) / 3 * 4
	return enc + enc/16 + 4 + 1024
}

// Describe handles /api/describeImage. Only POST is accepted.
func (h *DescribeHandler) Describe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes())

	var req DescribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		WriteError(w, http.StatusBadRequest, msgImageRequired)
		return
	}
	if req.Image == "" {
		WriteError(w, http.StatusBadRequest, msgImageRequired)
		return
	}

	image, err := vision.DecodeBase64(req.Image)
	if err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidImage)
		return
	}
	if int64(len(image)) > h.maxImageBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
		return
	}
	format, err := vision.Sniff(image)
	if err != nil {
		WriteError(w, http.StatusBadRequest, msgUnsupportedType)
		return
	}

	d, err := h.describer.Describe(r.Context(), image)
	if err != nil {
		h.logFailure(r, err, format, len(image))
		WriteError(w, http.StatusInternalServerError, msgDescribeFailed)
		return
	}

	if d.Dual {
		WriteJSON(w, http.StatusOK, DualDescribeResponse{
			AzureDescription:    d.AzureDescription,
			GoogleDescription:   d.GoogleDescription,
			CombinedDescription: d.Combined,
		})
		return
	}
	WriteJSON(w, http.StatusOK, DescribeResponse{Description: d.Text})
}

// logFailure logs a describe error, including the vendor's own error body
// when a vendor answered non-OK.
func (h *DescribeHandler) logFailure(r *http.Request, err error, format string, size int) {
	ev := h.log.Error().Err(err).
		Str("request_id", r.Header.Get(requestIDHeader)).
		Str("format", format).
		Int("image_bytes", size)
	if u := auth.UserFromContext(r.Context()); u != nil {
		ev = ev.Str("user_id", u.ID)
	}
	var apiErr *vision.APIError
	if errors.As(err, &apiErr) {
		ev = ev.Str("provider", apiErr.Provider).
			Int("vendor_status", apiErr.Status).
			Str("vendor_body", apiErr.Body)
		ev.Msg("error from vision API")
		return
	}
	ev.Msg("describe failed")
}
