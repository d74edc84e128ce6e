package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"strings"

	// Registered decoders for Sniff.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidBase64 is returned when an uploaded image isn't valid base64.
	ErrInvalidBase64 = errors.New("image is not valid base64")
	// ErrNotImage is returned when the decoded bytes aren't a known image format.
	ErrNotImage = errors.New("unsupported image format")
)

// DecodeBase64 decodes an uploaded image. It accepts plain base64 (padded or
// not, standard or URL alphabet) and full data: URLs.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, ErrInvalidBase64
		}
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrInvalidBase64
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrInvalidBase64
}

// Sniff reports the image format ("jpeg", "png", "gif", "bmp", "tiff", "webp")
// by decoding only the header.
func Sniff(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotImage
	}
	return format, nil
}
