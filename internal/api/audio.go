package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// LocalAudio is the part of storage.AudioStore needed to serve files from disk.
type LocalAudio interface {
	LocalPath(key string) string
}

// AudioHandler streams synthesized speech kept in the local store.
type AudioHandler struct {
	store LocalAudio
}

func NewAudioHandler(store LocalAudio) *AudioHandler {
	return &AudioHandler{store: store}
}

// Get handles GET /audio/*.
func (h *AudioHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	fullPath := h.store.LocalPath(key)
	if fullPath == "" {
		WriteError(w, http.StatusNotFound, "audio not found")
		return
	}

	ext := strings.ToLower(filepath.Ext(fullPath))
	contentTypes := map[string]string{
		".mp3": "audio/mpeg",
		".wav": "audio/wav",
		".ogg": "audio/ogg",
	}
	if ct, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filepath.Base(fullPath)))
	http.ServeFile(w, r, fullPath)
}
