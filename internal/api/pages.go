package api

import (
	"io/fs"
	"net/http"
)

// PublicSettings is what the page needs to know before its first call.
type PublicSettings struct {
	VisionMode   string `json:"mode"`
	TTSEnabled   bool   `json:"tts_enabled"`
	AuthRequired bool   `json:"auth_required"`
	AuthURL      string `json:"auth_url,omitempty"`
	AuthAPIKey   string `json:"auth_api_key,omitempty"`
}

// SettingsHandler serves GET /api/config.
func SettingsHandler(s PublicSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, s)
	}
}

// PageHandler serves the embedded single-page UI. Unknown paths fall back to
// index.html so the page works behind any mount point.
func PageHandler(webFS fs.FS) http.HandlerFunc {
	files := http.FileServer(http.FS(webFS))
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(webFS, name); err != nil {
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/"
			files.ServeHTTP(w, r2)
			return
		}
		files.ServeHTTP(w, r)
	}
}
