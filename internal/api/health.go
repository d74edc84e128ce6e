package api

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	VisionMode    string            `json:"vision_mode"`
	Providers     []string          `json:"providers"`
	Checks        map[string]string `json:"checks"`
}

// BrokerStatus reports the event broker connection state.
type BrokerStatus interface {
	IsConnected() bool
}

// HealthOptions describes what the health endpoint reports on.
type HealthOptions struct {
	Version       string
	StartTime     time.Time
	VisionMode    string
	Providers     []string
	SpeechEnabled bool
	StoreType     string
	Broker        BrokerStatus // nil when MQTT isn't configured
}

type HealthHandler struct {
	opts HealthOptions
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts}
}

// ServeHTTP reports configuration-level health. It does not call the vendors.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	if len(h.opts.Providers) > 0 {
		checks["vision"] = "ok"
	} else {
		checks["vision"] = "not_configured"
		status = "unhealthy"
	}

	if h.opts.SpeechEnabled {
		checks["tts"] = "ok"
	} else {
		checks["tts"] = "not_configured"
	}

	if h.opts.StoreType != "" {
		checks["storage"] = h.opts.StoreType
	} else {
		checks["storage"] = "not_configured"
	}

	if h.opts.Broker != nil {
		if h.opts.Broker.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.opts.Version,
		UptimeSeconds: int64(time.Since(h.opts.StartTime).Seconds()),
		VisionMode:    h.opts.VisionMode,
		Providers:     h.opts.Providers,
		Checks:        checks,
	})
}
