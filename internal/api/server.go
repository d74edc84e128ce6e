package api

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/config"
	"github.com/snarg/describe-aloud/internal/metrics"
)

// ServerOptions wires the HTTP surface to the services behind it.
type ServerOptions struct {
	Config    *config.Config
	Describer Describer
	Speaker   Speaker       // nil when TTS is disabled
	Verifier  TokenVerifier // nil unless session auth is configured
	Audio     LocalAudio    // nil when audio isn't stored on local disk
	WebFS     fs.FS
	Health    HealthOptions
	Log       zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	return &Server{
		http: &http.Server{
			Addr:         opts.Config.HTTPAddr,
			Handler:      NewRouter(opts),
			ReadTimeout:  opts.Config.ReadTimeout,
			WriteTimeout: opts.Config.WriteTimeout,
			IdleTimeout:  opts.Config.IdleTimeout,
		},
		log: opts.Log,
	}
}

// NewRouter builds the full route tree. Split out from NewServer for tests.
func NewRouter(opts ServerOptions) http.Handler {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORSWithOrigins(cfg.CORSOriginList()))

	// Public routes
	r.Get("/api/health", NewHealthHandler(opts.Health).ServeHTTP)
	r.Get("/api/config", SettingsHandler(PublicSettings{
		VisionMode:   cfg.VisionMode,
		TTSEnabled:   opts.Speaker != nil,
		AuthRequired: cfg.Auth.Required(),
		AuthURL:      cfg.Auth.URL,
		AuthAPIKey:   cfg.Auth.APIKey,
	}))
	r.Handle("/metrics", promhttp.Handler())

	if opts.Audio != nil {
		r.Get("/audio/*", NewAudioHandler(opts.Audio).Get)
	}

	// Authenticated routes. Both are POST-only; the method check runs first.
	r.Group(func(r chi.Router) {
		r.Use(AllowMethods(http.MethodPost))
		switch {
		case cfg.Auth.SessionEnabled() && opts.Verifier != nil:
			r.Use(SessionAuth(opts.Verifier))
		default:
			r.Use(BearerAuth(cfg.Auth.Token))
		}

		describe := NewDescribeHandler(opts.Describer, cfg.MaxImageBytes, opts.Log)
		r.HandleFunc("/api/describeImage", describe.Describe)

		speech := NewSpeechHandler(opts.Speaker, opts.Log)
		r.HandleFunc("/api/textToSpeech", speech.Speak)
	})

	if opts.WebFS != nil {
		r.Get("/*", PageHandler(opts.WebFS))
	}

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second
