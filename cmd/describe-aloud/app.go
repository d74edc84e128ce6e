package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/describe-aloud/internal/auth"
	"github.com/snarg/describe-aloud/internal/config"
	"github.com/snarg/describe-aloud/internal/describe"
	"github.com/snarg/describe-aloud/internal/mqttclient"
	"github.com/snarg/describe-aloud/internal/speech"
	"github.com/snarg/describe-aloud/internal/storage"
	"github.com/snarg/describe-aloud/internal/vision"
)

const authTimeout = 10 * time.Second

// app holds the services built from config. speaker, verifier and broker are
// nil when their feature isn't configured.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	describer *describe.Service
	speaker   *speech.Service
	store     storage.AudioStore
	verifier  *auth.Verifier
	broker    *mqttclient.Client
}

func loadConfig(flags *globalFlags, o config.Overrides) (*config.Config, error) {
	o.EnvFile = flags.envFile
	o.LogLevel = flags.logLevel
	o.VisionMode = flags.mode
	cfg, err := config.Load(o)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// buildApp wires providers, storage, speech, auth and events. withEvents is
// false for one-shot CLI runs, which don't publish to the broker.
func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, withEvents bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if withEvents && cfg.MQTT.Enabled() {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		broker, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			Log:         mqttLog,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mqtt broker: %w", err)
		}
		a.broker = broker
	}

	azureURL := cfg.AzureEndpoint
	if azureURL == "" {
		azureURL = vision.AzureEndpoint(cfg.AzureRegion)
	}
	primary := vision.NewAzureClient(azureURL, cfg.AzureAPIKey, cfg.VisionTimeout)

	var secondary vision.Provider
	if cfg.VisionMode == config.ModeDual {
		gc, err := vision.NewGoogleClient(ctx, cfg.GoogleAPIKey, cfg.GoogleEndpoint, cfg.GoogleMaxResults, cfg.VisionTimeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("google vision client: %w", err)
		}
		secondary = gc
	}

	a.describer = describe.NewService(describe.ServiceOptions{
		Primary:      primary,
		Secondary:    secondary,
		PublishEvent: a.publishFunc(),
		Log:          log.With().Str("component", "describe").Logger(),
	})

	store, err := storage.New(cfg.S3, cfg.AudioDir, log.With().Str("component", "storage").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	if cfg.TTS.Enabled() {
		a.speaker = speech.NewService(speech.ServiceOptions{
			Synthesizer:  speech.NewElevenLabsClient(cfg.TTS.APIKey, cfg.TTS.VoiceID, cfg.TTS.Model, cfg.TTS.Timeout),
			Store:        store,
			PublishEvent: a.publishFunc(),
			Log:          log.With().Str("component", "speech").Logger(),
		})
	}

	if cfg.Auth.SessionEnabled() {
		a.verifier = auth.NewVerifier(cfg.Auth.URL, cfg.Auth.APIKey, authTimeout)
	}

	ready := log.Info().
		Str("vision_mode", cfg.VisionMode).
		Bool("dual", a.describer.Dual()).
		Strs("providers", a.describer.Providers()).
		Bool("tts", a.speaker != nil)
	if a.speaker != nil {
		ready = ready.Str("tts_provider", a.speaker.Provider())
	}
	ready.
		Str("audio_store", store.Type()).
		Bool("mqtt", a.broker != nil).
		Msg("services ready")

	return a, nil
}

func (a *app) publishFunc() func(string, map[string]any) {
	if a.broker == nil {
		return nil
	}
	return a.broker.Publish
}

// BrokerConnected implements metrics.RuntimeStats.
func (a *app) BrokerConnected() bool { return a.broker != nil && a.broker.IsConnected() }

// SpeechEnabled implements metrics.RuntimeStats.
func (a *app) SpeechEnabled() bool { return a.speaker != nil }

func (a *app) Close() {
	if a.broker != nil {
		a.broker.Close()
	}
}
