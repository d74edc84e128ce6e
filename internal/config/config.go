package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Vision modes.
const (
	ModeAzure = "azure"
	ModeDual  = "dual"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	VisionMode    string        `env:"VISION_MODE" envDefault:"azure"`
	VisionTimeout time.Duration `env:"VISION_TIMEOUT" envDefault:"30s"`
	MaxImageBytes int64         `env:"MAX_IMAGE_BYTES" envDefault:"4194304"`

	AzureRegion   string `env:"AZURE_REGION"`
	AzureAPIKey   string `env:"AZURE_VISION_API_KEY"`
	AzureEndpoint string `env:"AZURE_VISION_ENDPOINT"`

	GoogleAPIKey     string `env:"GOOGLE_VISION_API_KEY"`
	GoogleEndpoint   string `env:"GOOGLE_VISION_ENDPOINT"`
	GoogleMaxResults int64  `env:"GOOGLE_MAX_RESULTS" envDefault:"5"`

	TTS TTSConfig

	AudioDir string `env:"AUDIO_DIR" envDefault:"./audio"`
	S3       S3Config

	Auth AuthConfig

	CORSOrigins string `env:"CORS_ORIGINS"`

	MQTT MQTTConfig
}

// TTSConfig configures the text-to-speech vendor. An empty APIKey disables speech.
type TTSConfig struct {
	APIKey  string        `env:"TTS_API_KEY"`
	VoiceID string        `env:"TTS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8Ikwnz"`
	Model   string        `env:"TTS_MODEL" envDefault:"eleven_multilingual_v2"`
	Timeout time.Duration `env:"TTS_TIMEOUT" envDefault:"60s"`
}

// Enabled reports whether speech synthesis is configured.
func (c TTSConfig) Enabled() bool { return c.APIKey != "" }

// S3Config holds the optional S3 audio store settings.
type S3Config struct {
	Bucket        string        `env:"S3_BUCKET"`
	Region        string        `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"S3_ENDPOINT"`
	AccessKey     string        `env:"S3_ACCESS_KEY"`
	SecretKey     string        `env:"S3_SECRET_KEY"`
	Prefix        string        `env:"S3_PREFIX"`
	PresignExpiry time.Duration `env:"S3_PRESIGN_EXPIRY" envDefault:"1h"`
}

// Enabled reports whether S3 storage is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// AuthConfig selects how API callers are authenticated. URL takes priority
// over Token; both empty means the API is open.
type AuthConfig struct {
	Token  string `env:"AUTH_TOKEN"`
	URL    string `env:"AUTH_URL"`
	APIKey string `env:"AUTH_API_KEY"`
}

// SessionEnabled reports whether hosted identity-provider sessions are required.
func (c AuthConfig) SessionEnabled() bool { return c.URL != "" }

// Required reports whether any authentication is configured.
func (c AuthConfig) Required() bool { return c.URL != "" || c.Token != "" }

// MQTTConfig enables event publishing when BrokerURL is set.
type MQTTConfig struct {
	BrokerURL   string `env:"MQTT_BROKER_URL"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"describe-aloud"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"describe-aloud"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
}

// Enabled reports whether an MQTT broker is configured.
func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile    string
	HTTPAddr   string
	LogLevel   string
	VisionMode string
	AudioDir   string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.VisionMode != "" {
		cfg.VisionMode = overrides.VisionMode
	}
	if overrides.AudioDir != "" {
		cfg.AudioDir = overrides.AudioDir
	}

	cfg.VisionMode = strings.ToLower(strings.TrimSpace(cfg.VisionMode))

	return cfg, nil
}

// Validate checks that the vendors required by VisionMode are configured.
func (c *Config) Validate() error {
	switch c.VisionMode {
	case ModeAzure, ModeDual:
	default:
		return fmt.Errorf("invalid VISION_MODE %q: must be %q or %q", c.VisionMode, ModeAzure, ModeDual)
	}
	if c.AzureRegion == "" && c.AzureEndpoint == "" {
		return fmt.Errorf("AZURE_REGION or AZURE_VISION_ENDPOINT is required")
	}
	if c.AzureAPIKey == "" {
		return fmt.Errorf("AZURE_VISION_API_KEY is required")
	}
	if c.VisionMode == ModeDual && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_VISION_API_KEY is required when VISION_MODE=%s", ModeDual)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("invalid MAX_IMAGE_BYTES %d: must be > 0", c.MaxImageBytes)
	}
	return nil
}

// CORSOriginList splits CORS_ORIGINS into trimmed, non-empty entries.
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
