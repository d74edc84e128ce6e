package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"AZURE_REGION":         "westeurope",
		"AZURE_VISION_API_KEY": "azure-key",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.VisionMode != ModeAzure {
			t.Errorf("VisionMode = %q, want azure", cfg.VisionMode)
		}
		if cfg.VisionTimeout != 30*time.Second {
			t.Errorf("VisionTimeout = %v, want 30s", cfg.VisionTimeout)
		}
		if cfg.MaxImageBytes != 4<<20 {
			t.Errorf("MaxImageBytes = %d, want 4 MiB", cfg.MaxImageBytes)
		}
		if cfg.AudioDir != "./audio" {
			t.Errorf("AudioDir = %q, want ./audio", cfg.AudioDir)
		}
		if cfg.TTS.Enabled() {
			t.Error("TTS.Enabled() = true, want false without TTS_API_KEY")
		}
		if cfg.S3.Enabled() {
			t.Error("S3.Enabled() = true, want false without S3_BUCKET")
		}
		if cfg.MQTT.ClientID != "describe-aloud" {
			t.Errorf("MQTT.ClientID = %q, want describe-aloud", cfg.MQTT.ClientID)
		}
		if cfg.Auth.Required() {
			t.Error("Auth.Required() = true, want false")
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.AzureRegion != "westeurope" {
			t.Errorf("AzureRegion = %q, want westeurope", cfg.AzureRegion)
		}
		if cfg.AzureAPIKey != "azure-key" {
			t.Errorf("AzureAPIKey = %q, want azure-key", cfg.AzureAPIKey)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:    "nonexistent.env",
			HTTPAddr:   ":9090",
			LogLevel:   "debug",
			VisionMode: "DUAL",
			AudioDir:   "/tmp/audio",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.VisionMode != ModeDual {
			t.Errorf("VisionMode = %q, want dual", cfg.VisionMode)
		}
		if cfg.AudioDir != "/tmp/audio" {
			t.Errorf("AudioDir = %q, want /tmp/audio", cfg.AudioDir)
		}
	})

	t.Run("env_file_loaded", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.env")
		if err := os.WriteFile(path, []byte("TTS_API_KEY=from-file\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		defer os.Unsetenv("TTS_API_KEY")

		cfg, err := Load(Overrides{EnvFile: path})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.TTS.APIKey != "from-file" {
			t.Errorf("TTS.APIKey = %q, want from-file", cfg.TTS.APIKey)
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			VisionMode:    ModeAzure,
			AzureRegion:   "eastus",
			AzureAPIKey:   "k",
			MaxImageBytes: 1024,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid_azure", func(c *Config) {}, false},
		{"endpoint_instead_of_region", func(c *Config) { c.AzureRegion = ""; c.AzureEndpoint = "http://localhost" }, false},
		{"bad_mode", func(c *Config) { c.VisionMode = "both" }, true},
		{"missing_region", func(c *Config) { c.AzureRegion = "" }, true},
		{"missing_azure_key", func(c *Config) { c.AzureAPIKey = "" }, true},
		{"dual_without_google", func(c *Config) { c.VisionMode = ModeDual }, true},
		{"dual_with_google", func(c *Config) { c.VisionMode = ModeDual; c.GoogleAPIKey = "g" }, false},
		{"zero_max_bytes", func(c *Config) { c.MaxImageBytes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCORSOriginList(t *testing.T) {
	c := &Config{CORSOrigins: " https://a.example , ,https://b.example"}
	got := c.CORSOriginList()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("CORSOriginList() = %v", got)
	}
	if (&Config{}).CORSOriginList() != nil {
		t.Error("empty CORS_ORIGINS should yield nil")
	}
}

func TestAuthConfig(t *testing.T) {
	if !(AuthConfig{Token: "t"}).Required() {
		t.Error("static token should require auth")
	}
	a := AuthConfig{URL: "https://id.example"}
	if !a.SessionEnabled() || !a.Required() {
		t.Error("auth URL should enable sessions")
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
