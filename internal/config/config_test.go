package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "agents"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Twilio:   TwilioConfig{AccountSID: "AC123", AuthToken: "tok"},
		Ultravox: UltravoxConfig{APIKey: "uv"},
		Storage:  StorageConfig{URL: "http://storage.local", ServiceKey: "svc"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTAudience = "authenticated"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Session.InactivityTimeout != 30*time.Minute {
		t.Fatalf("expected 30m inactivity default, got %s", c.Session.InactivityTimeout)
	}
	if c.VoiceSync.MaxPreviewBytes != 5*1024*1024 {
		t.Fatalf("expected 5MiB preview cap, got %d", c.VoiceSync.MaxPreviewBytes)
	}
	if c.Storage.Bucket != "voice-previews" {
		t.Fatalf("expected default bucket, got %q", c.Storage.Bucket)
	}
	if c.Twilio.BaseURL != "https://api.twilio.com" {
		t.Fatalf("unexpected twilio base url %q", c.Twilio.BaseURL)
	}
}

func TestValidate_RequiresProviderCredentials(t *testing.T) {
	c := validLocal()
	c.Twilio.AuthToken = ""
	c.Ultravox.APIKey = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing provider credentials")
	}
}
