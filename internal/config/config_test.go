package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Summary.InactivityTimeout != 15*time.Minute {
		t.Errorf("inactivity timeout = %v, want 15m", cfg.Summary.InactivityTimeout)
	}
	if cfg.Summary.ScrollStopThreshold != 30*time.Second {
		t.Errorf("scroll stop threshold = %v, want 30s", cfg.Summary.ScrollStopThreshold)
	}
	if cfg.Summary.PollInterval != 5*time.Minute {
		t.Errorf("poll interval = %v, want 5m", cfg.Summary.PollInterval)
	}
	if cfg.Summary.SessionWorkers != 4 {
		t.Errorf("session workers = %d, want 4", cfg.Summary.SessionWorkers)
	}
	if cfg.Kafka.Topic != "raw-events" {
		t.Errorf("kafka topic = %q, want raw-events", cfg.Kafka.Topic)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SUMMARY_INACTIVITY_TIMEOUT", "30m")
	t.Setenv("SUMMARY_SESSION_WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Summary.InactivityTimeout != 30*time.Minute {
		t.Errorf("inactivity timeout = %v, want 30m", cfg.Summary.InactivityTimeout)
	}
	if cfg.Summary.SessionWorkers != 8 {
		t.Errorf("session workers = %d, want 8", cfg.Summary.SessionWorkers)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "db",
		Port:     "5433",
		Database: "visitstream",
		Username: "svc",
		Password: "secret",
		SSLMode:  "require",
	}

	want := "host=db port=5433 user=svc password=secret dbname=visitstream sslmode=require"
	if got := pg.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN() = %q, want %q", got, want)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	if got := getEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("bad int must fall back to the default, got %d", got)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("duration = %v, want 90s", got)
	}

	t.Setenv("TEST_BOOL", "false")
	if got := getEnvAsBool("TEST_BOOL", true); got {
		t.Error("explicit false must override the default")
	}
}
