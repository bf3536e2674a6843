package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Version: "1",
		Telegram: TelegramConfig{
			Token: "123:abc",
		},
		Pairs: PairsConfig{
			From: []string{"-100111/5", "-100333"},
			To:   []string{"-100222", "-100444/7"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := &Config{} // no version, no token, no pairs
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"version", "telegram.token", "pairs.from"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Version = "2"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected version error")
	}
}

func TestValidate_PairCountMismatch(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Pairs.To = cfg.Pairs.To[:1]
	if err := Validate(cfg); err == nil {
		t.Fatal("expected pair mismatch error")
	}
}

func TestValidate_BadFilterPattern(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Filters.Cleanup = "(unclosed"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected filter pattern error")
	}
}

func TestValidate_BackoffOrdering(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Retry.InitialBackoff = cfg.Retry.MaxBackoff * 2
	if err := Validate(cfg); err == nil {
		t.Fatal("expected backoff ordering error")
	}
}

func TestValidate_BadGatewayListen(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Gateway.Listen = "not a listen address"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected listen address error")
	}
}

func TestValidate_BadCronSchedule(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Maintenance.SweepSchedule = "every now and then"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected schedule error")
	}
}
