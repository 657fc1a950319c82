package config

import (
	"testing"
	"time"
)

func TestDefaultClientConfigIsValid(t *testing.T) {
	if err := ValidateClientConfig(DefaultClientConfig()); err != nil {
		t.Fatalf("default client config invalid: %v", err)
	}
}

func TestDefaultServiceConfigIsValid(t *testing.T) {
	if err := ValidateServiceConfig(DefaultServiceConfig()); err != nil {
		t.Fatalf("default service config invalid: %v", err)
	}
}

func TestValidateClientConfigRejectsBadValues(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.GatewayPath = ""
	if err := ValidateClientConfig(cfg); err == nil {
		t.Fatalf("empty gateway path accepted")
	}

	cfg = DefaultClientConfig()
	cfg.DialTimeout = -time.Second
	if err := ValidateClientConfig(cfg); err == nil {
		t.Fatalf("negative dial timeout accepted")
	}
}

func TestValidateServiceConfigRejectsBadValues(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.ListenAddr = ""
	if err := ValidateServiceConfig(cfg); err == nil {
		t.Fatalf("empty listen addr accepted")
	}

	cfg = DefaultServiceConfig()
	cfg.TokenReadTimeout = -time.Second
	if err := ValidateServiceConfig(cfg); err == nil {
		t.Fatalf("negative token read timeout accepted")
	}
}
