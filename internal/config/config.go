package config

import (
	"fmt"
	"time"

	"github.com/ggui-dev/ggdirect/internal/gateway"
)

// ClientConfig drives one demonstration-client session.
type ClientConfig struct {
	GatewayPath   string
	DialTimeout   time.Duration
	AcceptTimeout time.Duration
	VerifyEcho    bool
	// WaitForGateway blocks until the discovery file appears instead of
	// failing when the service is not yet up.
	WaitForGateway bool
	// Linger keeps the session open after the last buffer, before the
	// termination signal goes out.
	Linger time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		GatewayPath:   gateway.DefaultPath,
		DialTimeout:   5 * time.Second,
		AcceptTimeout: 30 * time.Second,
	}
}

func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.GatewayPath == "" {
		return fmt.Errorf("config: gateway path must not be empty")
	}
	if cfg.DialTimeout < 0 || cfg.AcceptTimeout < 0 || cfg.Linger < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}

// ServiceConfig drives the test-harness service.
type ServiceConfig struct {
	// ListenAddr is the gateway listener bind address; port 0 asks the OS
	// for an ephemeral port, which is then published to GatewayPath.
	ListenAddr  string
	GatewayPath string
	// AdminAddr serves /healthz and /metrics when non-empty.
	AdminAddr string
	// TokenReadTimeout bounds how long an accepted handshake connection may
	// take to deliver its token.
	TokenReadTimeout time.Duration
	// DialBackTimeout bounds the reverse connection to the client.
	DialBackTimeout time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:       "127.0.0.1:0",
		GatewayPath:      gateway.DefaultPath,
		TokenReadTimeout: 5 * time.Second,
		DialBackTimeout:  5 * time.Second,
	}
}

func ValidateServiceConfig(cfg ServiceConfig) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("config: listen addr must not be empty")
	}
	if cfg.GatewayPath == "" {
		return fmt.Errorf("config: gateway path must not be empty")
	}
	if cfg.TokenReadTimeout < 0 || cfg.DialBackTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}
