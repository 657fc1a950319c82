package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ggui-dev/ggdirect/internal/config"
)

// ggdirectl config.toml key mapping to runtime settings. Durations are
// strings in time.ParseDuration form ("5s", "250ms").
type clientFileConfig struct {
	GatewayPath    string `toml:"gateway_path"`
	DialTimeout    string `toml:"dial_timeout"`
	AcceptTimeout  string `toml:"accept_timeout"`
	VerifyEcho     bool   `toml:"verify_echo"`
	WaitForGateway bool   `toml:"wait_for_gateway"`
	Linger         string `toml:"linger"`
}

type serviceFileConfig struct {
	ListenAddr       string `toml:"listen_addr"`
	GatewayPath      string `toml:"gateway_path"`
	AdminAddr        string `toml:"admin_addr"`
	TokenReadTimeout string `toml:"token_read_timeout"`
	DialBackTimeout  string `toml:"dial_back_timeout"`
}

// loadClientConfig overlays config.toml values onto the defaults. An empty
// path keeps the defaults.
func loadClientConfig(path string) (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}

	var raw clientFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("gateway_path") {
		cfg.GatewayPath = strings.TrimSpace(raw.GatewayPath)
	}
	if meta.IsDefined("verify_echo") {
		cfg.VerifyEcho = raw.VerifyEcho
	}
	if meta.IsDefined("wait_for_gateway") {
		cfg.WaitForGateway = raw.WaitForGateway
	}
	if err := overlayDuration(meta, "dial_timeout", raw.DialTimeout, &cfg.DialTimeout); err != nil {
		return config.ClientConfig{}, err
	}
	if err := overlayDuration(meta, "accept_timeout", raw.AcceptTimeout, &cfg.AcceptTimeout); err != nil {
		return config.ClientConfig{}, err
	}
	if err := overlayDuration(meta, "linger", raw.Linger, &cfg.Linger); err != nil {
		return config.ClientConfig{}, err
	}

	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func loadServiceConfig(path string) (config.ServiceConfig, error) {
	cfg := config.DefaultServiceConfig()
	if path == "" {
		return cfg, nil
	}

	var raw serviceFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.ServiceConfig{}, fmt.Errorf("load service config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("gateway_path") {
		cfg.GatewayPath = strings.TrimSpace(raw.GatewayPath)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if err := overlayDuration(meta, "token_read_timeout", raw.TokenReadTimeout, &cfg.TokenReadTimeout); err != nil {
		return config.ServiceConfig{}, err
	}
	if err := overlayDuration(meta, "dial_back_timeout", raw.DialBackTimeout, &cfg.DialBackTimeout); err != nil {
		return config.ServiceConfig{}, err
	}

	if err := config.ValidateServiceConfig(cfg); err != nil {
		return config.ServiceConfig{}, err
	}
	return cfg, nil
}

func overlayDuration(meta toml.MetaData, key, value string, out *time.Duration) error {
	if !meta.IsDefined(key) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config key %s: %w", key, err)
	}
	*out = d
	return nil
}
