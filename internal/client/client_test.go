package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ggui-dev/ggdirect/internal/config"
	"github.com/ggui-dev/ggdirect/internal/gateway"
	"github.com/ggui-dev/ggdirect/internal/protocol"
)

func TestRunMissingDiscoveryFile(t *testing.T) {
	cfg := config.DefaultClientConfig()
	cfg.GatewayPath = filepath.Join(t.TempDir(), "absent")

	err := New(cfg, zerolog.Nop()).Run(context.Background())
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunMalformedDiscoveryValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GGDirect.gateway")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg := config.DefaultClientConfig()
	cfg.GatewayPath = path

	err := New(cfg, zerolog.Nop()).Run(context.Background())
	if !errors.Is(err, gateway.ErrMalformedValue) {
		t.Fatalf("expected ErrMalformedValue, got %v", err)
	}
}

func TestDemoBufferShape(t *testing.T) {
	b := DemoBuffer()
	if b.Width != 40 || b.Height != 12 {
		t.Fatalf("unexpected dimensions: %dx%d", b.Width, b.Height)
	}
	if len(b.Cells) != int(b.Width*b.Height) {
		t.Fatalf("cell count %d does not match dimensions", len(b.Cells))
	}
	if b.At(0, 1).GlyphString() != "H" {
		t.Fatalf("unexpected first glyph: %q", b.At(0, 1).GlyphString())
	}
	// Row 8 is the "Red text" line.
	if b.At(0, 8).Fg != protocol.Red {
		t.Fatalf("unexpected foreground on red row: %+v", b.At(0, 8).Fg)
	}
}
