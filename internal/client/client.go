// Package client is the GGDirect demonstration client: resolve the gateway,
// run the role-reversal handshake, stream a sample cell buffer, terminate.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggui-dev/ggdirect/internal/config"
	"github.com/ggui-dev/ggdirect/internal/gateway"
	"github.com/ggui-dev/ggdirect/internal/protocol"
	"github.com/ggui-dev/ggdirect/internal/protocol/handshake"
	"github.com/ggui-dev/ggdirect/internal/protocol/session"
)

type Client struct {
	cfg config.ClientConfig
	log zerolog.Logger
}

func New(cfg config.ClientConfig, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// Run performs one complete session: discovery, handshake, the demonstration
// buffer, termination. Errors surface immediately with no retry; callers
// distinguish phases through the sentinel errors of the gateway, handshake,
// and frame packages.
func (c *Client) Run(ctx context.Context) error {
	if err := config.ValidateClientConfig(c.cfg); err != nil {
		return err
	}

	var (
		ep  gateway.Endpoint
		err error
	)
	if c.cfg.WaitForGateway {
		ep, err = gateway.Await(ctx, c.cfg.GatewayPath)
	} else {
		ep, err = gateway.Resolve(c.cfg.GatewayPath)
	}
	if err != nil {
		return err
	}
	c.log.Info().Str("endpoint", ep.Addr()).Msg("gateway resolved")

	hcfg := handshake.Config{
		Gateway:       ep,
		ListenHost:    "127.0.0.1",
		DialTimeout:   c.cfg.DialTimeout,
		AcceptTimeout: c.cfg.AcceptTimeout,
		VerifyEcho:    c.cfg.VerifyEcho,
	}
	sess, err := handshake.New(hcfg).Negotiate(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()
	c.log.Info().Str("session", sess.ID()).Msg("handshake confirmed")

	events := make(chan struct{})
	go c.readEvents(sess, events)

	buf := DemoBuffer()
	if err := sess.SendBuffer(buf); err != nil {
		return err
	}
	c.log.Info().
		Int32("width", buf.Width).
		Int32("height", buf.Height).
		Msg("buffer sent")

	if c.cfg.Linger > 0 {
		select {
		case <-time.After(c.cfg.Linger):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", session.ErrSessionAborted, ctx.Err())
		}
	}

	if err := sess.Terminate(); err != nil {
		return err
	}
	c.log.Info().Msg("stream terminated")

	sess.Close()
	<-events
	return nil
}

// readEvents drains service-to-client events until the connection closes.
func (c *Client) readEvents(sess *session.Session, done chan<- struct{}) {
	defer close(done)
	for {
		ev, err := sess.ReadEvent()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				c.log.Debug().Err(err).Msg("event stream closed")
			}
			return
		}
		c.log.Info().
			Stringer("kind", ev.Kind).
			Int16("x", ev.X).
			Int16("y", ev.Y).
			Uint8("char", ev.Char).
			Msg("event received")
	}
}

// DemoBuffer is the fixed sample payload: text rows with per-row colors,
// including glyphs wider than one byte.
func DemoBuffer() protocol.CellBuffer {
	lines := []string{
		"Hello, World! 🌍",
		"Font Test: ABC abc 123",
		"UTF-8: äöü αβγ 中文",
		"Symbols: ←→↑↓ ♪♫♬♭",
		"Box: ┌─┐│ │└─┘",
		"",
		"Colors and styles:",
		"Red text",
		"Green background",
		"Blue on yellow",
	}

	b := protocol.NewCellBuffer(40, int32(len(lines))+2)
	b.Fill(protocol.NewCell("", protocol.White, protocol.Black))
	for i, line := range lines {
		fg, bg := protocol.White, protocol.Black
		switch i {
		case 7:
			fg = protocol.Red
		case 8:
			bg = protocol.Green
		case 9:
			fg, bg = protocol.Blue, protocol.Yellow
		}
		b.WriteString(0, int32(i)+1, line, fg, bg)
	}
	return b
}
