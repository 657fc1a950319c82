// Package handshake establishes a GGDirect session through the protocol's
// role-reversal handshake. The discovered endpoint belongs to a long-lived
// service, not a per-session listener, so the connecting side briefly
// becomes a listener itself:
//
//  1. open an ephemeral listener on an OS-assigned port
//  2. dial the discovered gateway endpoint
//  3. write the listener's port as the 2-byte little-endian handshake token
//  4. close that connection (the handshake channel is half duplex)
//  5. accept the service's dial-back; that connection is the data channel
//  6. read the 2-byte token echo as the confirmation receipt
package handshake

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ggui-dev/ggdirect/internal/gateway"
	"github.com/ggui-dev/ggdirect/internal/observability"
	"github.com/ggui-dev/ggdirect/internal/protocol"
	"github.com/ggui-dev/ggdirect/internal/protocol/session"
)

var (
	ErrHandshakeFailed   = errors.New("handshake: failed")
	ErrHandshakeTimeout  = errors.New("handshake: timed out waiting for callback")
	ErrHandshakeMismatch = errors.New("handshake: echoed token mismatch")
)

// State makes the negotiator's timeout and cancellation points explicit.
type State int

const (
	StateIdle State = iota
	StateListening
	StateDialed
	StateAwaitingCallback
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateDialed:
		return "dialed"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateConfirmed:
		return "confirmed"
	default:
		return "invalid"
	}
}

type Config struct {
	// Gateway is the discovered service endpoint.
	Gateway gateway.Endpoint
	// ListenHost binds the ephemeral callback listener.
	ListenHost string
	// DialTimeout bounds the short-lived token connection.
	DialTimeout time.Duration
	// AcceptTimeout bounds the wait for the service's dial-back. Zero blocks
	// indefinitely.
	AcceptTimeout time.Duration
	// VerifyEcho asserts that the echoed token equals the one sent. Off by
	// default the echo is a bare receipt; when set, mismatches fail with
	// ErrHandshakeMismatch instead of being ignored.
	VerifyEcho bool
}

func DefaultConfig(ep gateway.Endpoint) Config {
	return Config{
		Gateway:       ep,
		ListenHost:    "127.0.0.1",
		DialTimeout:   5 * time.Second,
		AcceptTimeout: 30 * time.Second,
	}
}

// WriteToken writes the 2-byte little-endian handshake token. The token is
// the sender's ephemeral listening port; it is an identity check, not a
// secret.
func WriteToken(w io.Writer, port uint16) error {
	var buf [protocol.TokenSize]byte
	binary.LittleEndian.PutUint16(buf[:], port)
	_, err := w.Write(buf[:])
	return err
}

// ReadToken reads one handshake token.
func ReadToken(r io.Reader) (uint16, error) {
	var buf [protocol.TokenSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: read token: %w", ErrHandshakeFailed, err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// Negotiator runs the client side of the handshake once.
type Negotiator struct {
	cfg   Config
	state State
}

func New(cfg Config) *Negotiator {
	return &Negotiator{cfg: cfg}
}

func (n *Negotiator) State() State { return n.state }

// Negotiate performs steps 1-6 and returns the confirmed session, which owns
// both the listener and the data connection. On any failure every socket
// opened so far is released before returning; ctx cancellation aborts the
// callback wait with session.ErrSessionAborted.
func (n *Negotiator) Negotiate(ctx context.Context) (*session.Session, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(n.cfg.ListenHost, "0"))
	if err != nil {
		observability.RecordHandshakeFailure("listen")
		return nil, fmt.Errorf("%w: listen: %w", ErrHandshakeFailed, err)
	}
	n.state = StateListening
	token := uint16(ln.Addr().(*net.TCPAddr).Port)

	dialer := net.Dialer{Timeout: n.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", n.cfg.Gateway.Addr())
	if err != nil {
		ln.Close()
		observability.RecordHandshakeFailure("dial")
		return nil, fmt.Errorf("%w: dial gateway %s: %w", ErrHandshakeFailed, n.cfg.Gateway.Addr(), err)
	}
	n.state = StateDialed

	if err := WriteToken(conn, token); err != nil {
		conn.Close()
		ln.Close()
		observability.RecordHandshakeFailure("token")
		return nil, fmt.Errorf("%w: send token: %w", ErrHandshakeFailed, err)
	}
	// Half-duplex handshake channel: the service dials back rather than
	// replying here.
	conn.Close()
	n.state = StateAwaitingCallback

	if n.cfg.AcceptTimeout > 0 {
		if err := ln.(*net.TCPListener).SetDeadline(time.Now().Add(n.cfg.AcceptTimeout)); err != nil {
			ln.Close()
			observability.RecordHandshakeFailure("accept")
			return nil, fmt.Errorf("%w: arm accept deadline: %w", ErrHandshakeFailed, err)
		}
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	data, err := ln.Accept()
	if !stop() {
		// Cancellation ran or is running the close. Even when Accept won the
		// race the listener is unusable, so the session cannot be handed out
		// intact.
		if err == nil {
			data.Close()
		}
		ln.Close()
		observability.RecordHandshakeFailure("aborted")
		return nil, fmt.Errorf("%w: %w", session.ErrSessionAborted, context.Cause(ctx))
	}
	if err != nil {
		ln.Close()
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			observability.RecordHandshakeFailure("timeout")
			return nil, fmt.Errorf("%w: no callback within %s", ErrHandshakeTimeout, n.cfg.AcceptTimeout)
		}
		observability.RecordHandshakeFailure("accept")
		return nil, fmt.Errorf("%w: accept callback: %w", ErrHandshakeFailed, err)
	}
	if err := ln.(*net.TCPListener).SetDeadline(time.Time{}); err != nil {
		data.Close()
		ln.Close()
		observability.RecordHandshakeFailure("accept")
		return nil, fmt.Errorf("%w: clear accept deadline: %w", ErrHandshakeFailed, err)
	}

	echo, err := ReadToken(data)
	if err != nil {
		data.Close()
		ln.Close()
		observability.RecordHandshakeFailure("echo")
		return nil, err
	}
	if n.cfg.VerifyEcho && echo != token {
		data.Close()
		ln.Close()
		observability.RecordHandshakeFailure("mismatch")
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrHandshakeMismatch, token, echo)
	}

	n.state = StateConfirmed
	observability.RecordSession("client")
	return session.New(ln, data), nil
}
