// Package service is the GGDirect test-harness service: the long-lived side
// of the handshake. It publishes its port through the gateway file, accepts
// handshake connections, dials each client back, echoes the token, and then
// consumes that client's buffer stream until termination.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ggui-dev/ggdirect/internal/config"
	"github.com/ggui-dev/ggdirect/internal/gateway"
	"github.com/ggui-dev/ggdirect/internal/observability"
	"github.com/ggui-dev/ggdirect/internal/protocol/frame"
	"github.com/ggui-dev/ggdirect/internal/protocol/handshake"
	"github.com/ggui-dev/ggdirect/internal/protocol/input"
	"github.com/ggui-dev/ggdirect/internal/protocol/session"
)

var ErrNoFocusedSession = errors.New("service: no focused session")

type Service struct {
	cfg config.ServiceConfig
	log zerolog.Logger

	ln      net.Listener
	admin   *http.Server
	adminLn net.Listener
	wg      sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session.Session
	focused  *session.Session
	closing  bool
	started  time.Time
}

func New(cfg config.ServiceConfig, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*session.Session),
	}
}

// Start binds the gateway listener, publishes its port, and launches the
// accept loop. It returns once the service is reachable.
func (s *Service) Start(ctx context.Context) error {
	if err := config.ValidateServiceConfig(s.cfg); err != nil {
		return err
	}
	observability.RegisterMetrics()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("service: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.started = time.Now()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	if err := gateway.Publish(s.cfg.GatewayPath, port); err != nil {
		ln.Close()
		return err
	}
	s.log.Info().Uint16("port", port).Str("gateway", s.cfg.GatewayPath).Msg("gateway published")

	if s.cfg.AdminAddr != "" {
		if err := s.startAdmin(); err != nil {
			ln.Close()
			gateway.Remove(s.cfg.GatewayPath)
			return err
		}
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Run starts the service and blocks until ctx ends, then shuts down.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Shutdown()
}

// Addr reports the bound gateway listener address.
func (s *Service) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *Service) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go s.handshake(conn)
	}
}

// handshake runs the service side of the role-reversal handshake: read the
// client's token off the throwaway connection, dial the client back on that
// port, and echo the token on the new connection as the confirmation
// receipt.
func (s *Service) handshake(conn net.Conn) {
	defer s.wg.Done()

	if s.cfg.TokenReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.TokenReadTimeout))
	}
	token, err := handshake.ReadToken(conn)
	conn.Close()
	if err != nil {
		observability.RecordHandshakeFailure("service_token")
		s.log.Warn().Err(err).Msg("handshake token read failed")
		return
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(token)))
	back, err := net.DialTimeout("tcp", addr, s.cfg.DialBackTimeout)
	if err != nil {
		observability.RecordHandshakeFailure("service_dialback")
		s.log.Warn().Err(err).Str("addr", addr).Msg("dial-back failed")
		return
	}
	if err := handshake.WriteToken(back, token); err != nil {
		observability.RecordHandshakeFailure("service_echo")
		s.log.Warn().Err(err).Msg("token echo failed")
		back.Close()
		return
	}

	sess := session.New(nil, back)
	if !s.register(sess) {
		sess.Close()
		return
	}
	observability.RecordSession("service")
	s.log.Info().
		Str("session", sess.ID()).
		Uint16("token", token).
		Str("remote", back.RemoteAddr().String()).
		Msg("session established")

	s.wg.Add(1)
	go s.serve(sess)
}

// serve consumes one session's buffer stream until termination, closure, or
// a stream error. Mid-stream truncation ends this session only; the client
// must re-handshake to recover.
func (s *Service) serve(sess *session.Session) {
	defer s.wg.Done()
	defer s.unregister(sess)
	defer sess.Close()

	log := s.log.With().Str("session", sess.ID()).Logger()
	for {
		buf, err := sess.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info().Msg("stream ended")
			case errors.Is(err, frame.ErrTruncatedStream):
				log.Warn().Err(err).Msg("stream truncated")
			case errors.Is(err, frame.ErrMalformedFrame):
				log.Warn().Err(err).Msg("malformed frame")
			default:
				log.Warn().Err(err).Msg("stream failed")
			}
			return
		}
		log.Debug().
			Int32("width", buf.Width).
			Int32("height", buf.Height).
			Int("cells", len(buf.Cells)).
			Msg("buffer received")
	}
}

// ForwardInput sends an input event to the focused session. The first
// session to connect holds focus until it ends.
func (s *Service) ForwardInput(ev input.Event) error {
	s.mu.Lock()
	focused := s.focused
	s.mu.Unlock()
	if focused == nil {
		return ErrNoFocusedSession
	}
	return focused.SendEvent(ev)
}

// SessionCount reports live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// register adds a live session, or reports false once shutdown has started.
// A handshake already past Accept can finish after Shutdown snapshots the
// session table; rejecting it here keeps Shutdown from waiting on a session
// it will never close.
func (s *Service) register(sess *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[sess.ID()] = sess
	if s.focused == nil {
		s.focused = sess
	}
	return true
}

func (s *Service) unregister(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID())
	if s.focused == sess {
		s.focused = nil
		for _, other := range s.sessions {
			s.focused = other
			break
		}
	}
}

// Shutdown closes the listener, every live session, and the admin server,
// and removes the gateway file. Idempotent enough for deferred use.
func (s *Service) Shutdown() error {
	var errs []error
	if s.ln != nil {
		errs = append(errs, s.ln.Close())
	}

	s.mu.Lock()
	s.closing = true
	open := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		errs = append(errs, sess.Close())
	}

	s.wg.Wait()

	if s.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, s.admin.Shutdown(ctx))
		cancel()
	}
	errs = append(errs, gateway.Remove(s.cfg.GatewayPath))

	for _, err := range errs {
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}

func (s *Service) startAdmin() error {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"uptime":   time.Since(s.started).String(),
			"sessions": s.SessionCount(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", s.cfg.AdminAddr)
	if err != nil {
		return fmt.Errorf("service: admin listen %s: %w", s.cfg.AdminAddr, err)
	}
	s.adminLn = ln
	s.admin = &http.Server{Handler: r}
	go func() {
		if err := s.admin.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn().Err(err).Msg("admin server failed")
		}
	}()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("admin endpoint up")
	return nil
}

// AdminAddr reports the bound admin listener address, or nil when the admin
// endpoint is disabled.
func (s *Service) AdminAddr() net.Addr {
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}
