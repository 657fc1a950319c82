package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ggui-dev/ggdirect/internal/observability"
	"github.com/ggui-dev/ggdirect/internal/protocol"
	"github.com/ggui-dev/ggdirect/internal/protocol/frame"
	"github.com/ggui-dev/ggdirect/internal/protocol/input"
)

var (
	ErrSessionAborted = errors.New("session: aborted")
	ErrTerminated     = errors.New("session: stream already terminated")
)

// StreamState tracks the consumer side of the buffer stream.
type StreamState int

const (
	StateAwaitingDimension StreamState = iota
	StateReceivingCells
	StateBufferReady
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateAwaitingDimension:
		return "awaiting_dimension"
	case StateReceivingCells:
		return "receiving_cells"
	case StateBufferReady:
		return "buffer_ready"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session is the pairing that exists after a confirmed handshake: the data
// connection plus, on the side that listened, the listener it arrived on.
// The session owns both sockets for its lifetime; Close releases both
// exactly once on any exit path.
type Session struct {
	id     string
	ln     net.Listener
	conn   net.Conn
	limits frame.Limits

	mu         sync.Mutex
	state      StreamState
	terminated bool

	closeOnce sync.Once
	closeErr  error
}

// New wraps an established data connection. ln may be nil on the side that
// dialed back (the service) and therefore holds no per-session listener.
func New(ln net.Listener, conn net.Conn) *Session {
	return &Session{
		id:     uuid.NewString(),
		ln:     ln,
		conn:   conn,
		limits: frame.DefaultLimits(),
	}
}

// SetLimits overrides the decode limits applied by Next.
func (s *Session) SetLimits(l frame.Limits) { s.limits = l }

func (s *Session) ID() string { return s.id }

func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *Session) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendBuffer writes one update: the dimension frame followed by all cell
// records. Not valid after Terminate.
func (s *Session) SendBuffer(b protocol.CellBuffer) error {
	if b.Width == 0 && b.Height == 0 {
		// (0,0) is the reserved termination signal; use Terminate.
		return fmt.Errorf("session %s: 0x0 buffer is the termination signal", s.id)
	}
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return ErrTerminated
	}
	s.mu.Unlock()

	start := time.Now()
	if err := frame.WriteBuffer(s.conn, b); err != nil {
		return fmt.Errorf("session %s: send buffer: %w", s.id, err)
	}
	observability.RecordBuffer("out", len(b.Cells), time.Since(start))
	return nil
}

// Terminate sends the zero-sized dimension frame ending the stream. The
// signal goes out exactly once; later calls are no-ops so that deferred
// cleanup can call it unconditionally.
func (s *Session) Terminate() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	s.terminated = true
	s.mu.Unlock()

	if err := frame.WriteDimension(s.conn, 0, 0); err != nil {
		return fmt.Errorf("session %s: terminate: %w", s.id, err)
	}
	return nil
}

// Next reads the next complete cell buffer. The sequence is lazy and finite:
// after the termination signal, or after the peer closes the connection at a
// frame boundary, every call reports io.EOF without touching the stream. A
// connection that drops mid-frame reports frame.ErrTruncatedStream and
// closes the sequence; there is no partial-buffer recovery.
func (s *Session) Next() (protocol.CellBuffer, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return protocol.CellBuffer{}, io.EOF
	}
	s.state = StateAwaitingDimension
	s.mu.Unlock()

	start := time.Now()
	width, height, err := frame.ReadDimension(s.conn)
	if err != nil {
		s.setState(StateClosed)
		if errors.Is(err, io.EOF) {
			return protocol.CellBuffer{}, io.EOF
		}
		return protocol.CellBuffer{}, err
	}
	if width == 0 && height == 0 {
		s.setState(StateClosed)
		return protocol.CellBuffer{}, io.EOF
	}

	s.setState(StateReceivingCells)
	cells, err := frame.ReadCells(s.conn, width, height, s.limits)
	if err != nil {
		s.setState(StateClosed)
		return protocol.CellBuffer{}, err
	}

	s.setState(StateBufferReady)
	observability.RecordBuffer("in", len(cells), time.Since(start))
	return protocol.CellBuffer{Width: width, Height: height, Cells: cells}, nil
}

// SendEvent writes one input event on the reverse direction of the data
// connection (service side).
func (s *Session) SendEvent(e input.Event) error {
	if err := input.WriteEvent(s.conn, e); err != nil {
		return fmt.Errorf("session %s: send event: %w", s.id, err)
	}
	return nil
}

// ReadEvent reads one input event (client side). Reports io.EOF once the
// connection closes.
func (s *Session) ReadEvent() (input.Event, error) {
	return input.ReadEvent(s.conn)
}

// Close releases both sockets. Safe to call from any exit path and any
// number of times; only the first call does work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		errs := []error{s.conn.Close()}
		if s.ln != nil {
			errs = append(errs, s.ln.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *Session) setState(st StreamState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
