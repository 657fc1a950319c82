package session

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/ggui-dev/ggdirect/internal/protocol"
	"github.com/ggui-dev/ggdirect/internal/protocol/frame"
	"github.com/ggui-dev/ggdirect/internal/protocol/input"
)

func pipePair(t *testing.T) (*Session, *Session) {
	t.Helper()
	a, b := net.Pipe()
	sa, sb := New(nil, a), New(nil, b)
	t.Cleanup(func() {
		sa.Close()
		sb.Close()
	})
	return sa, sb
}

func demoBuffer(t *testing.T) protocol.CellBuffer {
	t.Helper()
	b := protocol.NewCellBuffer(2, 1)
	b.Set(0, 0, protocol.NewCell("A", protocol.White, protocol.Black))
	b.Set(1, 0, protocol.NewCell("B", protocol.Red, protocol.Black))
	return b
}

func TestProducerConsumerRoundTrip(t *testing.T) {
	producer, consumer := pipePair(t)
	sent := demoBuffer(t)

	errc := make(chan error, 1)
	go func() {
		if err := producer.SendBuffer(sent); err != nil {
			errc <- err
			return
		}
		errc <- producer.Terminate()
	}()

	got, err := consumer.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if diff := pretty.Compare(sent, got); diff != "" {
		t.Fatalf("buffer mismatch (-sent +got):\n%s", diff)
	}
	if consumer.State() != StateBufferReady {
		t.Fatalf("unexpected state after buffer: %v", consumer.State())
	}

	if _, err := consumer.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after termination, got %v", err)
	}
	if consumer.State() != StateClosed {
		t.Fatalf("unexpected state after termination: %v", consumer.State())
	}
	if err := <-errc; err != nil {
		t.Fatalf("producer: %v", err)
	}
}

func TestTerminationIsIdempotentAndFinal(t *testing.T) {
	producer, consumer := pipePair(t)

	go func() {
		producer.Terminate()
		// Second call must not emit a second frame.
		producer.Terminate()
	}()

	if _, err := consumer.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	// The driver must not read from the stream again.
	for i := 0; i < 3; i++ {
		if _, err := consumer.Next(); !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF on drained stream, got %v", err)
		}
	}
}

func TestSendAfterTerminateRejected(t *testing.T) {
	producer, consumer := pipePair(t)
	go func() {
		var sink [8]byte
		io.ReadFull(consumerConn(consumer), sink[:])
	}()
	if err := producer.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := producer.SendBuffer(demoBuffer(t)); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
}

func consumerConn(s *Session) net.Conn { return s.conn }

func TestMidFrameCloseIsTruncation(t *testing.T) {
	a, b := net.Pipe()
	consumer := New(nil, b)
	t.Cleanup(func() { consumer.Close() })

	go func() {
		// Announce 2x2 but deliver only one cell record, then drop.
		frame.WriteDimension(a, 2, 2)
		raw := frame.AppendCell(nil, protocol.NewCell("A", protocol.White, protocol.Black))
		a.Write(raw)
		a.Close()
	}()

	_, err := consumer.Next()
	if !errors.Is(err, frame.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	if consumer.State() != StateClosed {
		t.Fatalf("unexpected state: %v", consumer.State())
	}
	if _, err := consumer.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after fatal truncation, got %v", err)
	}
}

func TestPeerCloseAtBoundaryEndsStream(t *testing.T) {
	a, b := net.Pipe()
	consumer := New(nil, b)
	t.Cleanup(func() { consumer.Close() })

	go a.Close()

	if _, err := consumer.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on boundary close, got %v", err)
	}
}

func TestEventsTravelReverseDirection(t *testing.T) {
	service, client := pipePair(t)
	want := input.NewResizeEvent(120, 40)

	go func() {
		service.SendEvent(want)
	}()

	got, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got != want {
		t.Fatalf("event mismatch: got %+v want %+v", got, want)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	s := New(nil, a)
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("unexpected state: %v", s.State())
	}
}

func TestSessionOwnsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	a, b := net.Pipe()
	defer b.Close()

	s := New(ln, a)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := ln.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("listener not closed by session: %v", err)
	}
}
