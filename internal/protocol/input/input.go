// Package input encodes the service-to-client side of a GGDirect session:
// keyboard/mouse input forwarded to the focused client, resize requests, and
// notify flags. Events travel on the same connection as the cell-buffer
// stream, in the opposite direction, as fixed 12-byte little-endian records.
package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const EventSize = 12

// Kind discriminates event records. Zero is reserved so that an all-zero
// record is never a valid event.
type Kind uint8

const (
	KindInput Kind = iota + 1
	KindResize
	KindNotify
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindResize:
		return "resize"
	case KindNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// Modifier is a bit set of control keys held during an input event.
type Modifier uint16

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModSuper
	ModAlt
	ModAltGr
	ModFn
	// ModPressed distinguishes press from release.
	ModPressed
)

// Key identifies keys that have no ASCII representation.
type Key uint16

const (
	KeyNone Key = iota
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyLeftClick
	KeyMiddleClick
	KeyRightClick
	KeyScrollUp
	KeyScrollDown
)

// Notify is a bit set carried by KindNotify events.
type Notify uint16

const (
	NotifyEmptyBuffer Notify = 1 << iota
	NotifyClosed
)

var (
	ErrTruncatedEvent = errors.New("input: truncated event")
	ErrUnknownKind    = errors.New("input: unknown event kind")
)

// Event is one service-to-client record. Field use depends on Kind: X/Y are
// the mouse cell position for input events and the new dimensions for resize
// events; Flags is only meaningful for notify events.
type Event struct {
	Kind      Kind
	X, Y      int16
	Modifiers Modifier
	Key       Key
	Char      byte
	Flags     Notify
}

// NewKeyEvent builds a pressed-key input event for an ASCII key.
func NewKeyEvent(char byte, mods Modifier) Event {
	return Event{Kind: KindInput, Modifiers: mods | ModPressed, Char: char}
}

// NewMouseEvent builds an input event for a special key or click at a cell
// position.
func NewMouseEvent(x, y int16, key Key, mods Modifier) Event {
	return Event{Kind: KindInput, X: x, Y: y, Key: key, Modifiers: mods | ModPressed}
}

// NewResizeEvent asks the client to adopt new buffer dimensions.
func NewResizeEvent(width, height int16) Event {
	return Event{Kind: KindResize, X: width, Y: height}
}

// NewNotifyEvent carries out-of-band stream flags.
func NewNotifyEvent(flags Notify) Event {
	return Event{Kind: KindNotify, Flags: flags}
}

// Encode lays the event out as kind(1) x(2) y(2) modifiers(2) key(2)
// char(1) flags(2), little-endian.
func (e Event) Encode() [EventSize]byte {
	var buf [EventSize]byte
	buf[0] = byte(e.Kind)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(e.X))
	binary.LittleEndian.PutUint16(buf[3:5], uint16(e.Y))
	binary.LittleEndian.PutUint16(buf[5:7], uint16(e.Modifiers))
	binary.LittleEndian.PutUint16(buf[7:9], uint16(e.Key))
	buf[9] = e.Char
	binary.LittleEndian.PutUint16(buf[10:12], uint16(e.Flags))
	return buf
}

// WriteEvent writes one event record.
func WriteEvent(w io.Writer, e Event) error {
	if e.Kind < KindInput || e.Kind > KindNotify {
		return fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
	buf := e.Encode()
	_, err := w.Write(buf[:])
	return err
}

// ReadEvent reads one event record. A clean EOF before the first byte is
// io.EOF; EOF mid-record is ErrTruncatedEvent.
func ReadEvent(r io.Reader) (Event, error) {
	var buf [EventSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{}, ErrTruncatedEvent
		}
		return Event{}, err
	}
	e := Event{
		Kind:      Kind(buf[0]),
		X:         int16(binary.LittleEndian.Uint16(buf[1:3])),
		Y:         int16(binary.LittleEndian.Uint16(buf[3:5])),
		Modifiers: Modifier(binary.LittleEndian.Uint16(buf[5:7])),
		Key:       Key(binary.LittleEndian.Uint16(buf[7:9])),
		Char:      buf[9],
		Flags:     Notify(binary.LittleEndian.Uint16(buf[10:12])),
	}
	if e.Kind < KindInput || e.Kind > KindNotify {
		return Event{}, fmt.Errorf("%w: %d", ErrUnknownKind, buf[0])
	}
	return e, nil
}
