package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ggui-dev/ggdirect/internal/protocol"
)

var (
	ErrMalformedFrame  = errors.New("frame: negative dimension")
	ErrTruncatedStream = errors.New("frame: truncated stream")
	ErrBufferTooLarge  = errors.New("frame: buffer exceeds decode limits")
	ErrStreamEnd       = errors.New("frame: stream terminated")
	ErrCellCount       = errors.New("frame: cell count does not match dimensions")
)

// Limits constrains decode-side memory use before cell records are read.
type Limits struct {
	MaxCells uint64
}

func DefaultLimits() Limits {
	return Limits{MaxCells: 1 << 24}
}

// WriteDimension writes an 8-byte dimension frame: int32 width, int32
// height, little-endian. (0,0) is the reserved termination signal.
func WriteDimension(w io.Writer, width, height int32) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrMalformedFrame, width, height)
	}
	var buf [protocol.DimensionSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(height))
	_, err := w.Write(buf[:])
	return err
}

// ReadDimension reads one dimension frame. A clean EOF before the first byte
// reports io.EOF (peer closed between updates); EOF mid-frame reports
// ErrTruncatedStream. Negative dimensions report ErrMalformedFrame.
func ReadDimension(r io.Reader) (width, height int32, err error) {
	var buf [protocol.DimensionSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, fmt.Errorf("%w: short dimension frame", ErrTruncatedStream)
		}
		return 0, 0, err
	}
	width = int32(binary.LittleEndian.Uint32(buf[0:4]))
	height = int32(binary.LittleEndian.Uint32(buf[4:8]))
	if width < 0 || height < 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrMalformedFrame, width, height)
	}
	return width, height, nil
}

// AppendCell appends the 10-byte record for c: glyph[4], fg RGB, bg RGB.
func AppendCell(dst []byte, c protocol.Cell) []byte {
	dst = append(dst, c.Glyph[:]...)
	dst = append(dst, c.Fg.R, c.Fg.G, c.Fg.B)
	dst = append(dst, c.Bg.R, c.Bg.G, c.Bg.B)
	return dst
}

// DecodeCell decodes one 10-byte cell record.
func DecodeCell(b []byte) (protocol.Cell, error) {
	if len(b) != protocol.CellSize {
		return protocol.Cell{}, fmt.Errorf("frame: invalid cell record length: %d", len(b))
	}
	var c protocol.Cell
	copy(c.Glyph[:], b[0:4])
	c.Fg = protocol.RGB{R: b[4], G: b[5], B: b[6]}
	c.Bg = protocol.RGB{R: b[7], G: b[8], B: b[9]}
	return c, nil
}

// WriteBuffer writes one complete update: the dimension frame followed by
// width*height cell records in row-major order, as a single write.
func WriteBuffer(w io.Writer, b protocol.CellBuffer) error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrMalformedFrame, b.Width, b.Height)
	}
	want := int(b.Width) * int(b.Height)
	if len(b.Cells) != want {
		return fmt.Errorf("%w: have %d cells for %dx%d", ErrCellCount, len(b.Cells), b.Width, b.Height)
	}

	buf := make([]byte, protocol.DimensionSize, protocol.DimensionSize+want*protocol.CellSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(b.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(b.Height))
	for _, c := range b.Cells {
		buf = AppendCell(buf, c)
	}
	_, err := w.Write(buf)
	return err
}

// ReadCells reads exactly width*height cell records. The stream closing
// before all records arrive is ErrTruncatedStream; partial buffers are never
// returned.
func ReadCells(r io.Reader, width, height int32, limits Limits) ([]protocol.Cell, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrMalformedFrame, width, height)
	}
	count := uint64(width) * uint64(height)
	if limits.MaxCells > 0 && count > limits.MaxCells {
		return nil, fmt.Errorf("%w: %dx%d (%d cells)", ErrBufferTooLarge, width, height, count)
	}

	raw := make([]byte, count*protocol.CellSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: mid-buffer close at %dx%d", ErrTruncatedStream, width, height)
		}
		return nil, err
	}

	cells := make([]protocol.Cell, count)
	for i := range cells {
		c, err := DecodeCell(raw[i*protocol.CellSize : (i+1)*protocol.CellSize])
		if err != nil {
			return nil, err
		}
		cells[i] = c
	}
	return cells, nil
}

// ReadBuffer reads one complete update and materializes it. The termination
// signal reports ErrStreamEnd with an empty buffer.
func ReadBuffer(r io.Reader, limits Limits) (protocol.CellBuffer, error) {
	width, height, err := ReadDimension(r)
	if err != nil {
		return protocol.CellBuffer{}, err
	}
	if width == 0 && height == 0 {
		return protocol.CellBuffer{}, ErrStreamEnd
	}
	cells, err := ReadCells(r, width, height, limits)
	if err != nil {
		return protocol.CellBuffer{}, err
	}
	return protocol.CellBuffer{Width: width, Height: height, Cells: cells}, nil
}
