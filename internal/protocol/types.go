package protocol

import "bytes"

// Fixed wire sizes. All multi-byte integers on the wire are little-endian;
// the byte order is part of the protocol contract.
const (
	GlyphSize     = 4
	CellSize      = 10
	DimensionSize = 8
	TokenSize     = 2
)

// RGB is a packed 3-byte color as carried on the wire.
type RGB struct {
	R, G, B uint8
}

// Basic palette used by the demonstration client.
var (
	Black  = RGB{}
	White  = RGB{R: 255, G: 255, B: 255}
	Red    = RGB{R: 255}
	Green  = RGB{G: 128}
	Blue   = RGB{B: 255}
	Yellow = RGB{R: 255, G: 255}
)

// Cell is one character position: a 4-byte UTF-8 glyph payload plus
// foreground and background colors. The glyph is right-padded with NUL
// bytes; a glyph whose encoding exceeds 4 bytes is truncated at 4, even if
// that splits a multi-byte sequence. That is the fixed-width contract of the
// wire format, not something to repair here.
type Cell struct {
	Glyph [GlyphSize]byte
	Fg    RGB
	Bg    RGB
}

// NewCell builds a cell from the leading bytes of s, truncating or
// NUL-padding to exactly 4 bytes.
func NewCell(s string, fg, bg RGB) Cell {
	c := Cell{Fg: fg, Bg: bg}
	copy(c.Glyph[:], s)
	return c
}

// GlyphString returns the glyph payload with trailing NUL padding removed.
func (c Cell) GlyphString() string {
	return string(bytes.TrimRight(c.Glyph[:], "\x00"))
}

// CellBuffer is one rectangular update: Width columns by Height rows of
// cells in row-major order. Buffers are transient; a producer builds one per
// update and the receiver discards it after use.
type CellBuffer struct {
	Width  int32
	Height int32
	Cells  []Cell
}

// NewCellBuffer allocates a zeroed buffer. Dimensions must be non-negative.
func NewCellBuffer(width, height int32) CellBuffer {
	return CellBuffer{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, int(width)*int(height)),
	}
}

// At returns the cell at column x, row y.
func (b CellBuffer) At(x, y int32) Cell {
	return b.Cells[y*b.Width+x]
}

// Set replaces the cell at column x, row y.
func (b CellBuffer) Set(x, y int32, c Cell) {
	b.Cells[y*b.Width+x] = c
}

// Fill sets every cell to c.
func (b CellBuffer) Fill(c Cell) {
	for i := range b.Cells {
		b.Cells[i] = c
	}
}

// WriteString places s rune by rune starting at column x, row y, clipping at
// the right edge. Each rune becomes one cell under the NewCell glyph rule.
func (b CellBuffer) WriteString(x, y int32, s string, fg, bg RGB) {
	for _, r := range s {
		if x >= b.Width {
			return
		}
		b.Set(x, y, NewCell(string(r), fg, bg))
		x++
	}
}
