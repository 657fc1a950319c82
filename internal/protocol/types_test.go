package protocol

import "testing"

func TestNewCellPadsShortGlyphs(t *testing.T) {
	c := NewCell("A", White, Black)
	if c.Glyph != [4]byte{'A', 0, 0, 0} {
		t.Fatalf("unexpected glyph bytes: %v", c.Glyph)
	}
	if c.GlyphString() != "A" {
		t.Fatalf("unexpected glyph string: %q", c.GlyphString())
	}
}

func TestNewCellKeepsFullWidthGlyphs(t *testing.T) {
	// U+1F30D is exactly 4 bytes of UTF-8.
	c := NewCell("🌍", White, Black)
	if c.GlyphString() != "🌍" {
		t.Fatalf("unexpected glyph string: %q", c.GlyphString())
	}
}

func TestNewCellTruncatesAtFourBytes(t *testing.T) {
	// Two 3-byte runes: the second is split mid-sequence. The wire format is
	// fixed width; the broken tail is preserved as-is.
	c := NewCell("中文", White, Black)
	want := [4]byte{0xE4, 0xB8, 0xAD, 0xE6}
	if c.Glyph != want {
		t.Fatalf("unexpected glyph bytes: %v", c.Glyph)
	}
}

func TestCellBufferAtSet(t *testing.T) {
	b := NewCellBuffer(3, 2)
	c := NewCell("x", Red, Black)
	b.Set(2, 1, c)
	if got := b.At(2, 1); got != c {
		t.Fatalf("round trip through At/Set failed: %+v", got)
	}
	// Row-major: (2,1) is the last cell.
	if b.Cells[5] != c {
		t.Fatalf("cell not stored row-major")
	}
}

func TestWriteStringClipsAtRightEdge(t *testing.T) {
	b := NewCellBuffer(3, 1)
	b.WriteString(1, 0, "abcdef", White, Black)
	if b.At(1, 0).GlyphString() != "a" || b.At(2, 0).GlyphString() != "b" {
		t.Fatalf("unexpected row contents")
	}
	if b.At(0, 0) != (Cell{}) {
		t.Fatalf("cell before start position modified")
	}
}
