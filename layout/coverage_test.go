package layout

import (
	"testing"

	"github.com/boxesandglue/fontcore/otbin"
)

func TestCoverageFormat1RoundTrip(t *testing.T) {
	c := &Coverage{Glyphs: []GlyphID{10, 20, 30, 500}}
	data := c.Serialize()

	got, err := ParseCoverage(data, 0)
	if err != nil {
		t.Fatalf("ParseCoverage: %v", err)
	}
	if len(got.Glyphs) != len(c.Glyphs) {
		t.Fatalf("got %d glyphs, want %d", len(got.Glyphs), len(c.Glyphs))
	}
	for i, g := range c.Glyphs {
		if got.Glyphs[i] != g {
			t.Fatalf("glyph[%d] = %d, want %d", i, got.Glyphs[i], g)
		}
	}
}

func TestCoverageFormat2ChosenForDenseRanges(t *testing.T) {
	var glyphs []GlyphID
	for g := GlyphID(100); g <= 200; g++ {
		glyphs = append(glyphs, g)
	}
	c := &Coverage{Glyphs: glyphs}
	data := c.Serialize()
	format, err := otbin.NewParser(data).U16()
	if err != nil {
		t.Fatalf("reading format: %v", err)
	}
	if format != 2 {
		t.Fatalf("expected format 2 for one contiguous range of 101 glyphs, got %d", format)
	}
}

func TestCoverageIndex(t *testing.T) {
	c := &Coverage{Glyphs: []GlyphID{5, 10, 15}}
	if idx := c.Index(10); idx != 1 {
		t.Fatalf("Index(10) = %d, want 1", idx)
	}
	if idx := c.Index(11); idx != NotCovered {
		t.Fatalf("Index(11) = %d, want NotCovered", idx)
	}
}

func TestCoverageSubset(t *testing.T) {
	c := &Coverage{Glyphs: []GlyphID{5, 10, 15, 20}}
	glyphMap := GlyphMap{10: 1, 20: 2}
	sub := c.Subset(glyphMap)
	if len(sub.Glyphs) != 2 {
		t.Fatalf("expected 2 retained glyphs, got %d", len(sub.Glyphs))
	}
	if sub.Glyphs[0] != 1 || sub.Glyphs[1] != 2 {
		t.Fatalf("unexpected subset result: %v", sub.Glyphs)
	}
}
