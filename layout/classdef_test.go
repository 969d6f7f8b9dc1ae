package layout

import "testing"

func TestClassDefRoundTrip(t *testing.T) {
	cd := &ClassDef{Classes: map[GlyphID]uint16{10: 1, 11: 1, 20: 2}}
	data := cd.Serialize()

	got, err := ParseClassDef(data, 0)
	if err != nil {
		t.Fatalf("ParseClassDef: %v", err)
	}
	for g, want := range cd.Classes {
		if got.Classes[g] != want {
			t.Fatalf("class[%d] = %d, want %d", g, got.Classes[g], want)
		}
	}
}

func TestClassDefSubsetCompact(t *testing.T) {
	cd := &ClassDef{Classes: map[GlyphID]uint16{10: 1, 20: 3, 30: 5}}
	glyphMap := GlyphMap{10: 0, 30: 1} // class-3 glyph dropped from the subset
	sub := cd.Subset(glyphMap, SubsetOptions{Compact: true})

	if sub.Classes[0] != 1 {
		t.Fatalf("expected class 1 (first surviving non-zero class) for glyph 0, got %d", sub.Classes[0])
	}
	if sub.Classes[1] != 2 {
		t.Fatalf("expected compacted class 2 for glyph 1, got %d", sub.Classes[1])
	}
}
