package ot

import "encoding/binary"

// Font is a minimal sfnt directory: enough to hand a table's raw bytes to a
// caller, nothing more. It does not interpret table contents other than
// cmap (see cmap.go) and a NumGlyphs convenience reading maxp.
type Font struct {
	data   []byte
	tables map[Tag]tableRecord
}

type tableRecord struct {
	offset uint32
	length uint32
}

// ParseFont reads the sfnt or TrueType-collection header and indexes its
// table directory. index selects a face within a .ttc; pass 0 for a plain
// .ttf/.otf.
func ParseFont(data []byte, index int) (*Font, error) {
	if len(data) < 12 {
		return nil, ErrInvalidFont
	}

	p := NewParser(data)

	magic, _ := p.U32()
	if magic == 0x74746366 { // 'ttcf'
		return parseCollectionFont(data, index)
	}

	if index != 0 {
		return nil, ErrInvalidFont
	}
	return parseDirectory(data, 0)
}

func parseCollectionFont(data []byte, index int) (*Font, error) {
	p := NewParser(data)
	p.Skip(4) // 'ttcf'

	if _, err := p.U32(); err != nil { // ttc version, unused
		return nil, ErrInvalidFont
	}

	numFonts, err := p.U32()
	if err != nil {
		return nil, ErrInvalidFont
	}
	if index < 0 || index >= int(numFonts) {
		return nil, ErrInvalidFont
	}

	p.Skip(index * 4)
	offset, err := p.U32()
	if err != nil {
		return nil, ErrInvalidFont
	}
	return parseDirectory(data, int(offset))
}

func parseDirectory(data []byte, offset int) (*Font, error) {
	if offset+12 > len(data) {
		return nil, ErrInvalidFont
	}

	p := NewParser(data)
	p.SetOffset(offset)

	sfntVersion, _ := p.U32()
	switch sfntVersion {
	case 0x00010000, // TrueType outlines
		0x4F54544F, // 'OTTO', CFF outlines
		0x74727565, // 'true'
		0x74797031: // 'typ1'
	default:
		return nil, ErrInvalidFont
	}

	numTables, _ := p.U16()
	p.Skip(6) // searchRange, entrySelector, rangeShift

	font := &Font{
		data:   data,
		tables: make(map[Tag]tableRecord, numTables),
	}

	for i := 0; i < int(numTables); i++ {
		tag, _ := p.Tag()
		p.Skip(4) // checksum
		tableOffset, _ := p.U32()
		tableLength, _ := p.U32()

		font.tables[tag] = tableRecord{offset: tableOffset, length: tableLength}
	}

	return font, nil
}

// HasTable reports whether the directory lists tag.
func (f *Font) HasTable(tag Tag) bool {
	_, ok := f.tables[tag]
	return ok
}

// TableData returns the raw bytes of a table.
func (f *Font) TableData(tag Tag) ([]byte, error) {
	rec, ok := f.tables[tag]
	if !ok {
		return nil, ErrTableNotFound
	}

	end := rec.offset + rec.length
	if end > uint32(len(f.data)) {
		return nil, ErrInvalidTable
	}
	return f.data[rec.offset:end], nil
}

// TableParser returns a Parser scoped to a table's bytes.
func (f *Font) TableParser(tag Tag) (*Parser, error) {
	data, err := f.TableData(tag)
	if err != nil {
		return nil, err
	}
	return NewParser(data), nil
}

// NumGlyphs reads numGlyphs out of maxp, returning 0 if the table is
// missing or too short to contain it.
func (f *Font) NumGlyphs() int {
	data, err := f.TableData(TagMaxp)
	if err != nil || len(data) < 6 {
		return 0
	}
	return int(binary.BigEndian.Uint16(data[4:]))
}

// GlyphID identifies a glyph within a font.
type GlyphID = uint16

// Codepoint is a Unicode scalar value being looked up in a cmap.
type Codepoint = uint32
