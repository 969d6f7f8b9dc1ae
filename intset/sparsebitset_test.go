package intset

import "testing"

func TestSparseBitSetRoundTrip(t *testing.T) {
	for _, bf := range []int{2, 4, 8, 16, 32} {
		bf := bf
		t.Run("", func(t *testing.T) {
			const max = 0x10FFFF
			want := NewU32(max)
			want.InsertRange(0, 17)
			want.Insert(1000)
			want.Insert(0x10FFFF)

			encoded, err := EncodeSparseBitSet(want, max, bf)
			if err != nil {
				t.Fatalf("EncodeSparseBitSet(bf=%d): %v", bf, err)
			}

			got, rest, err := DecodeSparseBitSet(encoded, max)
			if err != nil {
				t.Fatalf("DecodeSparseBitSet(bf=%d): %v", bf, err)
			}
			if len(rest) != 0 {
				t.Fatalf("unexpected trailing bytes: %d", len(rest))
			}
			if !got.Equal(want) {
				t.Fatalf("decode(encode(s)) != s for branch factor %d: got %v, want %v", bf, got.Iter(), want.Iter())
			}
		})
	}
}

func TestSparseBitSetEmptySet(t *testing.T) {
	s := NewU32(1000)
	encoded, err := EncodeSparseBitSet(s, 1000, 8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := DecodeSparseBitSet(encoded, 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("expected an empty decoded set, got %v", got.Iter())
	}
}

func TestSparseBitSetTrailingBytes(t *testing.T) {
	s := NewU32(100)
	s.InsertRange(0, 5)
	encoded, err := EncodeSparseBitSet(s, 100, 4)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	encoded = append(encoded, 0xFF, 0xFF)

	got, rest, err := DecodeSparseBitSet(encoded, 100)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(s) {
		t.Fatalf("decoded set mismatch: got %v, want %v", got.Iter(), s.Iter())
	}
	if len(rest) != 2 || rest[0] != 0xFF || rest[1] != 0xFF {
		t.Fatalf("DecodeSparseBitSet did not return the correct trailing bytes: %v", rest)
	}
}

func TestSparseBitSetMalformed(t *testing.T) {
	if _, _, err := DecodeSparseBitSet(nil, 100); err == nil {
		t.Fatalf("expected an error decoding an empty stream")
	}
	if _, _, err := DecodeSparseBitSet([]byte{0x00}, 100); err == nil {
		t.Fatalf("expected an error decoding a truncated stream")
	}
}

func TestSparseBitSetInvalidBranchFactor(t *testing.T) {
	s := NewU32(100)
	if _, err := EncodeSparseBitSet(s, 100, 3); err == nil {
		t.Fatalf("expected an error for an unsupported branch factor")
	}
}
