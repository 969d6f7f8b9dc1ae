package graph

import "testing"

func TestNewInvalidLinkIndex(t *testing.T) {
	objs := []*Object{
		{Data: []byte{0, 0}, Links: []Link{{Pos: 0, Target: 5, Width: Width16}}},
	}
	if _, err := New(objs); err != ErrInvalidObjIndex {
		t.Fatalf("New() error = %v, want ErrInvalidObjIndex", err)
	}
}

func TestSerializeSimpleOffset(t *testing.T) {
	root := &Object{Data: []byte{0, 0}, Links: []Link{{Pos: 0, Target: 1, Width: Width16}}}
	child := &Object{Data: []byte{0xAA, 0xBB}}
	g, err := New([]*Object{root, child})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.SortShortestDistance()
	if g.HasOverflows() {
		t.Fatalf("unexpected overflow in a trivially small graph")
	}
	out, err := g.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := []byte{0x00, 0x02, 0xAA, 0xBB}
	if len(out) != len(want) {
		t.Fatalf("Serialize() length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("Serialize()[%d] = %#x, want %#x (%v)", i, out[i], want[i], out)
		}
	}
}

func TestOverflowDetection(t *testing.T) {
	big := make([]byte, 70000)
	root := &Object{Data: []byte{0, 0, 0, 0}, Links: []Link{
		{Pos: 0, Target: 1, Width: Width16},
		{Pos: 2, Target: 2, Width: Width16},
	}}
	child := &Object{Data: big}
	small := &Object{Data: []byte{0xAA}}
	g, err := New([]*Object{root, child, small})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.SortShortestDistance()
	if !g.HasOverflows() {
		t.Fatalf("expected an overflow: a 16-bit link cannot reach the second child at offset 4 + 70000")
	}
}

func TestDuplicateRewritesParentLink(t *testing.T) {
	shared := &Object{Data: []byte{1}}
	parentA := &Object{Data: []byte{0, 0}, Links: []Link{{Pos: 0, Target: 3, Width: Width16}}}
	parentB := &Object{Data: []byte{0, 0}, Links: []Link{{Pos: 0, Target: 3, Width: Width16}}}
	root := &Object{Data: []byte{0, 0, 0, 0}, Links: []Link{
		{Pos: 0, Target: 1, Width: Width16},
		{Pos: 2, Target: 2, Width: Width16},
	}}
	g, err := New([]*Object{root, parentA, parentB, shared})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	newIdx := g.Duplicate(3, 1)
	if newIdx != 4 {
		t.Fatalf("Duplicate returned %d, want 4", newIdx)
	}
	if g.Nodes[1].Links[0].Target != 4 {
		t.Fatalf("parentA's link should now point at the duplicate")
	}
	if g.Nodes[2].Links[0].Target != 3 {
		t.Fatalf("parentB's link should still point at the original")
	}
}

func TestNormalizeDropsUnreachableNodes(t *testing.T) {
	root := &Object{Data: []byte{0, 0}, Links: []Link{{Pos: 0, Target: 1, Width: Width16}}}
	reachableChild := &Object{Data: []byte{0xFF}}
	unreachable := &Object{Data: []byte{0xEE}}
	g, err := New([]*Object{root, reachableChild, unreachable})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	norm := g.Normalize()
	if len(norm.Nodes) != 2 {
		t.Fatalf("Normalize() kept %d nodes, want 2 (unreachable node dropped)", len(norm.Nodes))
	}
}
