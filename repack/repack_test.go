package repack

import (
	"testing"

	"github.com/boxesandglue/fontcore/graph"
	"github.com/boxesandglue/fontcore/otbin"
)

func TestResolveNoOverflowIsIdentity(t *testing.T) {
	root := &graph.Object{Data: []byte{0, 0}, Links: []graph.Link{{Pos: 0, Target: 1, Width: graph.Width16}}}
	child := &graph.Object{Data: []byte{0xAB}}
	g, err := graph.New([]*graph.Object{root, child})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	out, err := Resolve(g, Options{MaxRound: 8})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Resolve() output length = %d, want 3", len(out))
	}
}

func TestResolveIsolatesSharedSubgraph(t *testing.T) {
	// Two large objects share a child; both reach it via a 16-bit offset
	// from a common root. Without isolation, the first parent's offset to
	// the shared child overflows: the child is placed after both parents,
	// so the second parent's bulk pushes it past 64KB.
	bigA := make([]byte, 60000)
	bigB := make([]byte, 60000)
	shared := &graph.Object{Data: []byte{0x01, 0x02}}

	parentA := &graph.Object{Data: append([]byte{0, 0}, bigA...), Links: []graph.Link{{Pos: 0, Target: 3, Width: graph.Width16}}}
	parentB := &graph.Object{Data: append([]byte{0, 0}, bigB...), Links: []graph.Link{{Pos: 0, Target: 3, Width: graph.Width16}}}
	root := &graph.Object{Data: make([]byte, 4), Links: []graph.Link{
		{Pos: 0, Target: 1, Width: graph.Width16},
		{Pos: 2, Target: 2, Width: graph.Width16},
	}}

	g, err := graph.New([]*graph.Object{root, parentA, parentB, shared})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	out, err := Resolve(g, Options{MaxRound: 32})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected non-empty serialized output")
	}
}

func TestResolveTerminatesWithinBudget(t *testing.T) {
	// A small chain root -> middle -> target plus an unreachable 128KB
	// blocker, resolved with a budget of two rounds. Resolve must return
	// either success or ErrNoResolution, and nothing else.
	huge := make([]byte, 1<<17)
	blocker := &graph.Object{Data: huge, Priority: 3}
	root := &graph.Object{Data: []byte{0, 0}, Priority: 3, Links: []graph.Link{{Pos: 0, Target: 2, Width: graph.Width16}}}
	middle := &graph.Object{Data: []byte{}, Priority: 0}
	target := &graph.Object{Data: []byte{0xFF}}

	g, err := graph.New([]*graph.Object{root, blocker, middle, target})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	root.Links[0].Target = 2 // middle sits directly after root in distance order
	middle.Links = []graph.Link{{Pos: 0, Target: 3, Width: graph.Width16}}
	// blocker is unreachable from root so it never enters the ordering;
	// this fixture is intentionally small and should resolve. Kept as a
	// smoke test that Resolve terminates within MaxRound either way.
	_, err = Resolve(g, Options{MaxRound: 2, Tag: otbin.MakeTag('G', 'S', 'U', 'B')})
	if err != nil && err != ErrNoResolution {
		t.Fatalf("Resolve returned unexpected error: %v", err)
	}
}
