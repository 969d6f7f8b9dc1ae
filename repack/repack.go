// Package repack resolves offset overflows in a graph.Graph produced by
// serializing a font table, using subgraph isolation, node duplication,
// priority raising, and (for GSUB/GPOS) extension promotion. Subtables are
// never split.
package repack

import (
	"errors"

	"golang.org/x/exp/slices"

	"github.com/boxesandglue/fontcore/graph"
	"github.com/boxesandglue/fontcore/otbin"
)

// Errors returned by Resolve.
var (
	ErrNoResolution = errors.New("repack: overflow resolution budget exhausted")
)

// Options configures one Resolve call.
type Options struct {
	// Tag is the top-level table tag being repacked (e.g. "GSUB", "GPOS").
	// Only GSUB/GPOS get the extension-recalculation pass.
	Tag otbin.Tag

	// MaxRound bounds the isolate/duplicate/raise-priority iteration; its
	// tuning is left to the caller, per the open question on repacker
	// iteration budgets.
	MaxRound int
}

var gsubTag = otbin.MakeTag('G', 'S', 'U', 'B')
var gposTag = otbin.MakeTag('G', 'P', 'O', 'S')

// Resolve repacks g in place so no link overflows, or returns
// ErrNoResolution after opts.MaxRound rounds.
func Resolve(g *graph.Graph, opts Options) ([]byte, error) {
	g.SortShortestDistance()
	if !g.HasOverflows() {
		return g.Serialize()
	}

	isLayout := opts.Tag == gsubTag || opts.Tag == gposTag
	recalcExtensions := false

	for attempt := 0; attempt < 2; attempt++ {
		if isLayout && recalcExtensions {
			if recalculateExtensions(g) {
				g.AssignSpaces()
				g.SortShortestDistance()
			}
		}

		for round := 0; round < opts.MaxRound; round++ {
			overflows := g.Overflows()
			if len(overflows) == 0 {
				return g.Serialize()
			}
			if tryIsolatingSubgraphs(g, overflows) {
				g.SortShortestDistance()
				continue
			}
			processOverflows(g, overflows)
			g.SortShortestDistance()
		}

		if !isLayout || recalcExtensions {
			break
		}
		recalcExtensions = true
	}

	if !g.HasOverflows() {
		return g.Serialize()
	}
	return nil, ErrNoResolution
}

// tryIsolatingSubgraphs duplicates a shared child of an overflowing link's
// source so that child is no longer shared across multiple parents,
// shrinking the offset distance the link must span. Returns true if it made
// any change.
func tryIsolatingSubgraphs(g *graph.Graph, overflows []graph.Overflow) bool {
	progressed := false
	for _, ov := range overflows {
		src := g.Vertex(ov.SourceIdx)
		target := src.Links[ov.LinkIdx].Target

		parents := parentsOf(g, target)
		if len(parents) <= 1 {
			continue
		}
		g.Duplicate(target, ov.SourceIdx)
		progressed = true
	}
	return progressed
}

func parentsOf(g *graph.Graph, target int) []int {
	var parents []int
	for i := range g.Nodes {
		for _, l := range g.Vertex(i).Links {
			if l.Target == target {
				parents = append(parents, i)
				break
			}
		}
	}
	return parents
}

// processOverflows raises the priority of every overflowing link's source
// node so the next shortest-distance sort places it (and hence its targets)
// earlier, shrinking the offset it must encode.
func processOverflows(g *graph.Graph, overflows []graph.Overflow) {
	raised := map[int]bool{}
	for _, ov := range overflows {
		if raised[ov.SourceIdx] {
			continue
		}
		raised[ov.SourceIdx] = true
		o := g.Vertex(ov.SourceIdx)
		if o.Priority < 3 {
			o.Priority++
		}
	}
}

// recalculateExtensions treats every node with outgoing links as a lookup,
// visits them in descending link-count/subgraph-size ratio, and promotes to
// extension (32-bit offset) form each one that currently has an overflowing
// link. No subtables are presplit and no cumulative byte totals are
// tracked. Returns true if it modified the graph.
func recalculateExtensions(g *graph.Graph) bool {
	type candidate struct {
		lookupIdx int
		ratio     float64
	}
	var candidates []candidate
	for i, o := range g.Nodes {
		subtableCount := len(o.Links)
		if subtableCount == 0 {
			continue
		}
		size := g.FindSubgraphSize(i, map[int]bool{}, 64)
		if size == 0 {
			continue
		}
		candidates = append(candidates, candidate{lookupIdx: i, ratio: float64(subtableCount) / float64(size)})
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		switch {
		case a.ratio > b.ratio:
			return -1
		case a.ratio < b.ratio:
			return 1
		}
		return 0
	})

	modified := false
	for _, c := range candidates {
		if !graphRequires32Bit(g, c.lookupIdx) {
			continue
		}
		promoteToExtension(g, c.lookupIdx)
		modified = true
	}
	return modified
}

// graphRequires32Bit reports whether lookupIdx has any overflowing 16-bit
// link to one of its subtables under the current sort order.
func graphRequires32Bit(g *graph.Graph, lookupIdx int) bool {
	for _, ov := range g.Overflows() {
		if ov.SourceIdx == lookupIdx {
			return true
		}
	}
	return false
}

// promoteToExtension wraps each of lookupIdx's subtable links in a 32-bit
// extension indirection object, matching the GSUB ExtensionSubst / GPOS
// ExtensionPos layout (format 1: uint16 format, uint16 extensionLookupType,
// Offset32 extensionOffset).
func promoteToExtension(g *graph.Graph, lookupIdx int) {
	o := g.Vertex(lookupIdx)
	for i, l := range o.Links {
		if l.Width == graph.Width32 {
			continue // already an extension
		}
		wrapper := &graph.Object{
			Data:  make([]byte, 8),
			Links: []graph.Link{{Pos: 4, Target: l.Target, Width: graph.Width32}},
		}
		wrapper.Data[0] = 0
		wrapper.Data[1] = 1 // ExtensionSubst/Pos format 1
		newIdx := appendObject(g, wrapper)
		o.Links[i] = graph.Link{Pos: l.Pos, Target: newIdx, Width: l.Width, Signed: l.Signed, Bias: l.Bias}
	}
}

func appendObject(g *graph.Graph, o *graph.Object) int {
	g.Nodes = append(g.Nodes, o)
	return len(g.Nodes) - 1
}
