package varstore

import (
	"container/heap"
	"sort"
)

// columnWidth is the number of bytes needed to encode every value of a
// column as a signed integer: 1, 2, or 4. OpenType upgrades a would-be
// 1-byte column to 2 bytes whenever any value needs the full 16-bit
// range, matching the packed "word" vs "long" delta distinction.
func columnWidth(values []int32) int {
	width := 1
	for _, v := range values {
		if v < -32768 || v > 32767 {
			width = 4
		} else if (v < -128 || v > 127) && width < 4 {
			width = 2
		}
	}
	return width
}

// encoding describes one output ItemVariationData subtable: which region
// columns it carries, the byte width chosen for each, and for every row
// the original (outer, inner) varidx it was instanced from, so phase 7
// can remap references after subtables are merged and renumbered.
type encoding struct {
	regionIndices []int
	widths        []int
	rows          [][]int32
	sourceVarIdx  []VarIdx
}

// overhead is the fixed per-subtable cost (item count, word count,
// region index count, and the subtable's Offset32 in the store header:
// 10 bytes) plus two bytes per region index retained.
func overhead(e *encoding) int {
	return 10 + 2*len(e.regionIndices)
}

func rowBytes(e *encoding) int {
	total := 0
	for _, w := range e.widths {
		total += w
	}
	return total
}

// buildEncodings turns each VarData's rows into an initial one-encoding-
// per-VarData layout (phase 5), ready for the greedy merge pass (phase 6).
// regionIndexOf resolves a region (by its canonical key) to its slot in
// the store's region list.
func buildEncodings(store *ItemVariationStore, regionIndexOf map[string]int) []*encoding {
	encs := make([]*encoding, 0, len(store.VarData))
	for outer, vd := range store.VarData {
		regionIdx := make([]int, len(vd.Tuples))
		for i, tup := range vd.Tuples {
			regionIdx[i] = regionIndexOf[regionKey(tup.Region)]
		}

		rows := make([][]int32, vd.ItemCount)
		sourceVarIdx := make([]VarIdx, vd.ItemCount)
		for item := 0; item < vd.ItemCount; item++ {
			row := make([]int32, len(vd.Tuples))
			for col, tup := range vd.Tuples {
				if item < len(tup.DeltaX) {
					row[col] = int32(tup.DeltaX[item])
				}
			}
			rows[item] = row
			sourceVarIdx[item] = VarIdx{Outer: uint16(outer), Inner: uint16(item)}
		}

		widths := make([]int, len(vd.Tuples))
		for col := range vd.Tuples {
			vals := make([]int32, len(rows))
			for i, row := range rows {
				vals[i] = row[col]
			}
			widths[col] = columnWidth(vals)
		}

		encs = append(encs, &encoding{regionIndices: regionIdx, widths: widths, rows: rows, sourceVarIdx: sourceVarIdx})
	}
	return encs
}

// mergeGain is the byte saving from combining a and b into one subtable:
// the two subtables' combined fixed overhead minus the merged subtable's
// overhead, minus the extra per-row bytes each side's rows must now carry
// for the other side's columns.
func mergeGain(a, b *encoding) int {
	combined := mergeEncodings(a, b)
	save := overhead(a) + overhead(b) - overhead(combined)
	extraA := rowBytes(combined) - rowBytes(a)
	extraB := rowBytes(combined) - rowBytes(b)
	save -= extraA * len(a.rows)
	save -= extraB * len(b.rows)
	return save
}

func mergeEncodings(a, b *encoding) *encoding {
	regionIndices := append(append([]int(nil), a.regionIndices...), b.regionIndices...)
	widths := append(append([]int(nil), a.widths...), b.widths...)

	rows := make([][]int32, 0, len(a.rows)+len(b.rows))
	zerosB := make([]int32, len(b.regionIndices))
	for _, r := range a.rows {
		rows = append(rows, append(append([]int32(nil), r...), zerosB...))
	}
	zerosA := make([]int32, len(a.regionIndices))
	for _, r := range b.rows {
		rows = append(rows, append(append([]int32(nil), zerosA...), r...))
	}

	sourceVarIdx := append(append([]VarIdx(nil), a.sourceVarIdx...), b.sourceVarIdx...)

	return &encoding{regionIndices: regionIndices, widths: widths, rows: rows, sourceVarIdx: sourceVarIdx}
}

type mergeCandidate struct {
	gain int
	i, j int
}

type mergeHeap []mergeCandidate

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(a, b int) bool {
	if h[a].gain != h[b].gain {
		return h[a].gain > h[b].gain
	}
	if h[a].i != h[b].i {
		return h[a].i < h[b].i
	}
	return h[a].j < h[b].j
}
func (h mergeHeap) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(mergeCandidate)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// optimizeEncodings greedily merges the pair of subtables with the
// largest positive byte gain until no merge would shrink the table
// further. Ties go to the lower left index, then the lower right index.
func optimizeEncodings(encs []*encoding) []*encoding {
	live := make(map[int]*encoding, len(encs))
	for i, e := range encs {
		live[i] = e
	}

	h := &mergeHeap{}
	heap.Init(h)
	seedCandidates(h, live)

	for h.Len() > 0 {
		cand := heap.Pop(h).(mergeCandidate)
		a, okA := live[cand.i]
		b, okB := live[cand.j]
		if !okA || !okB {
			continue
		}
		if mergeGain(a, b) != cand.gain {
			continue
		}
		if cand.gain <= 0 {
			break
		}

		merged := mergeEncodings(a, b)
		delete(live, cand.i)
		delete(live, cand.j)
		newIdx := cand.i
		live[newIdx] = merged

		for idx, other := range live {
			if idx == newIdx {
				continue
			}
			g := mergeGain(merged, other)
			if g > 0 {
				lo, hi := newIdx, idx
				if lo > hi {
					lo, hi = hi, lo
				}
				heap.Push(h, mergeCandidate{gain: g, i: lo, j: hi})
			}
		}
	}

	keys := make([]int, 0, len(live))
	for k := range live {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]*encoding, 0, len(live))
	for _, k := range keys {
		out = append(out, live[k])
	}
	return out
}

func seedCandidates(h *mergeHeap, live map[int]*encoding) {
	for i, a := range live {
		for j, b := range live {
			if j <= i {
				continue
			}
			g := mergeGain(a, b)
			if g > 0 {
				heap.Push(h, mergeCandidate{gain: g, i: i, j: j})
			}
		}
	}
}
