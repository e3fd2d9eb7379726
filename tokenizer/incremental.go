package tokenizer

import (
	"cmp"
	"log/slog"
	"strings"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
)

// word is one frequency-table sequence under incremental rewriting.
type word struct {
	syms Sequence
}

type pairDelta struct {
	pair  Pair
	delta int
}

// mergePair collapses pair into merged within the word, leftmost-first and
// non-overlapping, and returns the pair-count deltas the rewrite caused.
// Deltas are per occurrence, not yet weighted by the word's corpus count.
func (w *word) mergePair(pair Pair, merged string) []pairDelta {
	n := len(w.syms)
	if n < 2 {
		return nil
	}

	out := make(Sequence, 0, n)
	var deltas []pairDelta
	for i := 0; i < n; {
		if i+1 < n && w.syms[i] == pair.Left && w.syms[i+1] == pair.Right {
			if len(out) > 0 {
				prev := out[len(out)-1]
				deltas = append(deltas,
					pairDelta{Pair{prev, pair.Left}, -1},
					pairDelta{Pair{prev, merged}, +1})
			}
			deltas = append(deltas, pairDelta{pair, -1})
			if i+2 < n {
				next := w.syms[i+2]
				deltas = append(deltas,
					pairDelta{Pair{pair.Right, next}, -1},
					pairDelta{Pair{merged, next}, +1})
			}
			out = append(out, merged)
			i += 2
		} else {
			out = append(out, w.syms[i])
			i++
		}
	}
	w.syms = out
	return deltas
}

// mergeJob is a heap candidate: a pair and its total weighted count at push
// time. Counts drift as merges land, so entries are re-validated against the
// live count map when popped and re-pushed if stale.
type mergeJob struct {
	pair  Pair
	count int
}

// trainIncremental mirrors trainRecount but keeps pair counts current via
// per-word deltas instead of recounting the whole table each iteration.
// Candidates sit in a binary heap ordered like bestPair: higher count first,
// then the byte-lexicographically greater pair. A single position map tracks
// every word each pair occurs in, so a selected pair is rewritten everywhere
// it lives. The merges come out identical to the recount loop, in the same
// order.
func trainIncremental(freqs *Freqs, vocab *Vocabulary, target int, logger *slog.Logger) []Pair {
	words := make([]word, freqs.Len())
	counts := make([]int, freqs.Len())
	for i := 0; i < freqs.Len(); i++ {
		seq, n := freqs.At(i)
		words[i] = word{syms: seq}
		counts[i] = n
	}

	pairCounts := make(map[Pair]int)
	where := make(map[Pair]map[int]struct{})
	for i, w := range words {
		for j := 0; j+1 < len(w.syms); j++ {
			p := Pair{w.syms[j], w.syms[j+1]}
			pairCounts[p] += counts[i]
			set := where[p]
			if set == nil {
				set = make(map[int]struct{})
				where[p] = set
			}
			set[i] = struct{}{}
		}
	}

	h := heap.NewWith(func(a, b *mergeJob) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		if a.pair.Left != b.pair.Left {
			return strings.Compare(b.pair.Left, a.pair.Left)
		}
		return strings.Compare(b.pair.Right, a.pair.Right)
	})
	for p, c := range pairCounts {
		if c > 0 {
			h.Push(&mergeJob{pair: p, count: c})
		}
	}

	var merges []Pair
	progress := newProgressLogger(logger, target-vocab.Len())
	for vocab.Len() < target {
		top, ok := h.Pop()
		if !ok {
			break
		}
		if current := pairCounts[top.pair]; current != top.count {
			if current > 0 {
				top.count = current
				h.Push(top)
			}
			continue
		}
		if top.count <= 0 {
			continue
		}

		merged := top.pair.Left + top.pair.Right
		touched := make(map[Pair]struct{})
		for idx := range where[top.pair] {
			for _, d := range words[idx].mergePair(top.pair, merged) {
				weighted := d.delta * counts[idx]
				if weighted == 0 {
					continue
				}
				pairCounts[d.pair] += weighted
				if d.delta > 0 {
					set := where[d.pair]
					if set == nil {
						set = make(map[int]struct{})
						where[d.pair] = set
					}
					set[idx] = struct{}{}
					touched[d.pair] = struct{}{}
				}
			}
		}
		delete(pairCounts, top.pair)
		delete(where, top.pair)
		for p := range touched {
			if c := pairCounts[p]; c > 0 {
				h.Push(&mergeJob{pair: p, count: c})
			}
		}

		merges = append(merges, top.pair)
		id := vocab.add(merged)
		progress.step(top.pair, id, top.count)
	}
	return merges
}
