package tokenizer

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pair is an ordered pair of symbols that appear adjacent within some
// sequence. Identity is structural: byte equality of both components.
type Pair struct {
	Left  string
	Right string
}

// greater reports whether p orders after q, comparing Left then Right as
// byte strings. Go string comparison is unsigned lexicographic, which is the
// ordering the tie-break relies on.
func (p Pair) greater(q Pair) bool {
	if p.Left != q.Left {
		return p.Left > q.Left
	}
	return p.Right > q.Right
}

// pairStats counts adjacent symbol pairs across the whole table, weighting
// each occurrence by its sequence's count. Sequences shorter than two
// symbols contribute nothing.
//
// The table is sharded across GOMAXPROCS goroutines, each producing a
// partial map; partials are merged by summing, so the result does not depend
// on scheduling.
func pairStats(f *Freqs) map[Pair]int {
	workers := runtime.GOMAXPROCS(0)
	if f.Len() < 2*workers {
		workers = 1
	}

	partials := make([]map[Pair]int, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			local := make(map[Pair]int)
			for i := w; i < f.Len(); i += workers {
				seq, count := f.At(i)
				for j := 0; j+1 < len(seq); j++ {
					local[Pair{seq[j], seq[j+1]}] += count
				}
			}
			partials[w] = local
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	stats := partials[0]
	for _, local := range partials[1:] {
		for p, c := range local {
			stats[p] += c
		}
	}
	return stats
}
