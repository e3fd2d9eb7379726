package tokenizer

// applyMerge returns a new table with every occurrence of pair collapsed
// into the concatenated symbol. Occurrences are consumed leftmost-first and
// never overlap: a match advances the cursor past both symbols, so "aaa"
// under pair (a,a) becomes ("aa","a"). Sequences that become identical after
// rewriting share one entry with a summed count. The input table is not
// modified; applying a pair that occurs nowhere reproduces the input.
func applyMerge(f *Freqs, pair Pair) *Freqs {
	merged := pair.Left + pair.Right
	out := NewFreqs()
	for i := 0; i < f.Len(); i++ {
		seq, count := f.At(i)
		rewritten := make(Sequence, 0, len(seq))
		for j := 0; j < len(seq); {
			if j+1 < len(seq) && seq[j] == pair.Left && seq[j+1] == pair.Right {
				rewritten = append(rewritten, merged)
				j += 2
			} else {
				rewritten = append(rewritten, seq[j])
				j++
			}
		}
		out.Add(rewritten, count)
	}
	return out
}
