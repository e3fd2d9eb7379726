package tokenizer

import "encoding/binary"

// Sequence is one pre-tokenized chunk reduced to its current merge state: an
// ordered run of symbols, each an immutable byte string. Atomic symbols are
// single bytes; merged symbols are concatenations of two existing symbols.
type Sequence []string

// key returns a canonical encoding of the sequence for use as a map key.
// Symbols are length-prefixed so ("ab","c") and ("a","bc") never collide.
func (s Sequence) key() string {
	n := 0
	for _, sym := range s {
		n += len(sym) + 1
	}
	buf := make([]byte, 0, n)
	for _, sym := range s {
		buf = binary.AppendUvarint(buf, uint64(len(sym)))
		buf = append(buf, sym...)
	}
	return string(buf)
}

// Freqs maps sequences to occurrence counts. Chunks that reduce to the same
// sequence share a single entry with a summed count.
type Freqs struct {
	seqs   []Sequence
	counts []int
	index  map[string]int
}

func NewFreqs() *Freqs {
	return &Freqs{index: make(map[string]int)}
}

// Add increments the count recorded for seq by n, inserting it if absent.
func (f *Freqs) Add(seq Sequence, n int) {
	k := seq.key()
	if i, ok := f.index[k]; ok {
		f.counts[i] += n
		return
	}
	f.index[k] = len(f.seqs)
	f.seqs = append(f.seqs, seq)
	f.counts = append(f.counts, n)
}

// Len returns the number of distinct sequences in the table.
func (f *Freqs) Len() int { return len(f.seqs) }

// At returns the i-th sequence and its count.
func (f *Freqs) At(i int) (Sequence, int) { return f.seqs[i], f.counts[i] }

// Count returns the count recorded for seq, or zero if absent.
func (f *Freqs) Count(seq Sequence) int {
	if i, ok := f.index[seq.key()]; ok {
		return f.counts[i]
	}
	return 0
}
