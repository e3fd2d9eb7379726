package tokenizer

import (
	"fmt"
	"log/slog"

	"github.com/dlclark/regexp2"
)

const numBytes = 256

// Vocabulary maps token ids to the byte strings they stand for. Ids 0-255
// are the single bytes (id equals byte value), merge-derived ids follow in
// creation order, and special tokens always occupy the highest ids. Entries
// are only ever appended; ids are never reused or renumbered.
type Vocabulary struct {
	symbols  []string
	specials int
}

func newByteVocabulary() *Vocabulary {
	v := &Vocabulary{symbols: make([]string, 0, 2*numBytes)}
	for i := 0; i < numBytes; i++ {
		v.symbols = append(v.symbols, string([]byte{byte(i)}))
	}
	return v
}

func (v *Vocabulary) add(symbol string) int {
	v.symbols = append(v.symbols, symbol)
	return len(v.symbols) - 1
}

// AddSpecials appends each token, in order, with the next free id. Special
// tokens never pass through merge learning; appending them after training
// guarantees they hold the highest ids and never occur inside a merge rule.
func (v *Vocabulary) AddSpecials(tokens []string) {
	for _, tok := range tokens {
		v.add(tok)
		v.specials++
	}
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int { return len(v.symbols) }

// Bytes returns the byte string for id.
func (v *Vocabulary) Bytes(id int) ([]byte, bool) {
	if id < 0 || id >= len(v.symbols) {
		return nil, false
	}
	return []byte(v.symbols[id]), true
}

// IsSpecial reports whether id names a special token.
func (v *Vocabulary) IsSpecial(id int) bool {
	return id >= len(v.symbols)-v.specials && id < len(v.symbols)
}

// Specials returns the special tokens in id order.
func (v *Vocabulary) Specials() []string {
	return append([]string(nil), v.symbols[len(v.symbols)-v.specials:]...)
}

// Trainer trains a byte-level BPE vocabulary. The zero value pre-tokenizes
// with GPT2Pattern, recomputes pair statistics from scratch every merge, and
// logs through slog.Default().
type Trainer struct {
	// Pattern overrides the pre-tokenizer split pattern. Callers that
	// override it must hand the same pattern to NewEncoder later.
	Pattern string

	// Incremental switches to the heap-driven trainer, which tracks
	// pair-count deltas instead of recounting every iteration. It produces
	// the same vocabulary and merge list as the default trainer, just
	// faster on large corpora.
	Incremental bool

	Logger *slog.Logger
}

// Train learns a BPE vocabulary from text. vocabSize is clamped up to 256,
// the base byte alphabet. Training stops once the vocabulary reaches the
// target or no adjacent pair remains, whichever comes first, so a degenerate
// corpus yields a smaller vocabulary than requested rather than an error.
// Special tokens are appended afterwards, in order, with the highest ids.
//
// The returned merge list records the chosen pairs in selection order; a
// downstream encoder must replay them in that order.
func (t *Trainer) Train(text string, vocabSize int, specialTokens []string) (*Vocabulary, []Pair, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	patternStr := t.Pattern
	if patternStr == "" {
		patternStr = GPT2Pattern
	}
	pattern, err := regexp2.Compile(patternStr, regexp2.None)
	if err != nil {
		return nil, nil, fmt.Errorf("compile pretokenizer pattern: %w", err)
	}

	target := vocabSize
	if target < numBytes {
		target = numBytes
	}

	freqs, err := preTokenize(text, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("pretokenize corpus: %w", err)
	}

	vocab := newByteVocabulary()
	var merges []Pair
	if t.Incremental {
		merges = trainIncremental(freqs, vocab, target, logger)
	} else {
		merges = trainRecount(freqs, vocab, target, logger)
	}

	vocab.AddSpecials(specialTokens)
	logger.Info("training finished",
		"vocab", vocab.Len(), "merges", len(merges), "specials", len(specialTokens))
	return vocab, merges, nil
}

// Train learns a BPE vocabulary with the default Trainer configuration.
func Train(text string, vocabSize int, specialTokens []string) (*Vocabulary, []Pair, error) {
	var t Trainer
	return t.Train(text, vocabSize, specialTokens)
}

// trainRecount is the baseline loop: recompute all pair statistics from
// scratch each iteration, pick the best pair, rewrite the table. Each
// iteration grows the vocabulary by exactly one, so the loop runs at most
// target-256 times.
func trainRecount(freqs *Freqs, vocab *Vocabulary, target int, logger *slog.Logger) []Pair {
	var merges []Pair
	progress := newProgressLogger(logger, target-vocab.Len())
	for vocab.Len() < target {
		stats := pairStats(freqs)
		if len(stats) == 0 {
			break
		}
		best := bestPair(stats)
		count := stats[best]
		freqs = applyMerge(freqs, best)
		merges = append(merges, best)
		id := vocab.add(best.Left + best.Right)
		progress.step(best, id, count)
	}
	return merges
}

// bestPair returns the pair with the highest weighted count; ties go to the
// byte-lexicographically greater pair, so selection never depends on map
// iteration order.
func bestPair(stats map[Pair]int) Pair {
	var best Pair
	bestCount := -1
	for p, c := range stats {
		if c > bestCount || (c == bestCount && p.greater(best)) {
			best, bestCount = p, c
		}
	}
	return best
}

// progressLogger emits one debug record per whole percent of merges done,
// so long runs stay observable without drowning the log.
type progressLogger struct {
	logger      *slog.Logger
	total       int
	done        int
	lastPercent int
}

func newProgressLogger(logger *slog.Logger, total int) *progressLogger {
	return &progressLogger{logger: logger, total: total}
}

func (p *progressLogger) step(pair Pair, id, count int) {
	p.done++
	if p.total <= 0 {
		return
	}
	percent := p.done * 100 / p.total
	if percent > p.lastPercent {
		p.logger.Debug("merge progress",
			"percent", percent, "merges", p.done, "total", p.total,
			"left", pair.Left, "right", pair.Right, "id", id, "count", count)
		p.lastPercent = percent
	}
}
