package tokenizer

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCorpus = `the quick brown fox jumps over the lazy dog.
the dog didn't mind: the fox jumps over it 100 times a day,
and the lazy dog sleeps through all of them.`

func quietTrainer() Trainer {
	return Trainer{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestTrainSingleMerge(t *testing.T) {
	// "aaab" pre-tokenizes to one chunk; pairs are (a,a):2 and (a,b):1,
	// so the one merge allowed by the target must be (a,a).
	tr := quietTrainer()
	vocab, merges, err := tr.Train("aaab", 257, nil)
	require.NoError(t, err)

	assert.Equal(t, 257, vocab.Len())
	require.Equal(t, []Pair{{"a", "a"}}, merges)

	sym, ok := vocab.Bytes(256)
	require.True(t, ok)
	assert.Equal(t, []byte("aa"), sym)
}

func TestTrainEmptyCorpus(t *testing.T) {
	tr := quietTrainer()
	vocab, merges, err := tr.Train("", 1000, []string{"<eos>"})
	require.NoError(t, err)

	assert.Equal(t, 257, vocab.Len())
	assert.Empty(t, merges)
	assert.True(t, vocab.IsSpecial(256))
	assert.Equal(t, []string{"<eos>"}, vocab.Specials())
}

func TestTrainClampsVocabSize(t *testing.T) {
	tr := quietTrainer()
	vocab, merges, err := tr.Train("", 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 256, vocab.Len())
	assert.Empty(t, merges)
}

func TestTrainByteCoverage(t *testing.T) {
	tr := quietTrainer()
	vocab, _, err := tr.Train(sampleCorpus, 300, []string{"<pad>"})
	require.NoError(t, err)

	for i := 0; i < 256; i++ {
		sym, ok := vocab.Bytes(i)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, sym)
	}
}

func TestTrainTieBreak(t *testing.T) {
	// One chunk "abcd": pairs (a,b), (b,c), (c,d) all have count 1. The
	// byte-lexicographically greatest pair must win.
	tr := quietTrainer()
	_, merges, err := tr.Train("abcd", 257, nil)
	require.NoError(t, err)

	require.Equal(t, []Pair{{"c", "d"}}, merges)
}

func TestTrainDeterministic(t *testing.T) {
	tr := quietTrainer()
	vocab1, merges1, err := tr.Train(sampleCorpus, 320, []string{"<eos>"})
	require.NoError(t, err)
	vocab2, merges2, err := tr.Train(sampleCorpus, 320, []string{"<eos>"})
	require.NoError(t, err)

	assert.Equal(t, merges1, merges2)
	assert.Equal(t, vocab1, vocab2)
}

func TestTrainMergeValidity(t *testing.T) {
	tr := quietTrainer()
	vocab, merges, err := tr.Train(sampleCorpus, 320, nil)
	require.NoError(t, err)
	require.NotEmpty(t, merges)

	for i, m := range merges {
		id := 256 + i
		sym, ok := vocab.Bytes(id)
		require.True(t, ok)
		assert.Equal(t, m.Left+m.Right, string(sym))

		// Both components must already exist at lower ids.
		assert.Less(t, symbolID(vocab, m.Left), id)
		assert.Less(t, symbolID(vocab, m.Right), id)
	}
}

// symbolID returns the lowest id holding sym, or -1.
func symbolID(v *Vocabulary, sym string) int {
	for id, s := range v.symbols {
		if s == sym {
			return id
		}
	}
	return -1
}

func TestTrainSpecialIsolation(t *testing.T) {
	specials := []string{"<|bos|>", "<|eos|>"}
	tr := quietTrainer()
	vocab, merges, err := tr.Train(sampleCorpus, 300, specials)
	require.NoError(t, err)

	assert.Equal(t, specials, vocab.Specials())
	last := vocab.Len() - 1
	assert.True(t, vocab.IsSpecial(last))
	assert.True(t, vocab.IsSpecial(last-1))
	assert.False(t, vocab.IsSpecial(last-2))

	for _, m := range merges {
		for _, s := range specials {
			assert.NotEqual(t, s, m.Left)
			assert.NotEqual(t, s, m.Right)
		}
	}
}

func TestTrainStopsWhenNoPairsRemain(t *testing.T) {
	// A single one-byte chunk offers nothing to merge, so the vocabulary
	// falls short of the target. Not an error.
	tr := quietTrainer()
	vocab, merges, err := tr.Train("a", 1000, nil)
	require.NoError(t, err)

	assert.Empty(t, merges)
	assert.Equal(t, 256, vocab.Len())
}

func TestTrainExhaustsMergeablePairs(t *testing.T) {
	// "aaab" supports exactly three merges before the chunk is one symbol:
	// (a,a) then (aa,a) then (aaa,b).
	tr := quietTrainer()
	vocab, merges, err := tr.Train("aaab", 1000, nil)
	require.NoError(t, err)

	assert.Len(t, merges, 3)
	assert.Equal(t, 259, vocab.Len())

	sym, ok := vocab.Bytes(258)
	require.True(t, ok)
	assert.Equal(t, []byte("aaab"), sym)
}

// Corpus and expectations from minbpe's quick-start example; the ".+"
// pattern keeps the whole input as one chunk.
func TestTrainMinbpeScenario(t *testing.T) {
	tr := Trainer{Pattern: ".+", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	vocab, merges, err := tr.Train("aaabdaaabac", 256+3, nil)
	require.NoError(t, err)

	require.Equal(t, []Pair{{"a", "a"}, {"aa", "a"}, {"aaa", "b"}}, merges)
	assert.Equal(t, 259, vocab.Len())

	enc, err := NewEncoder(vocab, merges, ".+")
	require.NoError(t, err)
	ids, err := enc.Encode("aaabdaaabac")
	require.NoError(t, err)
	assert.Equal(t, []int{258, 100, 258, 97, 99}, ids)
	assert.Equal(t, "aaabdaaabac", enc.Decode(ids))
}

func TestIncrementalMatchesRecount(t *testing.T) {
	corpora := map[string]string{
		"prose":      sampleCorpus,
		"repetitive": strings.Repeat("aaabdaaabac ", 20),
		"mixed":      "it's low lower lowest 123 456 !!! \t\n " + sampleCorpus,
	}

	for name, corpus := range corpora {
		t.Run(name, func(t *testing.T) {
			for _, target := range []int{260, 300, 400} {
				base := quietTrainer()
				fast := Trainer{Incremental: true, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

				vocab1, merges1, err := base.Train(corpus, target, []string{"<eos>"})
				require.NoError(t, err)
				vocab2, merges2, err := fast.Train(corpus, target, []string{"<eos>"})
				require.NoError(t, err)

				require.Equal(t, merges1, merges2, "target %d", target)
				require.Equal(t, vocab1, vocab2, "target %d", target)
			}
		})
	}
}

func TestTrainPackageConvenience(t *testing.T) {
	vocab, merges, err := Train("aaab", 257, nil)
	require.NoError(t, err)
	assert.Equal(t, 257, vocab.Len())
	assert.Len(t, merges, 1)
}

func TestTrainBadPattern(t *testing.T) {
	tr := Trainer{Pattern: "(", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, _, err := tr.Train("abc", 300, nil)
	require.Error(t, err)
}
