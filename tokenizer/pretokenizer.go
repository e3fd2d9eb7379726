package tokenizer

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// GPT2Pattern is the default split pattern (left-to-right alternatives,
// first match wins):
//
//   - 's|'t|'re|'ve|'m|'ll|'d: contraction suffixes, kept whole so merges
//     never cross the apostrophe.
//   - ` ?\p{L}+`: an optional leading space then one or more letters.
//   - ` ?\p{N}+`: an optional leading space then one or more digits.
//   - ` ?[^\s\p{L}\p{N}]+`: an optional leading space then a run of
//     symbols/punctuation (no letters, digits or whitespace).
//   - `\s+(?!\S)`: a trailing whitespace run (whitespace not followed by a
//     non-space). The lookahead is why this needs regexp2 rather than the
//     stdlib regexp package.
//   - `\s+`: any remaining whitespace run.
const GPT2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// preTokenize splits text into chunks with the given pattern, explodes each
// chunk into its UTF-8 bytes, and returns the frequency table of the
// resulting single-byte symbol sequences. Invalid byte runs are dropped
// before matching rather than reported.
func preTokenize(text string, pattern *regexp2.Regexp) (*Freqs, error) {
	text = strings.ToValidUTF8(text, "")

	chunks := make(map[string]int)
	m, err := pattern.FindStringMatch(text)
	if err != nil {
		return nil, err
	}
	for m != nil {
		chunks[m.String()]++
		m, err = pattern.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}

	freqs := NewFreqs()
	for chunk, n := range chunks {
		seq := make(Sequence, len(chunk))
		for i := 0; i < len(chunk); i++ {
			seq[i] = chunk[i : i+1]
		}
		freqs.Add(seq, n)
	}
	return freqs, nil
}
