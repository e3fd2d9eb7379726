package tokenizer

import (
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
)

// Encoder applies a trained vocabulary and merge list to new text. It
// reconstructs the training pre-tokenizer and replays the merge list in
// recorded order, so its output matches the segmentation training produced.
type Encoder struct {
	vocab   *Vocabulary
	merges  []Pair
	ids     map[string]int
	special map[string]int
	pattern *regexp2.Regexp
}

// NewEncoder builds an encoder from training artifacts. pattern must be the
// pattern training used; empty means GPT2Pattern.
func NewEncoder(vocab *Vocabulary, merges []Pair, pattern string) (*Encoder, error) {
	if pattern == "" {
		pattern = GPT2Pattern
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	e := &Encoder{
		vocab:   vocab,
		merges:  merges,
		ids:     make(map[string]int, vocab.Len()),
		special: make(map[string]int),
		pattern: re,
	}
	for id, sym := range vocab.symbols {
		if _, ok := e.ids[sym]; !ok {
			e.ids[sym] = id
		}
		if vocab.IsSpecial(id) {
			e.special[sym] = id
		}
	}
	return e, nil
}

// fragment is a span of input text; ids is set once the span is resolved to
// token ids and must not be split further.
type fragment struct {
	text string
	ids  []int
}

// splitSpecials splits text into fragments, pinning every special-token
// occurrence to its reserved id so specials never reach pre-tokenization or
// merging.
func (e *Encoder) splitSpecials(text string) []fragment {
	fragments := []fragment{{text: text}}
	for _, special := range e.vocab.Specials() {
		if !strings.Contains(text, special) {
			continue
		}

		id := e.special[special]
		for i := 0; i < len(fragments); i++ {
			frag := fragments[i]
			if len(frag.ids) > 0 {
				continue
			}

			var middle []fragment
			switch idx := strings.Index(frag.text, special); {
			case idx < 0:
				middle = append(middle, frag)
			case idx > 0:
				middle = append(middle, fragment{text: frag.text[:idx]})
				fallthrough
			default:
				middle = append(middle, fragment{text: special, ids: []int{id}})
				if rest := frag.text[idx+len(special):]; rest != "" {
					middle = append(middle, fragment{text: rest})
				}
			}

			fragments = slices.Replace(fragments, i, i+1, middle...)
		}
	}
	return fragments
}

// Encode converts text to token ids. Invalid byte runs are dropped, matching
// training's lossy decode.
func (e *Encoder) Encode(text string) ([]int, error) {
	text = strings.ToValidUTF8(text, "")

	var out []int
	for _, frag := range e.splitSpecials(text) {
		if len(frag.ids) > 0 {
			out = append(out, frag.ids...)
			continue
		}

		m, err := e.pattern.FindStringMatch(frag.text)
		if err != nil {
			return nil, err
		}
		for m != nil {
			out = append(out, e.encodeChunk(m.String())...)
			m, err = e.pattern.FindNextMatch(m)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// encodeChunk explodes one chunk into byte symbols and replays the merge
// list in training order. Merges whose pair is absent are skipped after a
// quick scan.
func (e *Encoder) encodeChunk(chunk string) []int {
	syms := make(Sequence, len(chunk))
	for i := 0; i < len(chunk); i++ {
		syms[i] = chunk[i : i+1]
	}

	for _, m := range e.merges {
		if len(syms) < 2 {
			break
		}
		if !containsPair(syms, m) {
			continue
		}
		merged := m.Left + m.Right
		out := make(Sequence, 0, len(syms))
		for i := 0; i < len(syms); {
			if i+1 < len(syms) && syms[i] == m.Left && syms[i+1] == m.Right {
				out = append(out, merged)
				i += 2
			} else {
				out = append(out, syms[i])
				i++
			}
		}
		syms = out
	}

	ids := make([]int, len(syms))
	for i, sym := range syms {
		ids[i] = e.ids[sym]
	}
	return ids
}

func containsPair(syms Sequence, p Pair) bool {
	for i := 0; i+1 < len(syms); i++ {
		if syms[i] == p.Left && syms[i+1] == p.Right {
			return true
		}
	}
	return false
}

// Decode converts token ids back to text by concatenating each token's byte
// string. Unknown ids are silently skipped.
func (e *Encoder) Decode(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		if sym, ok := e.vocab.Bytes(id); ok {
			b.Write(sym)
		}
	}
	return b.String()
}
