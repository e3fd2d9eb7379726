package tokenizer

import (
	"encoding/json"
	"io"
	"os"
	"strings"
)

// WriteTokenizerJSON writes the trained model in Hugging Face tokenizers
// JSON format: a ByteLevel BPE model whose vocab keys use the GPT-2
// byte-to-unicode table, plus the split pattern as a pre-tokenizer stage and
// the special tokens as added_tokens. Persistence is a caller concern; the
// trainer itself never touches this format.
func WriteTokenizerJSON(w io.Writer, vocab *Vocabulary, merges []Pair, pattern string) error {
	if pattern == "" {
		pattern = GPT2Pattern
	}

	encoder := buildByteEncoder()

	vocabJSON := make(map[string]int, vocab.Len())
	for id, sym := range vocab.symbols {
		if vocab.IsSpecial(id) {
			continue
		}
		token := encodeTokenBytes(encoder, []byte(sym))
		if _, ok := vocabJSON[token]; !ok {
			vocabJSON[token] = id
		}
	}

	mergesJSON := make([]string, 0, len(merges))
	for _, m := range merges {
		left := encodeTokenBytes(encoder, []byte(m.Left))
		right := encodeTokenBytes(encoder, []byte(m.Right))
		mergesJSON = append(mergesJSON, left+" "+right)
	}

	addedTokens := make([]any, 0, len(vocab.Specials()))
	for id, sym := range vocab.symbols {
		if !vocab.IsSpecial(id) {
			continue
		}
		addedTokens = append(addedTokens, map[string]any{
			"id":          id,
			"content":     sym,
			"single_word": false,
			"lstrip":      false,
			"rstrip":      false,
			"normalized":  false,
			"special":     true,
		})
	}

	preTokenizer := map[string]any{
		"type": "Sequence",
		"pretokenizers": []any{
			map[string]any{
				"type":     "Split",
				"pattern":  map[string]any{"Regex": pattern},
				"behavior": "Isolated",
				"invert":   false,
			},
			map[string]any{
				"type":             "ByteLevel",
				"add_prefix_space": false,
				"trim_offsets":     false,
				"use_regex":        false,
			},
		},
	}

	model := map[string]any{
		"type":                      "BPE",
		"dropout":                   nil,
		"unk_token":                 nil,
		"continuing_subword_prefix": "",
		"end_of_word_suffix":        "",
		"vocab":                     vocabJSON,
		"merges":                    mergesJSON,
		"fuse_unk":                  false,
		"byte_fallback":             false,
	}

	tokenizerJSON := map[string]any{
		"version":        "1.0",
		"truncation":     nil,
		"padding":        nil,
		"added_tokens":   addedTokens,
		"normalizer":     nil,
		"pre_tokenizer":  preTokenizer,
		"post_processor": nil,
		"decoder": map[string]any{
			"type":             "ByteLevel",
			"add_prefix_space": false,
			"trim_offsets":     false,
		},
		"model": model,
	}

	encoded, err := json.MarshalIndent(tokenizerJSON, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	_, err = w.Write(encoded)
	return err
}

// SaveTokenizerJSON writes the model to path via WriteTokenizerJSON.
func SaveTokenizerJSON(path string, vocab *Vocabulary, merges []Pair, pattern string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTokenizerJSON(f, vocab, merges, pattern); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// buildByteEncoder returns the GPT-2 byte-to-unicode table: printable bytes
// map to themselves, the rest to code points from 256 up, so every token
// byte string has a printable JSON representation.
func buildByteEncoder() [256]rune {
	var bs []int
	for i := 33; i <= 126; i++ {
		bs = append(bs, i)
	}
	for i := 161; i <= 172; i++ {
		bs = append(bs, i)
	}
	for i := 174; i <= 255; i++ {
		bs = append(bs, i)
	}

	var used [256]bool
	for _, b := range bs {
		used[b] = true
	}

	cs := make([]int, len(bs))
	copy(cs, bs)
	n := 0
	for b := 0; b < 256; b++ {
		if !used[b] {
			bs = append(bs, b)
			cs = append(cs, 256+n)
			n++
		}
	}

	var encoder [256]rune
	for i, b := range bs {
		encoder[byte(b)] = rune(cs[i])
	}
	return encoder
}

func encodeTokenBytes(encoder [256]rune, data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, v := range data {
		b.WriteRune(encoder[v])
	}
	return b.String()
}
