// Package fixturetok is a hermetic, deterministic harmony.Tokenizer used
// only by tests: it performs no merges and no I/O. Ordinary text is
// encoded one byte per token (tokens 0-255), so any multi-byte UTF-8 rune
// necessarily straddles multiple tokens — exercising the streaming
// parser's incremental UTF-8 reassembly without depending on a real BPE
// vocabulary.
package fixturetok

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tokenizer is a byte-per-token fixture tokenizer plus the Harmony
// special-token band.
type Tokenizer struct {
	specialEncode map[string]uint32
	specialDecode map[uint32]string
}

// New returns a ready-to-use fixture tokenizer.
func New() *Tokenizer {
	enc, dec := harmonySpecials()
	return &Tokenizer{specialEncode: enc, specialDecode: dec}
}

// EncodeOrdinary encodes text with no special-token interpretation, one
// token per byte.
func (t *Tokenizer) EncodeOrdinary(text string) []uint32 {
	return encodeBytes(text)
}

// EncodeWithSpecialTokens encodes text, recognizing every Harmony special
// token sentinel that appears in it.
func (t *Tokenizer) EncodeWithSpecialTokens(text string) []uint32 {
	return t.encodeSplicing(text, nil)
}

// Encode encodes text, treating only the sentinels in allowedSpecial as
// special.
func (t *Tokenizer) Encode(text string, allowedSpecial map[string]struct{}) ([]uint32, error) {
	return t.encodeSplicing(text, allowedSpecial), nil
}

// DecodeBytes decodes tokens into raw bytes without a UTF-8 check.
func (t *Tokenizer) DecodeBytes(tokens []uint32) ([]byte, error) {
	out := make([]byte, 0, len(tokens))
	for _, tok := range tokens {
		if lit, ok := t.specialDecode[tok]; ok {
			out = append(out, lit...)
			continue
		}
		if tok > 255 {
			return nil, fmt.Errorf("fixturetok: unknown token %d", tok)
		}
		out = append(out, byte(tok))
	}
	return out, nil
}

// DecodeUTF8 decodes tokens into a string, failing if the result isn't
// valid UTF-8.
func (t *Tokenizer) DecodeUTF8(tokens []uint32) (string, error) {
	b, err := t.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("fixturetok: decoded bytes are not valid UTF-8")
	}
	return string(b), nil
}

// SpecialTokens returns the set of special-token sentinel strings this
// tokenizer recognizes.
func (t *Tokenizer) SpecialTokens() map[string]struct{} {
	out := make(map[string]struct{}, len(t.specialEncode))
	for lit := range t.specialEncode {
		out[lit] = struct{}{}
	}
	return out
}

// IsSpecialToken reports whether rank denotes a special token.
func (t *Tokenizer) IsSpecialToken(rank uint32) bool {
	_, ok := t.specialDecode[rank]
	return ok
}

func encodeBytes(s string) []uint32 {
	if s == "" {
		return nil
	}
	out := make([]uint32, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint32(s[i])
	}
	return out
}

func (t *Tokenizer) encodeSplicing(text string, allowed map[string]struct{}) []uint32 {
	var out []uint32
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "<|")
		if start == -1 {
			out = append(out, encodeBytes(text[i:])...)
			break
		}
		start += i
		closeIdx := strings.Index(text[start:], "|>")
		if closeIdx == -1 {
			out = append(out, encodeBytes(text[i:])...)
			break
		}
		end := start + closeIdx + 2
		literal := text[start:end]
		rank, known := t.specialEncode[literal]
		if known && allowed != nil {
			if _, ok := allowed[literal]; !ok {
				known = false
			}
		}
		if known {
			if start > i {
				out = append(out, encodeBytes(text[i:start])...)
			}
			out = append(out, rank)
			i = end
			continue
		}
		out = append(out, encodeBytes(text[i:start+2])...)
		i = start + 2
	}
	return out
}
