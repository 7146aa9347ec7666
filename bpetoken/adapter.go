// Package bpetoken is the production harmony.Tokenizer implementation. It
// delegates ordinary BPE merges and vocabulary loading/caching entirely to
// github.com/pkoukk/tiktoken-go's o200k_base encoding, and layers the
// Harmony formatting/reserved special tokens on top — the BPE engine and
// vocab loader themselves are explicitly out of scope for the harmony
// package (see SPEC_FULL.md §1).
package bpetoken

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Adapter implements harmony.Tokenizer over a tiktoken-go encoding plus
// the Harmony special-token band.
type Adapter struct {
	tke           *tiktoken.Tiktoken
	specialEncode map[string]uint32
	specialDecode map[uint32]string
}

// New loads the o200k_base vocabulary (tiktoken-go handles download and
// on-disk caching) and layers the Harmony special tokens on top.
func New() (*Adapter, error) {
	tke, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, fmt.Errorf("bpetoken: loading o200k_base: %w", err)
	}
	enc, dec := harmonySpecials()
	return &Adapter{tke: tke, specialEncode: enc, specialDecode: dec}, nil
}

// EncodeOrdinary encodes text with no special-token interpretation.
func (a *Adapter) EncodeOrdinary(text string) []uint32 {
	return a.encodeOrdinary(text)
}

// EncodeWithSpecialTokens encodes text, recognizing every Harmony special
// token sentinel that appears in it.
func (a *Adapter) EncodeWithSpecialTokens(text string) []uint32 {
	return a.encodeSplicing(text, nil)
}

// Encode encodes text, treating only the sentinels in allowedSpecial as
// special; any other "<|...|>"-shaped substring is encoded as ordinary
// text.
func (a *Adapter) Encode(text string, allowedSpecial map[string]struct{}) ([]uint32, error) {
	return a.encodeSplicing(text, allowedSpecial), nil
}

// DecodeBytes decodes tokens into raw bytes without a UTF-8 check.
func (a *Adapter) DecodeBytes(tokens []uint32) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(tokens) {
		if lit, ok := a.specialDecode[tokens[i]]; ok {
			out = append(out, lit...)
			i++
			continue
		}
		j := i
		ints := make([]int, 0, len(tokens)-i)
		for j < len(tokens) {
			if _, ok := a.specialDecode[tokens[j]]; ok {
				break
			}
			ints = append(ints, int(tokens[j]))
			j++
		}
		out = append(out, []byte(a.tke.Decode(ints))...)
		i = j
	}
	return out, nil
}

// DecodeUTF8 decodes tokens into a string, failing if the result isn't
// valid UTF-8.
func (a *Adapter) DecodeUTF8(tokens []uint32) (string, error) {
	b, err := a.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("bpetoken: decoded bytes are not valid UTF-8")
	}
	return string(b), nil
}

// SpecialTokens returns the set of special-token sentinel strings this
// tokenizer recognizes.
func (a *Adapter) SpecialTokens() map[string]struct{} {
	out := make(map[string]struct{}, len(a.specialEncode))
	for lit := range a.specialEncode {
		out[lit] = struct{}{}
	}
	return out
}

// IsSpecialToken reports whether rank denotes a special token.
func (a *Adapter) IsSpecialToken(rank uint32) bool {
	_, ok := a.specialDecode[rank]
	return ok
}

func (a *Adapter) encodeOrdinary(s string) []uint32 {
	if s == "" {
		return nil
	}
	ints := a.tke.Encode(s, nil, nil)
	out := make([]uint32, len(ints))
	for i, v := range ints {
		out[i] = uint32(v)
	}
	return out
}

// encodeSplicing scans text for "<|...|>"-shaped runs, emitting a single
// special token for any that are both known and (when allowed is
// non-nil) present in allowed, and ordinary-encoding everything else,
// including unknown or disallowed sentinel-shaped text.
func (a *Adapter) encodeSplicing(text string, allowed map[string]struct{}) []uint32 {
	var out []uint32
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "<|")
		if start == -1 {
			out = append(out, a.encodeOrdinary(text[i:])...)
			break
		}
		start += i
		closeIdx := strings.Index(text[start:], "|>")
		if closeIdx == -1 {
			out = append(out, a.encodeOrdinary(text[i:])...)
			break
		}
		end := start + closeIdx + 2
		literal := text[start:end]
		rank, known := a.specialEncode[literal]
		if known {
			if allowed != nil {
				if _, ok := allowed[literal]; !ok {
					known = false
				}
			}
		}
		if known {
			if start > i {
				out = append(out, a.encodeOrdinary(text[i:start])...)
			}
			out = append(out, rank)
			i = end
			continue
		}
		out = append(out, a.encodeOrdinary(text[i:start+2])...)
		i = start + 2
	}
	return out
}
