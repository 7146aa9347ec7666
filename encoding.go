package harmony

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// EncodingName identifies a supported Harmony encoding.
type EncodingName string

// Supported encoding values.
const (
	HarmonyGptOss EncodingName = "HarmonyGptOss"
)

// Context-size constants for HarmonyGptOss (spec §3).
const (
	nCtx             = 1 << 20
	maxActionLength  = 1 << 19
	maxMessageTokens = nCtx - maxActionLength
)

// harmonyGptOssSentinels binds FormattingTokens to their literal wire
// sentinels for the HarmonyGptOss encoding. MetaSep and MetaEnd have no
// entry.
var harmonyGptOssSentinels = map[FormattingToken]string{
	TokStart:                     "<|start|>",
	TokMessage:                   "<|message|>",
	TokEndMessage:                "<|end|>",
	TokEndMessageDoneSampling:    "<|return|>",
	TokEndMessageAssistantToTool: "<|call|>",
	TokRefusal:                   "<|refusal|>",
	TokConstrainedFormat:         "<|constrain|>",
	TokChannel:                   "<|channel|>",
	TokBeginUntrusted:            "<|untrusted|>",
	TokEndUntrusted:              "<|end_untrusted|>",
}

// singleTokenSentinels lists the FormattingTokens that render/parse actually
// emit as ranks (§3, §4.2, §4.8). Load validates only these against the
// bound tokenizer's vocabulary — mirroring the reference encoder, which
// checks a sentinel's token count lazily, the first time it is rendered,
// rather than for every entry in the abstract enum. Refusal, BeginUntrusted
// and EndUntrusted are part of the sentinel vocabulary for literal-text
// purposes (e.g. decode of a reserved band) but are never rendered, and the
// o200k_harmony vocabulary doesn't register them as single tokens at all.
var singleTokenSentinels = []FormattingToken{
	TokStart,
	TokMessage,
	TokEndMessage,
	TokEndMessageDoneSampling,
	TokEndMessageAssistantToTool,
	TokChannel,
	TokConstrainedFormat,
}

// Encoding binds a Tokenizer to the Harmony formatting-token mapping, stop
// sets and message-budget constants, and provides the render/parse surface.
type Encoding struct {
	name string
	tok  Tokenizer

	literal map[FormattingToken]string
	ids     map[FormattingToken]uint32

	idStart     uint32
	idMessage   uint32
	idEnd       uint32
	idReturn    uint32
	idCall      uint32
	idConstrain uint32
	idChannel   uint32

	stopAll       map[uint32]struct{}
	stopAssistant map[uint32]struct{}

	nCtx             int
	maxMessageTokens int
	maxActionLength  int

	builderPool sync.Pool
	bufferPool  sync.Pool
}

// LoadEncoding binds name to tok, validating that every sentinel actually
// rendered or parsed (singleTokenSentinels) encodes to exactly one token
// (spec §3: "Load must fail if a mapped sentinel does not encode to exactly
// one token"). Only HarmonyGptOss is defined. The tokenizer is an external
// collaborator (spec §1/§4.1) and is supplied by the caller — see the
// bpetoken package for a production implementation.
func LoadEncoding(name EncodingName, tok Tokenizer) (*Encoding, error) {
	if name != HarmonyGptOss {
		return nil, fmt.Errorf("harmony: unsupported encoding %q", name)
	}
	if tok == nil {
		return nil, fmt.Errorf("harmony: LoadEncoding: nil tokenizer")
	}

	ids := make(map[FormattingToken]uint32, len(singleTokenSentinels))
	for _, ft := range singleTokenSentinels {
		literal := harmonyGptOssSentinels[ft]
		toks := tok.EncodeWithSpecialTokens(literal)
		if len(toks) != 1 {
			return nil, &RenderError{
				Kind: ErrInvalidSentinelEncoding,
				Msg:  fmt.Sprintf("formatting token %s (%q) encodes to %d tokens, want 1", ft, literal, len(toks)),
			}
		}
		ids[ft] = toks[0]
	}

	enc := &Encoding{
		name:             string(name),
		tok:              tok,
		literal:          harmonyGptOssSentinels,
		ids:              ids,
		idStart:          ids[TokStart],
		idMessage:        ids[TokMessage],
		idEnd:            ids[TokEndMessage],
		idReturn:         ids[TokEndMessageDoneSampling],
		idCall:           ids[TokEndMessageAssistantToTool],
		idConstrain:      ids[TokConstrainedFormat],
		idChannel:        ids[TokChannel],
		nCtx:             nCtx,
		maxActionLength:  maxActionLength,
		maxMessageTokens: maxMessageTokens,
		builderPool:      sync.Pool{New: func() any { return &strings.Builder{} }},
		bufferPool:       sync.Pool{New: func() any { return &bytes.Buffer{} }},
	}
	enc.stopAll = map[uint32]struct{}{enc.idReturn: {}, enc.idCall: {}, enc.idEnd: {}}
	enc.stopAssistant = map[uint32]struct{}{enc.idReturn: {}, enc.idCall: {}}
	return enc, nil
}

// Name returns the encoding's canonical name.
func (e *Encoding) Name() string { return e.name }

// NCtx returns the encoding's context-length budget in tokens.
func (e *Encoding) NCtx() int { return e.nCtx }

// MaxMessageTokens returns the per-message token budget (NCtx - MaxActionLength).
func (e *Encoding) MaxMessageTokens() int { return e.maxMessageTokens }

// MaxActionLength returns the maximum token length of a single tool action.
func (e *Encoding) MaxActionLength() int { return e.maxActionLength }

// StopTokens returns the set of tokens that terminate any message.
func (e *Encoding) StopTokens() []uint32 {
	out := make([]uint32, 0, len(e.stopAll))
	for t := range e.stopAll {
		out = append(out, t)
	}
	return out
}

// StopTokensForAssistantActions returns the stop tokens used when streaming
// an assistant action (tool call), i.e. excluding the plain <|end|> marker.
func (e *Encoding) StopTokensForAssistantActions() []uint32 {
	out := make([]uint32, 0, len(e.stopAssistant))
	for t := range e.stopAssistant {
		out = append(out, t)
	}
	return out
}

// DecodeUTF8 decodes tokens into a UTF-8 string via the bound tokenizer.
func (e *Encoding) DecodeUTF8(tokens []uint32) (string, error) {
	return e.tok.DecodeUTF8(tokens)
}

// DecodeBytes decodes tokens into raw bytes via the bound tokenizer.
func (e *Encoding) DecodeBytes(tokens []uint32) ([]byte, error) {
	return e.tok.DecodeBytes(tokens)
}

func (e *Encoding) renderText(text string, out *[]uint32) {
	*out = append(*out, e.tok.EncodeOrdinary(text)...)
}

func (e *Encoding) acquireBuilder() *strings.Builder {
	if v := e.builderPool.Get(); v != nil {
		b := v.(*strings.Builder)
		b.Reset()
		return b
	}
	return &strings.Builder{}
}

func (e *Encoding) releaseBuilder(b *strings.Builder) {
	b.Reset()
	e.builderPool.Put(b)
}

func (e *Encoding) acquireBuffer() *bytes.Buffer {
	if v := e.bufferPool.Get(); v != nil {
		buf := v.(*bytes.Buffer)
		buf.Reset()
		return buf
	}
	return &bytes.Buffer{}
}

func (e *Encoding) releaseBuffer(buf *bytes.Buffer) {
	buf.Reset()
	e.bufferPool.Put(buf)
}

func (e *Encoding) bufferStringAndRelease(buf *bytes.Buffer) string {
	res := string(append([]byte(nil), buf.Bytes()...))
	e.releaseBuffer(buf)
	return res
}
