package harmony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParserExpectStartRejectsNonStartToken(t *testing.T) {
	enc := newTestEncoding(t)
	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	err = p.Process(enc.idMessage)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrUnexpectedToken, perr.Kind)
}

func TestStreamParserExpectStartEOSIsNoop(t *testing.T) {
	enc := newTestEncoding(t)
	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	assert.NoError(t, p.ProcessEOS())
	assert.Empty(t, p.Messages())
}

func TestStreamParserHeaderEOSIsTruncated(t *testing.T) {
	enc := newTestEncoding(t)
	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	require.NoError(t, p.Process(enc.idStart))
	for _, tok := range enc.tok.EncodeWithSpecialTokens("user") {
		require.NoError(t, p.Process(tok))
	}
	err = p.ProcessEOS()
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrTruncatedHeader, perr.Kind)
}

func TestStreamParserRoundTripsRenderedMessage(t *testing.T) {
	enc := newTestEncoding(t)
	msg := Message{
		Author:  Author{Role: RoleAssistant},
		Channel: "final",
		Content: []Content{{Type: ContentText, Text: "hello there"}},
	}
	toks, err := enc.RenderMessage(msg)
	require.NoError(t, err)

	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	for _, tok := range toks {
		require.NoError(t, p.Process(tok))
	}
	require.NoError(t, p.ProcessEOS())

	got := p.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, RoleAssistant, got[0].Author.Role)
	assert.Equal(t, "final", got[0].Channel)
	require.Len(t, got[0].Content, 1)
	assert.Equal(t, "hello there", got[0].Content[0].Text)
}

// TestStreamParserUTF8Reassembly covers Testable Property 8: a multi-byte
// rune split across tokens must not surface as a delta until every byte
// that composes it has arrived.
func TestStreamParserUTF8Reassembly(t *testing.T) {
	enc := newTestEncoding(t)
	text := "café 世界" // "café 世界" — mixes 2-byte and 3-byte runes
	contentToks := enc.tok.EncodeOrdinary(text)
	require.Greater(t, len(contentToks), len([]rune(text)), "fixturetok must split multi-byte runes across tokens")

	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	require.NoError(t, p.Process(enc.idStart))
	for _, tok := range enc.tok.EncodeWithSpecialTokens("assistant") {
		require.NoError(t, p.Process(tok))
	}
	require.NoError(t, p.Process(enc.idMessage))

	var reassembled string
	for _, tok := range contentToks {
		require.NoError(t, p.Process(tok))
		reassembled += p.LastContentDelta()
		assert.True(t, len(p.CurrentContent()) <= len(text))
	}
	assert.Equal(t, text, reassembled, "deltas concatenated must equal the original text")
	assert.Equal(t, text, p.CurrentContent())

	require.NoError(t, p.Process(enc.idEnd))
	got := p.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, text, got[0].Content[0].Text)
}

func TestStreamParserExternalRolePrimesHeaderState(t *testing.T) {
	enc := newTestEncoding(t)
	role := RoleTool
	p, err := NewStreamParser(enc, &role)
	require.NoError(t, err)
	assert.Equal(t, &role, p.CurrentRole())

	for _, tok := range enc.tok.EncodeWithSpecialTokens("browser.search to=assistant") {
		require.NoError(t, p.Process(tok))
	}
	require.NoError(t, p.Process(enc.idMessage))
	assert.Equal(t, RoleTool, *p.CurrentRole())
	assert.Equal(t, "assistant", p.CurrentRecipient())
}

func TestStreamParserStopTokenWithoutMessageIsFatal(t *testing.T) {
	enc := newTestEncoding(t)
	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	require.NoError(t, p.Process(enc.idStart))
	for _, tok := range enc.tok.EncodeWithSpecialTokens("assistant") {
		require.NoError(t, p.Process(tok))
	}
	require.NoError(t, p.Process(enc.idMessage))
	require.NoError(t, p.Process(enc.idEnd))

	err = p.Process(enc.idEnd)
	require.Error(t, err)
}

func TestStreamParserStateJSON(t *testing.T) {
	enc := newTestEncoding(t)
	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	s, err := p.StateJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"ExpectStart"}`, s)
}
