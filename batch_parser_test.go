package harmony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseMessagesFromCompletionTokensMatchesManualStreaming covers
// Testable Property 7: batch parsing must equal driving a StreamParser by
// hand over the same tokens.
func TestParseMessagesFromCompletionTokensMatchesManualStreaming(t *testing.T) {
	enc := newTestEncoding(t)
	conv := Conversation{Messages: []Message{
		textMsg(RoleUser, "", "what is the weather"),
		{
			Author:      Author{Role: RoleAssistant},
			Recipient:   "functions.get_weather",
			Channel:     "commentary",
			ContentType: "<|constrain|>json",
			Content:     []Content{{Type: ContentText, Text: `{"location":"Tokyo"}`}},
		},
	}}
	toks, err := enc.RenderConversation(conv, nil)
	require.NoError(t, err)

	batch, err := enc.ParseMessagesFromCompletionTokens(toks, nil)
	require.NoError(t, err)

	p, err := NewStreamParser(enc, nil)
	require.NoError(t, err)
	for _, tok := range toks {
		require.NoError(t, p.Process(tok))
	}
	require.NoError(t, p.ProcessEOS())
	manual := p.Messages()

	require.Equal(t, len(manual), len(batch))
	for i := range manual {
		assert.Equal(t, manual[i].Author, batch[i].Author)
		assert.Equal(t, manual[i].Channel, batch[i].Channel)
		assert.Equal(t, manual[i].Recipient, batch[i].Recipient)
		assert.Equal(t, manual[i].ContentType, batch[i].ContentType)
		assert.Equal(t, manual[i].Content, batch[i].Content)
	}
}

func TestParseMessagesFromCompletionTokensWithExternalRole(t *testing.T) {
	enc := newTestEncoding(t)
	headerAndContent := enc.tok.EncodeWithSpecialTokens("browser.search to=assistant<|channel|>commentary")
	headerAndContent = append(headerAndContent, enc.idMessage)
	headerAndContent = append(headerAndContent, enc.tok.EncodeOrdinary(`{"result":"ok"}`)...)
	headerAndContent = append(headerAndContent, enc.idEnd)

	role := RoleTool
	msgs, err := enc.ParseMessagesFromCompletionTokens(headerAndContent, &role)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleTool, msgs[0].Author.Role)
	assert.Equal(t, "browser.search", msgs[0].Author.Name)
	assert.Equal(t, "assistant", msgs[0].Recipient)
	assert.Equal(t, `{"result":"ok"}`, msgs[0].Content[0].Text)
}

func TestParseMessagesFromCompletionTokensTruncatedHeaderFails(t *testing.T) {
	enc := newTestEncoding(t)
	toks := append([]uint32{enc.idStart}, enc.tok.EncodeWithSpecialTokens("user")...)
	_, err := enc.ParseMessagesFromCompletionTokens(toks, nil)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrTruncatedHeader, perr.Kind)
}
