package harmony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMessageSimpleUser(t *testing.T) {
	enc := newTestEncoding(t)
	msg := Message{
		Author:  Author{Role: RoleUser},
		Content: []Content{{Type: ContentText, Text: "hi there"}},
	}
	toks, err := enc.RenderMessage(msg)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, enc.idStart, toks[0])
	assert.Equal(t, enc.idEnd, toks[len(toks)-1])

	decoded, err := enc.DecodeUTF8(toks[1 : len(toks)-1])
	require.NoError(t, err)
	assert.Contains(t, decoded, "user")
	assert.Contains(t, decoded, "hi there")
}

// TestRenderMessageTerminatorSelection covers Testable Property 4.
func TestRenderMessageTerminatorSelection(t *testing.T) {
	enc := newTestEncoding(t)

	withRecipient := Message{
		Author:    Author{Role: RoleAssistant},
		Recipient: "functions.lookup",
		Content:   []Content{{Type: ContentText, Text: "{}"}},
	}
	toks, err := enc.RenderMessage(withRecipient)
	require.NoError(t, err)
	assert.Equal(t, enc.idCall, toks[len(toks)-1])

	withoutRecipient := Message{
		Author:  Author{Role: RoleAssistant},
		Content: []Content{{Type: ContentText, Text: "hello"}},
	}
	toks, err = enc.RenderMessage(withoutRecipient)
	require.NoError(t, err)
	assert.Equal(t, enc.idEnd, toks[len(toks)-1])

	recipientAll := Message{
		Author:    Author{Role: RoleAssistant},
		Recipient: "all",
		Content:   []Content{{Type: ContentText, Text: "hello"}},
	}
	toks, err = enc.RenderMessage(recipientAll)
	require.NoError(t, err)
	assert.Equal(t, enc.idEnd, toks[len(toks)-1], "recipient == all must not trigger the tool-call terminator")
}

func TestRenderMessageToolWithoutNameFails(t *testing.T) {
	enc := newTestEncoding(t)
	msg := Message{
		Author:  Author{Role: RoleTool},
		Content: []Content{{Type: ContentText, Text: "result"}},
	}
	_, err := enc.RenderMessage(msg)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrTypeRoleMismatch, rerr.Kind)
}

func TestRenderMessageSystemContentWrongRoleFails(t *testing.T) {
	enc := newTestEncoding(t)
	sys := DefaultSystemContent()
	msg := Message{
		Author:  Author{Role: RoleUser},
		Content: []Content{{Type: ContentSystem, System: &sys}},
	}
	_, err := enc.RenderMessage(msg)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrTypeRoleMismatch, rerr.Kind)
}

func TestRenderMessageDeveloperContentWrongRoleFails(t *testing.T) {
	enc := newTestEncoding(t)
	instr := "be nice"
	dev := DeveloperContent{Instructions: &instr}
	msg := Message{
		Author:  Author{Role: RoleAssistant},
		Content: []Content{{Type: ContentDeveloper, Developer: &dev}},
	}
	_, err := enc.RenderMessage(msg)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrTypeRoleMismatch, rerr.Kind)
}

func TestRenderMessageConstrainedContentType(t *testing.T) {
	enc := newTestEncoding(t)
	msg := Message{
		Author:      Author{Role: RoleAssistant},
		Recipient:   "functions.get_weather",
		Channel:     "commentary",
		ContentType: "<|constrain|>json",
		Content:     []Content{{Type: ContentText, Text: `{"location": "Tokyo"}`}},
	}
	toks, err := enc.RenderMessage(msg)
	require.NoError(t, err)

	foundConstrain := false
	for _, tok := range toks {
		if tok == enc.idConstrain {
			foundConstrain = true
		}
	}
	assert.True(t, foundConstrain, "constrain sentinel must be emitted as a single special token")
}

func TestRenderMessageToolHeaderFormat(t *testing.T) {
	enc := newTestEncoding(t)
	msg := Message{
		Author:    Author{Role: RoleTool, Name: "browser.search"},
		Recipient: "assistant",
		Channel:   "commentary",
		Content:   []Content{{Type: ContentText, Text: "results"}},
	}
	toks, err := enc.RenderMessage(msg)
	require.NoError(t, err)
	decoded, err := enc.DecodeUTF8(toks)
	require.NoError(t, err)
	assert.Contains(t, decoded, "browser.search")
	assert.Contains(t, decoded, "to=assistant")
}
