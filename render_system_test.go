package harmony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderSystemText(t *testing.T, enc *Encoding, sys SystemContent, opts renderOptions) string {
	t.Helper()
	var out []uint32
	require.NoError(t, enc.renderSystemContent(sys, opts, &out))
	s, err := enc.DecodeUTF8(out)
	require.NoError(t, err)
	return s
}

func TestRenderSystemContentOmitsUnsetSections(t *testing.T) {
	enc := newTestEncoding(t)
	text := renderSystemText(t, enc, SystemContent{}, renderOptions{})
	assert.Empty(t, text)
}

func TestRenderSystemContentIdentityLinesIffSet(t *testing.T) {
	enc := newTestEncoding(t)
	identity := "You are a test model."
	sys := SystemContent{ModelIdentity: &identity}
	text := renderSystemText(t, enc, sys, renderOptions{})
	assert.Contains(t, text, identity)
	assert.NotContains(t, text, "Knowledge cutoff")
	assert.NotContains(t, text, "Current date")
}

func TestRenderSystemContentChannelsSection(t *testing.T) {
	enc := newTestEncoding(t)
	sys := DefaultSystemContent()
	text := renderSystemText(t, enc, sys, renderOptions{})
	assert.Contains(t, text, "# Valid channels: analysis, commentary, final.")
	assert.Contains(t, text, "Channel must be included for every message.")
	assert.NotContains(t, text, "functions")
}

func TestRenderSystemContentFunctionToolsLine(t *testing.T) {
	enc := newTestEncoding(t)
	sys := DefaultSystemContent()
	text := renderSystemText(t, enc, sys, renderOptions{conversationHasFunctionTools: true})
	assert.Contains(t, text, "Calls to these tools must go to the commentary channel: 'functions'.")
}

func TestRenderSystemContentReasoningLine(t *testing.T) {
	enc := newTestEncoding(t)
	high := ReasoningHigh
	sys := SystemContent{ReasoningEffort: &high}
	text := renderSystemText(t, enc, sys, renderOptions{})
	assert.Contains(t, text, "Reasoning: high")
}

func TestRenderSystemContentInvalidToolSchemaFails(t *testing.T) {
	enc := newTestEncoding(t)
	sys := SystemContent{
		Tools: map[string]ToolNamespaceConfig{
			"functions": {
				Name: "functions",
				Tools: []ToolDescription{
					{Name: "broken", Description: "bad schema", Parameters: rawSchema(map[string]any{
						"type": "object",
						"properties": map[string]any{
							"x": map[string]any{"type": "not-a-real-type"},
						},
					})},
				},
			},
		},
	}
	var out []uint32
	err := enc.renderSystemContent(sys, renderOptions{}, &out)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrInvalidToolSchema, rerr.Kind)
}
