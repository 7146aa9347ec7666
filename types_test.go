package harmony

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSONStringContent(t *testing.T) {
	msg := Message{
		Author:  Author{Role: RoleUser},
		Content: []Content{{Type: ContentText, Text: "hello"}},
	}
	b, err := json.Marshal(&msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "hello", raw["content"])

	var round Message
	require.NoError(t, json.Unmarshal(b, &round))
	assert.Equal(t, msg, round)
}

func TestMessageJSONListContent(t *testing.T) {
	sys := DefaultSystemContent()
	msg := Message{
		Author:  Author{Role: RoleSystem},
		Content: []Content{{Type: ContentSystem, System: &sys}},
	}
	b, err := json.Marshal(&msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	if _, isString := raw["content"].(string); isString {
		t.Fatalf("expected content to serialize as a list for non-single-text message")
	}

	var round Message
	require.NoError(t, json.Unmarshal(b, &round))
	require.Len(t, round.Content, 1)
	assert.Equal(t, ContentSystem, round.Content[0].Type)
	require.NotNil(t, round.Content[0].System)
	assert.Equal(t, *sys.ModelIdentity, *round.Content[0].System.ModelIdentity)
}

func TestDefaultSystemContent(t *testing.T) {
	sys := DefaultSystemContent()
	require.NotNil(t, sys.ModelIdentity)
	require.NotNil(t, sys.KnowledgeCutoff)
	require.NotNil(t, sys.ReasoningEffort)
	assert.Equal(t, ReasoningMedium, *sys.ReasoningEffort)
	require.NotNil(t, sys.ChannelConfig)
	assert.Equal(t, []string{"analysis", "commentary", "final"}, sys.ChannelConfig.ValidChannels)
	assert.True(t, sys.ChannelConfig.ChannelRequired)
}

func TestBrowserToolNamespaceShape(t *testing.T) {
	ns := BrowserToolNamespace()
	assert.Equal(t, "browser", ns.Name)
	require.Len(t, ns.Tools, 3)
	names := map[string]bool{}
	for _, tool := range ns.Tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Parameters)
	}
	assert.True(t, names["search"])
	assert.True(t, names["open"])
	assert.True(t, names["find"])
}

func TestPythonToolNamespaceHasNoTools(t *testing.T) {
	ns := PythonToolNamespace()
	assert.Equal(t, "python", ns.Name)
	assert.Empty(t, ns.Tools)
	require.NotNil(t, ns.Description)
	assert.Contains(t, *ns.Description, "Jupyter")
}
