package harmony

import (
	"encoding/json"
)

// Role identifies the author class of a message in a Harmony conversation.
// It matches the Harmony prompt format (user, assistant, system, developer, tool).
type Role string

// Well-known roles supported by the Harmony format.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleTool      Role = "tool"
)

// Author holds the message author role and optional name (e.g. a tool id).
type Author struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// ReasoningEffort expresses the desired level of reasoning for the model.
type ReasoningEffort string

// Reasoning effort values.
const (
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// ChannelConfig configures valid channels and whether a channel is required.
type ChannelConfig struct {
	ValidChannels   []string `json:"valid_channels"`
	ChannelRequired bool     `json:"channel_required"`
}

// ToolDescription describes an individual tool and its JSON Schema parameters.
type ToolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	// parsed caches derive from Parameters; kept behind a pointer so copying
	// ToolDescription values does not copy synchronization primitives.
	parsed *toolParsedCache `json:"-"`
}

// ToolNamespaceConfig groups multiple tools under a namespace (e.g. "functions").
type ToolNamespaceConfig struct {
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Tools       []ToolDescription `json:"tools"`
}

// SystemContent encodes system instructions and metadata for the conversation.
type SystemContent struct {
	ModelIdentity         *string                        `json:"model_identity,omitempty"`
	ReasoningEffort       *ReasoningEffort               `json:"reasoning_effort,omitempty"`
	Tools                 map[string]ToolNamespaceConfig `json:"tools,omitempty"`
	ConversationStartDate *string                        `json:"conversation_start_date,omitempty"`
	KnowledgeCutoff       *string                        `json:"knowledge_cutoff,omitempty"`
	ChannelConfig         *ChannelConfig                 `json:"channel_config,omitempty"`
}

// DefaultSystemContent returns the canonical default system content: the
// stock model identity string, medium reasoning effort, a 2024-06 knowledge
// cutoff, and the {analysis, commentary, final; required} channel config.
func DefaultSystemContent() SystemContent {
	identity := "You are ChatGPT, a large language model trained by OpenAI."
	cutoff := "2024-06"
	effort := ReasoningMedium
	return SystemContent{
		ModelIdentity:   &identity,
		KnowledgeCutoff: &cutoff,
		ReasoningEffort: &effort,
		ChannelConfig: &ChannelConfig{
			ValidChannels:   []string{"analysis", "commentary", "final"},
			ChannelRequired: true,
		},
	}
}

// DeveloperContent carries developer instructions and tool declarations.
type DeveloperContent struct {
	Instructions *string                        `json:"instructions,omitempty"`
	Tools        map[string]ToolNamespaceConfig `json:"tools,omitempty"`
}

// ContentType enumerates renderable content kinds in a message.
type ContentType string

// Available content kinds: plain text, system and developer content.
const (
	ContentText      ContentType = "text"
	ContentSystem    ContentType = "system_content"
	ContentDeveloper ContentType = "developer_content"
)

// Content holds a single content item within a Message.
// When Type is text, Text is set; when system or developer, the corresponding
// pointer is populated.
type Content struct {
	Type      ContentType       `json:"type"`
	Text      string            `json:"text,omitempty"`
	System    *SystemContent    `json:"system_content,omitempty"`
	Developer *DeveloperContent `json:"developer_content,omitempty"`
}

// Message represents a single Harmony message. Content is either a string or
// a list of structured Content items in JSON. Author is flattened as role/name.
type Message struct {
	Author      Author    `json:"role"` // Flattened: role + optional name
	Recipient   string    `json:"recipient,omitempty"`
	Content     []Content `json:"content"`
	Channel     string    `json:"channel,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
}

// Conversation is an ordered list of messages.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// FromMessages overwrites the conversation with the given messages.
func (c *Conversation) FromMessages(msgs []Message) {
	c.Messages = append([]Message{}, msgs...)
}

// RenderConversationConfig controls rendering behavior (e.g., analysis dropping).
type RenderConversationConfig struct {
	AutoDropAnalysis bool `json:"auto_drop_analysis"`
}

// DefaultRenderConversationConfig returns {AutoDropAnalysis: true}, the
// canonical default used when RenderConversation is called with a nil config.
func DefaultRenderConversationConfig() RenderConversationConfig {
	return RenderConversationConfig{AutoDropAnalysis: true}
}

// MarshalJSON implements the JSON shape used by the Harmony format, where
// content may be a string or a list of structured items.
func (m *Message) MarshalJSON() ([]byte, error) {
	type raw struct {
		Role        Role   `json:"role"`
		Name        string `json:"name,omitempty"`
		Recipient   string `json:"recipient,omitempty"`
		Content     any    `json:"content"`
		Channel     string `json:"channel,omitempty"`
		ContentType string `json:"content_type,omitempty"`
	}
	r := raw{
		Role:        m.Author.Role,
		Name:        m.Author.Name,
		Recipient:   m.Recipient,
		Channel:     m.Channel,
		ContentType: m.ContentType,
	}
	if len(m.Content) == 1 && m.Content[0].Type == ContentText {
		r.Content = m.Content[0].Text
	} else {
		r.Content = m.Content
	}
	return json.Marshal(r)
}

// UnmarshalJSON accepts either a string or a list for content and populates
// the message accordingly.
func (m *Message) UnmarshalJSON(b []byte) error {
	type raw struct {
		Role        Role            `json:"role"`
		Name        string          `json:"name,omitempty"`
		Recipient   string          `json:"recipient,omitempty"`
		Content     json.RawMessage `json:"content"`
		Channel     string          `json:"channel,omitempty"`
		ContentType string          `json:"content_type,omitempty"`
	}
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	m.Author = Author{Role: r.Role, Name: r.Name}
	m.Recipient = r.Recipient
	m.Channel = r.Channel
	m.ContentType = r.ContentType
	// content can be a string or []Content
	var s string
	if err := json.Unmarshal(r.Content, &s); err == nil {
		m.Content = []Content{{Type: ContentText, Text: s}}
		return nil
	}
	var arr []Content
	if err := json.Unmarshal(r.Content, &arr); err != nil {
		return err
	}
	m.Content = arr
	return nil
}

// BrowserToolNamespace returns the canonical "browser" tool namespace
// fixture: search, open and find tools with fixed JSON-Schema parameter
// shapes, ported from the reference implementation's built-in browser tool.
func BrowserToolNamespace() ToolNamespaceConfig {
	desc := "Tool for browsing.\n" +
		"The `cursor` appears in brackets before each browsing display: `[{cursor}]`.\n" +
		"Cite information from the tool using the following format:\n" +
		"`【{cursor}†L{line_start}(-L{line_end})?】`, for example: `【6†L9-L11】` or `【8†L3】`.\n" +
		"Do not quote more than 10 words directly from the tool output."
	return ToolNamespaceConfig{
		Name:        "browser",
		Description: &desc,
		Tools: []ToolDescription{
			{
				Name:        "search",
				Description: "Searches for information related to `query` and displays `topn` results.",
				Parameters: rawSchema(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query":  map[string]any{"type": "string"},
						"topn":   map[string]any{"type": "number", "default": 10},
						"source": map[string]any{"type": []any{"string", "null"}},
					},
					"required": []any{"query"},
				}),
			},
			{
				Name: "open",
				Description: "Opens the link `id` from the page indicated by `cursor` starting at line number `loc`, " +
					"showing `num_lines` lines. Valid link ids are displayed with the formatting: `【{id}†.*】`. " +
					"If `cursor` is not provided, the most recent page is implied.",
				Parameters: rawSchema(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        map[string]any{"type": []any{"number", "string"}, "default": -1},
						"cursor":    map[string]any{"type": "number", "default": -1},
						"loc":       map[string]any{"type": "number", "default": 0},
						"num_lines": map[string]any{"type": "number", "default": -1},
					},
				}),
			},
			{
				Name:        "find",
				Description: "Finds exact matches of `pattern` in the current page, or the page given by `cursor`.",
				Parameters: rawSchema(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"pattern": map[string]any{"type": "string"},
						"cursor":  map[string]any{"type": "number", "default": -1},
					},
					"required": []any{"pattern"},
				}),
			},
		},
	}
}

// PythonToolNamespace returns the canonical "python" tool namespace fixture:
// a free-text description with no declared tools, so its section renders as
// plain lines rather than a "namespace { ... }" block (§4.5).
func PythonToolNamespace() ToolNamespaceConfig {
	desc := "Use this tool to execute Python code in your chain of thought. The code will not be shown to the user.\n" +
		"This tool should be used for internal reasoning, but not for code that is intended to be visible to the user, " +
		"e.g. when creating plots, tables, or files.\n" +
		"When you send a message containing Python code to python, it will be executed in a stateful Jupyter notebook " +
		"environment. python will respond with the output of the execution or time out after 120.0 seconds."
	return ToolNamespaceConfig{Name: "python", Description: &desc}
}

func rawSchema(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
