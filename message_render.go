package harmony

import (
	"fmt"
	"strings"
)

// renderOptions carries per-render-call state threaded down from the
// conversation renderer. It must never be cached on *Encoding — see spec §5
// and §9 on cross-call state leakage.
type renderOptions struct {
	conversationHasFunctionTools bool
}

// RenderMessage encodes a single message into Harmony tokens using the
// canonical envelope: <|start|> header <|message|> body terminator (§4.2).
func (e *Encoding) RenderMessage(msg Message) ([]uint32, error) {
	var out []uint32
	if renderPresizeEnabled() {
		capHint := estimateMessageSize(msg)/3 + 16
		if capHint > 1<<20 {
			capHint = 1 << 20
		}
		out = make([]uint32, 0, capHint)
	}
	if err := e.renderMessageInto(msg, renderOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// renderMessageInto appends the rendered message tokens into out.
func (e *Encoding) renderMessageInto(msg Message, opts renderOptions, out *[]uint32) error {
	*out = append(*out, e.idStart)

	if msg.Author.Role == RoleTool && msg.Author.Name == "" {
		return newRenderErr(ErrTypeRoleMismatch, "tool messages must have a non-empty author name")
	}

	needsRecipient := msg.Recipient != "" && msg.Recipient != "all"
	e.renderHeaderText(msg, needsRecipient, out)

	if msg.Channel != "" {
		*out = append(*out, e.idChannel)
		e.renderText(msg.Channel, out)
	}

	if msg.ContentType != "" {
		e.renderContentType(msg.ContentType, out)
	}

	*out = append(*out, e.idMessage)

	for _, c := range msg.Content {
		switch c.Type {
		case ContentText:
			e.renderText(c.Text, out)
		case ContentSystem:
			if c.System == nil {
				return newRenderErr(ErrTypeRoleMismatch, "nil SystemContent")
			}
			if msg.Author.Role != RoleSystem {
				return newRenderErr(ErrTypeRoleMismatch, "SystemContent may only appear in a system message")
			}
			if err := e.renderSystemContent(*c.System, opts, out); err != nil {
				return err
			}
		case ContentDeveloper:
			if c.Developer == nil {
				return newRenderErr(ErrTypeRoleMismatch, "nil DeveloperContent")
			}
			if msg.Author.Role != RoleDeveloper {
				return newRenderErr(ErrTypeRoleMismatch, "DeveloperContent may only appear in a developer message")
			}
			if err := e.renderDeveloperContent(*c.Developer, out); err != nil {
				return err
			}
		default:
			return newRenderErr(ErrTypeRoleMismatch, fmt.Sprintf("unknown content type: %v", c.Type))
		}
	}

	// Terminator selection (spec §4.2): assistant-to-tool uses <|call|>,
	// everything else <|end|>.
	if msg.Author.Role == RoleAssistant && needsRecipient {
		*out = append(*out, e.idCall)
	} else {
		*out = append(*out, e.idEnd)
	}
	return nil
}

// renderHeaderText emits the role/name/recipient portion of the header
// (§4.2.1), as a single ordinary-encoded text run.
func (e *Encoding) renderHeaderText(msg Message, needsRecipient bool, out *[]uint32) {
	if msg.Author.Role == RoleTool {
		if needsRecipient {
			e.renderText(msg.Author.Name+" to="+msg.Recipient, out)
		} else {
			e.renderText(msg.Author.Name, out)
		}
		return
	}
	if msg.Author.Name == "" && !needsRecipient {
		e.renderText(string(msg.Author.Role), out)
		return
	}
	header := string(msg.Author.Role)
	if msg.Author.Name != "" {
		header += ":" + msg.Author.Name
	}
	if needsRecipient {
		header += " to=" + msg.Recipient
	}
	e.renderText(header, out)
}

// renderContentType emits the content-type segment. When the content type
// begins with the ConstrainedFormat sentinel literal, the sentinel is
// emitted as a single special token and the remainder as text (§4.2.1).
func (e *Encoding) renderContentType(ct string, out *[]uint32) {
	constrain := e.literal[TokConstrainedFormat]
	if strings.HasPrefix(ct, constrain) {
		e.renderText(" ", out)
		*out = append(*out, e.idConstrain)
		if rest := strings.TrimPrefix(ct, constrain); rest != "" {
			e.renderText(rest, out)
		}
		return
	}
	e.renderText(" "+ct, out)
}

func estimateMessageSize(msg Message) int {
	total := len(msg.Author.Name) + len(msg.Channel) + len(msg.ContentType)
	if msg.Recipient != "" && msg.Recipient != "all" {
		total += len(msg.Recipient)
	}
	for _, c := range msg.Content {
		switch c.Type {
		case ContentText:
			total += len(c.Text)
		case ContentSystem:
			if c.System != nil {
				total += estimateSystemContentSize(c.System)
			}
		case ContentDeveloper:
			if c.Developer != nil {
				total += estimateDeveloperContentSize(c.Developer)
			}
		}
	}
	return total
}

func estimateSystemContentSize(sys *SystemContent) int {
	total := 0
	if sys.ModelIdentity != nil {
		total += len(*sys.ModelIdentity)
	}
	if sys.ReasoningEffort != nil {
		total += len(string(*sys.ReasoningEffort))
	}
	if sys.ConversationStartDate != nil {
		total += len(*sys.ConversationStartDate)
	}
	if sys.KnowledgeCutoff != nil {
		total += len(*sys.KnowledgeCutoff)
	}
	if sys.ChannelConfig != nil {
		total += estimateChannelConfigSize(sys.ChannelConfig)
	}
	total += estimateToolsMapSize(sys.Tools)
	return total
}

func estimateDeveloperContentSize(dev *DeveloperContent) int {
	total := 0
	if dev.Instructions != nil {
		total += len(*dev.Instructions)
	}
	total += estimateToolsMapSize(dev.Tools)
	return total
}

func estimateChannelConfigSize(cfg *ChannelConfig) int {
	total := 0
	for _, ch := range cfg.ValidChannels {
		total += len(ch)
	}
	if cfg.ChannelRequired {
		total++
	}
	return total
}

func estimateToolsMapSize(tools map[string]ToolNamespaceConfig) int {
	total := 0
	for _, ns := range tools {
		total += len(ns.Name)
		if ns.Description != nil {
			total += len(*ns.Description)
		}
		for i := range ns.Tools {
			td := &ns.Tools[i]
			total += len(td.Name) + len(td.Description) + len(td.Parameters)
		}
	}
	return total
}
