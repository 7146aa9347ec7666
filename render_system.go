package harmony

import "strings"

// renderSystemContent renders the system block template (§4.3): identity,
// reasoning, tools and channels sections, blank-line joined, empty sections
// omitted.
func (e *Encoding) renderSystemContent(sys SystemContent, opts renderOptions, out *[]uint32) error {
	body := e.acquireBuilder()
	if sz := estimateSystemContentSize(&sys); sz > 0 {
		if sz > 1<<18 {
			sz = 1 << 18
		}
		body.Grow(sz*2 + 128)
	}
	addSection := func(write func(*strings.Builder)) {
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		write(body)
	}

	// Identity block: model identity, knowledge cutoff, current date — each
	// included iff set. DefaultSystemContent always sets identity and cutoff.
	hasIdentityLine := sys.ModelIdentity != nil && *sys.ModelIdentity != ""
	hasCutoffLine := sys.KnowledgeCutoff != nil && *sys.KnowledgeCutoff != ""
	hasDateLine := sys.ConversationStartDate != nil && *sys.ConversationStartDate != ""
	if hasIdentityLine || hasCutoffLine || hasDateLine {
		addSection(func(sb *strings.Builder) {
			first := true
			nl := func() {
				if !first {
					sb.WriteByte('\n')
				}
				first = false
			}
			if hasIdentityLine {
				nl()
				sb.WriteString(*sys.ModelIdentity)
			}
			if hasCutoffLine {
				nl()
				sb.WriteString("Knowledge cutoff: ")
				sb.WriteString(*sys.KnowledgeCutoff)
			}
			if hasDateLine {
				nl()
				sb.WriteString("Current date: ")
				sb.WriteString(*sys.ConversationStartDate)
			}
		})
	}

	if sys.ReasoningEffort != nil {
		addSection(func(sb *strings.Builder) {
			sb.WriteString("Reasoning: ")
			sb.WriteString(strings.ToLower(string(*sys.ReasoningEffort)))
		})
	}

	if len(sys.Tools) > 0 {
		var toolsErr error
		addSection(func(sb *strings.Builder) {
			toolsErr = e.writeToolsSection(sb, sys.Tools)
		})
		if toolsErr != nil {
			e.releaseBuilder(body)
			return toolsErr
		}
	}

	if sys.ChannelConfig != nil && len(sys.ChannelConfig.ValidChannels) > 0 {
		cfg := sys.ChannelConfig
		addSection(func(sb *strings.Builder) {
			sb.WriteString("# Valid channels: ")
			sb.WriteString(strings.Join(cfg.ValidChannels, ", "))
			sb.WriteString(".")
			if cfg.ChannelRequired {
				sb.WriteString(" Channel must be included for every message.")
			}
			if opts.conversationHasFunctionTools {
				sb.WriteString("\nCalls to these tools must go to the commentary channel: 'functions'.")
			}
		})
	}

	e.renderText(body.String(), out)
	e.releaseBuilder(body)
	return nil
}
