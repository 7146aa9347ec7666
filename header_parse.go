package harmony

import (
	"fmt"
	"strings"
)

// parsedHeader is the decoded result of a message header (§4.9): the
// resolved author, recipient, channel and content-type.
type parsedHeader struct {
	author      Author
	recipient   string
	channel     string
	contentType string
}

// parseHeader decodes headerTokens to text and parses it per the shared
// header grammar (§4.9). externalRole, when non-nil, is the role hint a
// streaming parser supplies ahead of time; it is used both to resolve the
// role when the header text omits it and to recognize a redundantly
// repeated role token so it can be stripped without being mistaken for an
// author name.
//
// This is the single header-parsing implementation shared by the
// streaming parser and the batch completion-token parser — see the Design
// Note against maintaining two independent header grammars.
func (e *Encoding) parseHeader(headerTokens []uint32, externalRole *Role) (parsedHeader, error) {
	var hdr parsedHeader

	s, err := e.tok.DecodeUTF8(headerTokens)
	if err != nil {
		return hdr, wrapParseErr(ErrInvalidUTF8, "decoding header tokens", err)
	}

	// 1. Channel extraction.
	if channelLit := e.literal[TokChannel]; channelLit != "" {
		if idx := strings.Index(s, channelLit); idx != -1 {
			after := s[idx+len(channelLit):]
			end := len(after)
			for i, ch := range after {
				if ch == ' ' || ch == '<' {
					end = i
					break
				}
			}
			value := after[:end]
			if value == "" {
				return hdr, newParseErr(ErrMalformedHeader, "empty channel value")
			}
			hdr.channel = value
			s = s[:idx] + after[end:]
		}
	}

	// 2. Constrained-format spacing normalization.
	if constrainLit := e.literal[TokConstrainedFormat]; constrainLit != "" {
		if idx := strings.Index(s, constrainLit); idx != -1 && idx > 0 && s[idx-1] != ' ' {
			s = s[:idx] + " " + s[idx:]
		}
	}

	// 3. Tokenize on ASCII whitespace.
	parts := strings.Fields(s)

	// 4. Role resolution.
	var role Role
	var toolName string
	switch {
	case len(parts) == 0 && externalRole == nil:
		return hdr, newParseErr(ErrUnknownRole, "empty header")
	case externalRole != nil:
		role = *externalRole
		if len(parts) > 0 {
			first := parts[0]
			if role == RoleTool {
				parts = parts[1:]
				if first != string(role) {
					toolName = stripRolePrefix(first, role)
				}
			} else if r, ok := headerRoleOf(first); ok && r == role {
				parts = parts[1:]
			}
		}
	default:
		first := parts[0]
		if r, ok := headerRoleOf(first); ok {
			role = r
			parts = parts[1:]
			if role == RoleTool {
				toolName = stripRolePrefix(first, role)
			}
		} else if len(parts) > 1 || strings.HasPrefix(first, "to=") {
			role = RoleTool
			toolName = first
			parts = parts[1:]
		} else {
			return hdr, newParseErr(ErrUnknownRole, fmt.Sprintf("unrecognized header role %q", first))
		}
	}

	hdr.author.Role = role
	if role == RoleTool {
		hdr.author.Name = toolName
	}

	// 5. Recipient and content-type, applied to the tail.
	switch {
	case len(parts) == 0:
		// nothing left
	case strings.HasPrefix(parts[len(parts)-1], "to="):
		hdr.recipient = strings.TrimPrefix(parts[len(parts)-1], "to=")
		parts = parts[:len(parts)-1]
	case len(parts) == 1:
		hdr.recipient = parts[0]
		parts = parts[:0]
	default:
		hdr.contentType = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
		if len(parts) > 0 {
			hdr.recipient = strings.TrimPrefix(parts[len(parts)-1], "to=")
			parts = parts[:len(parts)-1]
		}
	}
	if len(parts) > 0 {
		return hdr, newParseErr(ErrMalformedHeader, fmt.Sprintf("leftover header parts %v", parts))
	}

	return hdr, nil
}

// headerRoleOf reports whether part (ignoring an optional ":name" suffix)
// names a recognized role.
func headerRoleOf(part string) (Role, bool) {
	base := part
	if i := strings.IndexByte(part, ':'); i >= 0 {
		base = part[:i]
	}
	switch Role(base) {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper, RoleTool:
		return Role(base), true
	}
	return "", false
}

// stripRolePrefix removes a "<role>:" prefix from part if present, for
// the tool-role name-capture case.
func stripRolePrefix(part string, role Role) string {
	prefix := string(role) + ":"
	if strings.HasPrefix(part, prefix) {
		return part[len(prefix):]
	}
	return part
}
