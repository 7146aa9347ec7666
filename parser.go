package harmony

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

type streamState int

const (
	stExpectStart streamState = iota
	stHeader
	stContent
)

var streamStateNames = map[streamState]string{
	stExpectStart: "ExpectStart",
	stHeader:      "Header",
	stContent:     "Content",
}

// StreamParser incrementally parses a stream of Harmony tokens into
// messages (§4.8). It is the single header-parsing code path shared with
// ParseMessagesFromCompletionTokens (see batch_parser.go).
type StreamParser struct {
	enc          *Encoding
	externalRole *Role
	state        streamState

	tokens      []uint32
	messages    []Message
	headerToks  []uint32
	contentToks []uint32
	pending     []uint32 // tokens decoded so far but not yet confirmed valid UTF-8

	lastDeltaBytes []byte
	hasLastDelta   bool
}

// NewStreamParser creates a streaming parser. If role is non-nil, the
// parser starts directly in the Header state and treats role as the
// author of the message already in progress — used when priming a
// streaming decode whose first tokens are a known role's continuation
// rather than a fresh <|start|>.
func NewStreamParser(enc *Encoding, role *Role) (*StreamParser, error) {
	if enc == nil {
		return nil, fmt.Errorf("harmony: NewStreamParser: nil encoding")
	}
	p := &StreamParser{enc: enc, externalRole: role, state: stExpectStart}
	if role != nil {
		p.state = stHeader
	}
	return p, nil
}

// Process consumes a single token and advances parser state.
func (p *StreamParser) Process(token uint32) error {
	p.tokens = append(p.tokens, token)
	switch p.state {
	case stExpectStart:
		if token != p.enc.idStart {
			return newParseErr(ErrUnexpectedToken, fmt.Sprintf("token %d while expecting <|start|>", token))
		}
		p.headerToks = p.headerToks[:0]
		p.state = stHeader
		return nil

	case stHeader:
		if token == p.enc.idMessage {
			hdr, err := p.enc.parseHeader(p.headerToks, p.externalRole)
			if err != nil {
				return err
			}
			p.externalRole = nil
			p.messages = append(p.messages, Message{
				Author:      hdr.author,
				Recipient:   hdr.recipient,
				Channel:     hdr.channel,
				ContentType: hdr.contentType,
			})
			p.contentToks = p.contentToks[:0]
			p.pending = p.pending[:0]
			p.hasLastDelta = false
			p.state = stContent
			return nil
		}
		p.headerToks = append(p.headerToks, token)
		return nil

	case stContent:
		if _, stop := p.enc.stopAll[token]; stop {
			return p.finalizeMessage()
		}
		p.pending = append(p.pending, token)
		b, err := p.enc.tok.DecodeBytes(p.pending)
		if err == nil && utf8.Valid(b) {
			p.contentToks = append(p.contentToks, p.pending...)
			p.lastDeltaBytes = append(p.lastDeltaBytes[:0], b...)
			p.hasLastDelta = true
			p.pending = p.pending[:0]
		} else {
			p.hasLastDelta = false
		}
		return nil

	default:
		return newParseErr(ErrUnexpectedToken, "invalid parser state")
	}
}

// ProcessEOS signals end-of-stream. In ExpectStart it is a no-op (a
// terminator just committed a message); in Header it is fatal
// Truncated-Header; in Content it finalizes the in-progress message.
func (p *StreamParser) ProcessEOS() error {
	switch p.state {
	case stExpectStart:
		return nil
	case stHeader:
		return newParseErr(ErrTruncatedHeader, "end of stream while parsing header")
	case stContent:
		return p.finalizeMessage()
	default:
		return nil
	}
}

func (p *StreamParser) finalizeMessage() error {
	if len(p.messages) == 0 {
		return newParseErr(ErrUnexpectedToken, "stop token with no message in progress")
	}
	all := make([]uint32, 0, len(p.contentToks)+len(p.pending))
	all = append(all, p.contentToks...)
	all = append(all, p.pending...)
	text, err := p.enc.tok.DecodeUTF8(all)
	if err != nil {
		return wrapParseErr(ErrInvalidUTF8, "decoding message content", err)
	}
	idx := len(p.messages) - 1
	p.messages[idx].Content = []Content{{Type: ContentText, Text: text}}
	p.headerToks = p.headerToks[:0]
	p.contentToks = p.contentToks[:0]
	p.pending = p.pending[:0]
	p.hasLastDelta = false
	p.state = stExpectStart
	return nil
}

// Messages returns all fully parsed messages so far.
func (p *StreamParser) Messages() []Message { return append([]Message(nil), p.messages...) }

// Tokens returns every token fed to the parser so far.
func (p *StreamParser) Tokens() []uint32 { return append([]uint32(nil), p.tokens...) }

// StateJSON returns a serializable snapshot of the parser's state name.
func (p *StreamParser) StateJSON() (string, error) {
	snap := struct {
		State string `json:"state"`
	}{State: streamStateNames[p.state]}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CurrentRole returns the role of the message in progress, or the role
// hint awaiting a header, or nil if neither is known yet.
func (p *StreamParser) CurrentRole() *Role {
	if p.state == stContent && len(p.messages) > 0 {
		r := p.messages[len(p.messages)-1].Author.Role
		return &r
	}
	return p.externalRole
}

// CurrentChannel returns the channel of the message in progress.
func (p *StreamParser) CurrentChannel() string {
	if p.state != stContent || len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1].Channel
}

// CurrentRecipient returns the recipient of the message in progress.
func (p *StreamParser) CurrentRecipient() string {
	if p.state != stContent || len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1].Recipient
}

// CurrentContentType returns the content type of the message in progress.
func (p *StreamParser) CurrentContentType() string {
	if p.state != stContent || len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1].ContentType
}

// CurrentContent returns the UTF-8 text decoded from the confirmed
// content buffer so far (excluding any still-undecoded trailing bytes of
// a straddling multi-byte rune).
func (p *StreamParser) CurrentContent() string {
	if p.state != stContent {
		return ""
	}
	s, err := p.enc.tok.DecodeUTF8(p.contentToks)
	if err != nil {
		return ""
	}
	return s
}

// LastContentDelta returns the text decoded by the most recent Process
// call, or "" if that token left an incomplete multi-byte sequence
// buffered.
func (p *StreamParser) LastContentDelta() string {
	if !p.hasLastDelta {
		return ""
	}
	return string(p.lastDeltaBytes)
}
