package harmony

// ParseMessagesFromCompletionTokens parses a complete (non-streaming)
// token sequence into messages, driving the same state machine as
// StreamParser so batch and streaming parsing never diverge (§4.10). role,
// when non-nil, primes the parser exactly as NewStreamParser does.
func (e *Encoding) ParseMessagesFromCompletionTokens(tokens []uint32, role *Role) ([]Message, error) {
	p, err := NewStreamParser(e, role)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if err := p.Process(t); err != nil {
			return nil, err
		}
	}
	if err := p.ProcessEOS(); err != nil {
		return nil, err
	}
	return p.Messages(), nil
}
