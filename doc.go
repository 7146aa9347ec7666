// Package harmony renders structured chat conversations into the Harmony
// wire format and parses model output back into messages.
//
// A Conversation of typed Messages is rendered to a token sequence via an
// Encoding bound to a Tokenizer; the same Encoding streams or batch-parses
// tokens back into Messages. Streaming and batch parsing share one header
// parser (see parseHeader) so the two parse paths never drift apart.
package harmony
