package harmony

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "unknown-role", ErrUnknownRole.String())
	assert.Equal(t, "invalid-tool-schema", ErrInvalidToolSchema.String())
	assert.Equal(t, "unknown-error-kind", ErrorKind(999).String())
}

func TestRenderErrorFormattingAndUnwrap(t *testing.T) {
	wrapped := errors.New("boom")
	err := wrapRenderErr(ErrTypeRoleMismatch, "context", wrapped)
	assert.Contains(t, err.Error(), "type-role-mismatch")
	assert.Contains(t, err.Error(), "context")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, wrapped)

	bare := newRenderErr(ErrMalformedHeader, "no wrapped cause")
	assert.Nil(t, bare.Unwrap())
	assert.Contains(t, bare.Error(), "no wrapped cause")
}

func TestParseErrorFormattingAndUnwrap(t *testing.T) {
	wrapped := errors.New("bad bytes")
	err := wrapParseErr(ErrInvalidUTF8, "decoding content", wrapped)
	assert.Contains(t, err.Error(), "invalid-utf8")
	assert.Contains(t, err.Error(), "bad bytes")
	assert.ErrorIs(t, err, wrapped)

	bare := newParseErr(ErrUnexpectedToken, "no start token")
	assert.Nil(t, bare.Unwrap())
}

func TestParseErrorAsDiscriminatesFromRenderError(t *testing.T) {
	var perr *ParseError
	var rerr *RenderError
	err := newParseErr(ErrTruncatedHeader, "eof")
	assert.ErrorAs(t, err, &perr)
	assert.False(t, errors.As(err, &rerr))
}
