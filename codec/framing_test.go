package codec

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthDelimitedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LengthDelimited.WriteFrame(&buf, []byte("hello")))
	require.NoError(t, LengthDelimited.WriteFrame(&buf, []byte("world")))

	r := bufio.NewReader(&buf)
	got, err := LengthDelimited.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = LengthDelimited.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	_, err = LengthDelimited.ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Raw.WriteFrame(&buf, []byte("one payload, no delimiter")))

	got, err := Raw.ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, []byte("one payload, no delimiter"), got)
}

func TestNewlineDelimitedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewlineDelimited.WriteFrame(&buf, []byte("line one")))
	require.NoError(t, NewlineDelimited.WriteFrame(&buf, []byte("line two")))

	r := bufio.NewReader(&buf)
	got, err := NewlineDelimited.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("line one"), got)

	got, err = NewlineDelimited.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("line two"), got)

	_, err = NewlineDelimited.ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewlineDelimitedRejectsEmbeddedNewline(t *testing.T) {
	var buf bytes.Buffer
	err := NewlineDelimited.WriteFrame(&buf, []byte("bad\npayload"))
	assert.Error(t, err)
}
