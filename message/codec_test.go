package message

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string `json:"text"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	value := greeting{Text: "Hello world!"}
	encoded, err := Encode(value)
	require.NoError(t, err)

	decoded, err := Decode[greeting](encoded)
	require.NoError(t, err)
	assert.Equal(t, value, decoded)
}

func TestWriteReadFramed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFramed(&buf, []byte("payload")))

	got, err := ReadFramed(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestWriteReadFramedEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFramed(&buf, nil))

	got, err := ReadFramed(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got)
}

func TestReadFramedPropagatesEOF(t *testing.T) {
	var buf bytes.Buffer
	_, err := ReadFramed(&buf)
	assert.ErrorIs(t, err, io.EOF)
}
