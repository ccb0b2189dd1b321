// Package codec implements the block-level payload framing options named in
// spec §6: length-prefixed binary (the default used by the core transports),
// binary without a length prefix, and newline-terminated text. The core
// itself only ever moves opaque bytes; these framings are for adapters that
// sit above a typed port and need to decide how a stream of values maps onto
// a stream of bytes read from or written to an external source.
package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/protoflow-dev/protoflow/message"
)

// Framing encodes and decodes a sequence of byte payloads to and from a
// stream, independent of what those payloads mean.
type Framing interface {
	// WriteFrame writes one payload to w.
	WriteFrame(w io.Writer, payload []byte) error
	// ReadFrame reads one payload from r. Returns io.EOF when the stream is
	// exhausted cleanly between frames.
	ReadFrame(r *bufio.Reader) ([]byte, error)
}

// LengthDelimited is a varint length prefix followed by raw bytes.
var LengthDelimited Framing = lengthDelimited{}

type lengthDelimited struct{}

func (lengthDelimited) WriteFrame(w io.Writer, payload []byte) error {
	return message.WriteFramed(w, payload)
}

func (lengthDelimited) ReadFrame(r *bufio.Reader) ([]byte, error) {
	return message.ReadFramed(r)
}

// Raw writes and reads payloads with no delimiter at all; the caller is
// responsible for knowing where one payload ends and the next begins (for
// example, a fixed-size record, or a single payload per stream).
var Raw Framing = rawFraming{}

type rawFraming struct{}

func (rawFraming) WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(payload)
	return err
}

func (rawFraming) ReadFrame(r *bufio.Reader) ([]byte, error) {
	payload, err := io.ReadAll(r)
	if err == nil && len(payload) == 0 {
		return nil, io.EOF
	}
	return payload, err
}

// NewlineDelimited appends '\n' after every payload on write, and splits on
// '\n' on read. Payloads containing '\n' are rejected on write since they
// would corrupt framing.
var NewlineDelimited Framing = newlineFraming{}

type newlineFraming struct{}

func (newlineFraming) WriteFrame(w io.Writer, payload []byte) error {
	for _, b := range payload {
		if b == '\n' {
			return fmt.Errorf("codec: newline-delimited payload may not contain '\\n'")
		}
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

func (newlineFraming) ReadFrame(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line[:len(line)-1], nil
}
