// Package message implements the length-delimited binary framing used by
// every transport to carry opaque payload bytes, plus a generic round-trip
// coder for application values.
package message

import (
	"encoding"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// WriteFramed writes a varint length prefix followed by payload to w.
func WriteFramed(w io.Writer, payload []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFramed reads one length-delimited payload from r. io.EOF propagates
// unchanged so callers can distinguish "no more frames" from a short read.
func ReadFramed(r io.ByteReader) ([]byte, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, length)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// Encode serializes value to bytes. Values implementing
// encoding.BinaryMarshaler use that directly; everything else falls back to
// JSON, which is deterministic enough for the codec's round-trip contract
// and is what the spec's S5 scenario (a JSON-shaped value) exercises.
func Encode[T any](value T) ([]byte, error) {
	if m, ok := any(value).(encoding.BinaryMarshaler); ok {
		return m.MarshalBinary()
	}
	return json.Marshal(value)
}

// Decode deserializes bytes produced by Encode back into a T.
func Decode[T any](data []byte) (T, error) {
	var out T
	if u, ok := any(&out).(encoding.BinaryUnmarshaler); ok {
		if err := u.UnmarshalBinary(data); err != nil {
			return out, fmt.Errorf("message: decode: %w", err)
		}
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("message: decode: %w", err)
	}
	return out, nil
}
