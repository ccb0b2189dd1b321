// Package pubsub implements the cross-process transport from spec §4.5: two
// mangos sockets (PUB and SUB) per participant, multiplexed by topic across
// every port the participant owns. A dedicated writer task serializes the
// PUB socket and a dedicated reader task serializes the SUB socket, fanning
// parsed events out to per-port worker inboxes — mirroring the way the
// teacher's backend/dropbox/batcher.go serializes a shared resource (the
// batch API client) behind a single channel-fed goroutine.
package pubsub

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/protoflow-dev/protoflow/port"
)

// eventKind tags the variant of a wire event record.
type eventKind byte

const (
	kindConnect eventKind = iota + 1
	kindAckConnection
	kindMessage
	kindAckMessage
	kindCloseOutput
	kindCloseInput
)

// event is the decoded form of one wire record. Not every field is
// meaningful for every kind; see the topic* functions for which fields each
// kind carries.
type event struct {
	kind    eventKind
	out     port.OutputID
	in      port.InputID
	seq     uint64
	payload []byte
}

// topicConnect is the topic an output o writes to request a connection to
// input i, and that i subscribes to (by the "{i}:conn" prefix).
func topicConnect(i port.InputID, o port.OutputID) string {
	return fmt.Sprintf("%d:conn:%d", int64(i), int64(o))
}

// topicAckConnection is the topic i writes to acknowledge a connection from
// o, and that o subscribes to directly (full topic, not a prefix).
func topicAckConnection(i port.InputID, o port.OutputID) string {
	return fmt.Sprintf("%d:ackConn:%d", int64(i), int64(o))
}

// topicMessage is the topic o writes a payload to, addressed to i, carrying
// the per-connection sequence number seq.
func topicMessage(i port.InputID, o port.OutputID, seq uint64) string {
	return fmt.Sprintf("%d:msg:%d:%d", int64(i), int64(o), seq)
}

// topicAckMessage is the topic i writes to acknowledge delivery of seq from
// o.
func topicAckMessage(i port.InputID, o port.OutputID, seq uint64) string {
	return fmt.Sprintf("%d:ackMsg:%d:%d", int64(i), int64(o), seq)
}

// topicCloseOutput is the topic o writes when it closes its connection to
// i.
func topicCloseOutput(i port.InputID, o port.OutputID) string {
	return fmt.Sprintf("%d:closeOut:%d", int64(i), int64(o))
}

// topicCloseInput is the topic i writes when it closes, notifying every
// connected output.
func topicCloseInput(i port.InputID) string {
	return fmt.Sprintf("%d:closeIn", int64(i))
}

// subInputPrefixes returns the three subscription prefixes an input port i
// must carry: any connect request, any message, and any output closing.
func subInputPrefixes(i port.InputID) []string {
	base := strconv.FormatInt(int64(i), 10)
	return []string{base + ":conn", base + ":msg", base + ":closeOut"}
}

// subOutputPrefixes returns the subscription prefixes an output o that has
// (or is attempting) a connection to i must carry: its own connection ack,
// any ack of a message it sent, and the input closing.
func subOutputPrefixes(i port.InputID, o port.OutputID) []string {
	return []string{
		topicAckConnection(i, o),
		fmt.Sprintf("%d:ackMsg:%d:", int64(i), int64(o)),
		topicCloseInput(i),
	}
}

// encodeEvent serializes topic and ev into the single buffer mangos
// transmits as one message: the topic bytes (used for SUB prefix
// filtering), a NUL separator (never legal inside a topic, since topics are
// built only from ':', '-', digits, and the fixed words above), then the binary
// event record.
func encodeEvent(topic string, ev event) []byte {
	body := encodeRecord(ev)
	buf := make([]byte, 0, len(topic)+1+len(body))
	buf = append(buf, topic...)
	buf = append(buf, 0)
	buf = append(buf, body...)
	return buf
}

// splitFrame separates a received mangos message back into its topic and
// record-body portions.
func splitFrame(raw []byte) (topic string, body []byte, ok bool) {
	idx := -1
	for i, b := range raw {
		if b == 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", nil, false
	}
	return string(raw[:idx]), raw[idx+1:], true
}

// encodeRecord writes kind, out, in, seq (varint) and a length-prefixed
// payload, mirroring message.WriteFramed's varint-length convention.
func encodeRecord(ev event) []byte {
	var buf []byte
	buf = append(buf, byte(ev.kind))
	buf = appendSignedVarint(buf, int64(ev.out))
	buf = appendSignedVarint(buf, int64(ev.in))
	buf = appendVarint(buf, ev.seq)
	buf = appendVarint(buf, uint64(len(ev.payload)))
	buf = append(buf, ev.payload...)
	return buf
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// appendSignedVarint zigzag-encodes v, so the negative IDs used for input
// ports stay as compact on the wire as the positive IDs used for outputs.
func appendSignedVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// decodeRecord is encodeRecord's inverse.
func decodeRecord(body []byte) (event, error) {
	var ev event
	r := &byteReader{buf: body}
	kind, err := binary.ReadUvarint(r)
	if err != nil {
		return ev, fmt.Errorf("pubsub: decode kind: %w", err)
	}
	ev.kind = eventKind(kind)
	out, err := binary.ReadVarint(r)
	if err != nil {
		return ev, fmt.Errorf("pubsub: decode out: %w", err)
	}
	ev.out = port.OutputID(out)
	in, err := binary.ReadVarint(r)
	if err != nil {
		return ev, fmt.Errorf("pubsub: decode in: %w", err)
	}
	ev.in = port.InputID(in)
	seq, err := binary.ReadUvarint(r)
	if err != nil {
		return ev, fmt.Errorf("pubsub: decode seq: %w", err)
	}
	ev.seq = seq
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return ev, fmt.Errorf("pubsub: decode payload len: %w", err)
	}
	payload := make([]byte, n)
	for i := range payload {
		b, err := r.ReadByte()
		if err != nil {
			return ev, fmt.Errorf("pubsub: decode payload: %w", err)
		}
		payload[i] = b
	}
	ev.payload = payload
	return ev, nil
}

// byteReader adapts a []byte to io.ByteReader for binary.ReadUvarint.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("pubsub: short record")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}
