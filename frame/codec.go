// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/atp-router/routerd/errcode"
)

// ErrBadFrame is returned for any schema violation: unknown required
// field missing, type mismatch, or unknown qos (§4.1).
var ErrBadFrame = errcode.New(errcode.CodeBadFrame, "frame failed schema validation")

// wireFrame mirrors Frame but lets us detect missing/invalid required
// fields before trusting the typed struct, since encoding/json silently
// zero-fills absent fields.
type wireFrame struct {
	V         *int     `json:"v"`
	SessionID *string  `json:"session_id"`
	StreamID  *string  `json:"stream_id"`
	MsgSeq    *uint64  `json:"msg_seq"`
	FragSeq   *uint32  `json:"frag_seq"`
	Flags     []Flag   `json:"flags,omitempty"`
	QoS       *QoS     `json:"qos"`
	TTL       *uint8   `json:"ttl"`
	Window    *Window  `json:"window"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Payload   *Payload `json:"payload"`
	Sig       string   `json:"sig,omitempty"`
}

// Decode parses and schema-validates raw bytes into a Frame, failing with
// ErrBadFrame per §4.1. Unknown optional fields are ignored automatically
// by encoding/json's default decode behavior (forward compatibility).
func Decode(raw []byte) (*Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if w.V == nil || w.SessionID == nil || w.StreamID == nil || w.MsgSeq == nil ||
		w.FragSeq == nil || w.QoS == nil || w.TTL == nil || w.Window == nil || w.Payload == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrBadFrame)
	}
	if !w.QoS.Valid() {
		return nil, fmt.Errorf("%w: unknown qos %q", ErrBadFrame, *w.QoS)
	}
	if *w.SessionID == "" || *w.StreamID == "" {
		return nil, fmt.Errorf("%w: empty session_id or stream_id", ErrBadFrame)
	}
	if w.Payload.Type == "" {
		return nil, fmt.Errorf("%w: missing payload type", ErrBadFrame)
	}
	return &Frame{
		V:         *w.V,
		SessionID: *w.SessionID,
		StreamID:  *w.StreamID,
		MsgSeq:    *w.MsgSeq,
		FragSeq:   *w.FragSeq,
		Flags:     w.Flags,
		QoS:       *w.QoS,
		TTL:       *w.TTL,
		Window:    *w.Window,
		Metadata:  w.Metadata,
		Payload:   *w.Payload,
		Sig:       w.Sig,
	}, nil
}

// Canonicalize returns the canonical JSON form of f: keys sorted, compact
// separators, and the sig field excluded (§4.1). encoding/json already
// sorts map keys and struct field order is fixed by declaration, so the
// canonical form is produced by re-marshaling through a key-sorted generic
// map to guarantee stability even if Frame's field order ever changes.
func Canonicalize(f *Frame) ([]byte, error) {
	cp := *f
	cp.Sig = ""
	raw, err := json.Marshal(&cp)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	delete(generic, "sig")
	return marshalSorted(generic)
}

// marshalSorted serializes v with object keys sorted and no insignificant
// whitespace, recursing into nested maps and slices.
func marshalSorted(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeSorted(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeSorted(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sortStrings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeSorted(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeSorted(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
