// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"unicode/utf8"
)

// Checksum returns the first 16 hex characters of SHA-256 of the fragment
// text, per §4.1: "Per-fragment checksum: first 16 hex of SHA-256 of the
// fragment text."
func Checksum(text []byte) string {
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:])[:16]
}

// Fragment pairs a wire-ready Frame fragment with its checksum and
// serialized text, so the reassembler can verify integrity without
// re-encoding.
type Fragment struct {
	Frame    *Frame
	Text     []byte
	Checksum string
}

// fragmentEnvelope is the payload content of one fragment: a slice of the
// serialized original content under a reassembly-only wrapper key, keeping
// the outer Frame schema identical across fragments except for
// frag_seq/flags.
type fragmentEnvelope struct {
	Chunk string `json:"chunk"`
}

// FragmentFrame splits frame into n>=1 frames sharing (session_id, stream_id,
// msg_seq) with incrementing frag_seq, per §4.1. Non-terminal frames carry
// MORE; the terminal frame omits it. Payload content is serialized once
// and sliced into chunks of up to maxBytes, cut only at UTF-8 character
// boundaries (a single character longer than maxBytes forms its own
// chunk), wrapped so the reassembler can concatenate and re-parse the
// original content.
func FragmentFrame(f *Frame, maxBytes int) ([]Fragment, error) {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	body, err := json.Marshal(f.Payload.Content)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	var chunks [][]byte
	for len(body) > 0 {
		n := maxBytes
		if n > len(body) {
			n = len(body)
		}
		for n > 0 && n < len(body) && !utf8.RuneStart(body[n]) {
			n--
		}
		if n == 0 {
			n = 1
			for n < len(body) && !utf8.RuneStart(body[n]) {
				n++
			}
		}
		chunks = append(chunks, body[:n])
		body = body[n:]
	}
	if len(chunks) == 0 {
		chunks = [][]byte{[]byte("{}")}
	}

	out := make([]Fragment, 0, len(chunks))
	for i, chunk := range chunks {
		cp := *f
		cp.FragSeq = uint32(i)
		cp.Sig = ""
		env, err := json.Marshal(fragmentEnvelope{Chunk: string(chunk)})
		if err != nil {
			return nil, err
		}
		var content map[string]interface{}
		if err := json.Unmarshal(env, &content); err != nil {
			return nil, err
		}
		cp.Payload = Payload{Type: f.Payload.Type, Content: content}

		last := i == len(chunks)-1
		flags := make([]Flag, 0, len(f.Flags)+1)
		for _, fl := range f.Flags {
			if fl != FlagMORE {
				flags = append(flags, fl)
			}
		}
		if !last {
			flags = append(flags, FlagMORE)
		}
		cp.Flags = flags

		text, err := Canonicalize(&cp)
		if err != nil {
			return nil, err
		}
		out = append(out, Fragment{Frame: &cp, Text: text, Checksum: Checksum(text)})
	}
	return out, nil
}

// Reassemble concatenates the chunk text of an ordered, contiguous
// fragment run (0..last, terminal observed) back into the original frame,
// per §8: "reassemble(fragment(frame, n)) = frame for any n >= 1."
func Reassemble(frames []*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrBadFrame
	}
	var full []byte
	for _, fr := range frames {
		raw, ok := fr.Payload.Content["chunk"]
		if !ok {
			return nil, ErrBadFrame
		}
		s, ok := raw.(string)
		if !ok {
			return nil, ErrBadFrame
		}
		full = append(full, []byte(s)...)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(full, &content); err != nil {
		return nil, err
	}
	out := *frames[0]
	out.FragSeq = 0
	out.Flags = removeFlag(out.Flags, FlagMORE)
	out.Payload = Payload{Type: frames[0].Payload.Type, Content: content}
	return &out, nil
}

func removeFlag(flags []Flag, target Flag) []Flag {
	out := flags[:0:0]
	for _, f := range flags {
		if f != target {
			out = append(out, f)
		}
	}
	return out
}
