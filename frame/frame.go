// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package frame implements the ATP wire unit (§3) and its canonical
// codec (§4.1): encode/decode, signing, fragmentation, and reassembly
// support types. The Message/Op/Field shape generalizes a gossip message
// interface into an ATP frame.
package frame

import "encoding/json"

// Flag is one bit of the frame's flag set (§3).
type Flag string

const (
	FlagSYN  Flag = "SYN"
	FlagACK  Flag = "ACK"
	FlagFIN  Flag = "FIN"
	FlagRST  Flag = "RST"
	FlagMORE Flag = "MORE"
	FlagHB   Flag = "HB"
	FlagCTRL Flag = "CTRL"
)

// QoS is the priority tier a frame travels under (§3, §4.3).
type QoS string

const (
	QoSGold   QoS = "gold"
	QoSSilver QoS = "silver"
	QoSBronze QoS = "bronze"
)

// Valid reports whether q is one of the three recognized tiers. The codec
// fails a frame with an unknown qos per §4.1.
func (q QoS) Valid() bool {
	switch q {
	case QoSGold, QoSSilver, QoSBronze:
		return true
	default:
		return false
	}
}

// PayloadType is the tagged variant key for a frame's payload (§3, §6).
type PayloadType string

const (
	PayloadResultPartial     PayloadType = "agent.result.partial"
	PayloadResultFinal       PayloadType = "agent.result.final"
	PayloadResultProvisional PayloadType = "agent.result.provisional"
	PayloadResultQuestion    PayloadType = "agent.result.question"
	PayloadLog               PayloadType = "log"
	PayloadControlStatus     PayloadType = "control.status"
	PayloadToolRequest       PayloadType = "tool.request"
	PayloadToolResult        PayloadType = "tool.result"
	PayloadPlan              PayloadType = "plan"
	PayloadHeartbeat         PayloadType = "heartbeat"
	PayloadCompletion        PayloadType = "completion"
	PayloadError             PayloadType = "error"
)

// Window is the triplet budget window carried on a frame (§3 "Triplet
// window").
type Window struct {
	MaxParallel   int   `json:"max_parallel"`
	MaxTokens     int64 `json:"max_tokens"`
	MaxUSDMicros  int64 `json:"max_usd_micros"`
}

// Metadata is the free-form request context carried on a frame (§3).
// ToolPermissions, SecurityGroups, and Languages are left as string
// slices per the §3 "metadata block"; unknown optional fields in the
// wire form are preserved via Extra for forward compatibility (§4.1:
// "MUST ignore unknown optional fields").
type Metadata struct {
	TaskType        string
	Languages       []string
	Risk            string
	ToolPermissions []string
	Environment     string
	SecurityGroups  []string
	TraceParent     string
	Extra           map[string]interface{}
}

var metadataKnownFields = []string{
	"task_type", "languages", "risk", "tool_permissions",
	"environment", "security_groups", "trace_parent",
}

// MarshalJSON folds Extra's keys in alongside the known fields so a
// round-tripped frame re-emits whatever unknown fields it arrived with.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+len(metadataKnownFields))
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.TaskType != "" {
		out["task_type"] = m.TaskType
	}
	if len(m.Languages) > 0 {
		out["languages"] = m.Languages
	}
	if m.Risk != "" {
		out["risk"] = m.Risk
	}
	if len(m.ToolPermissions) > 0 {
		out["tool_permissions"] = m.ToolPermissions
	}
	if m.Environment != "" {
		out["environment"] = m.Environment
	}
	if len(m.SecurityGroups) > 0 {
		out["security_groups"] = m.SecurityGroups
	}
	if m.TraceParent != "" {
		out["trace_parent"] = m.TraceParent
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the known metadata fields and stashes whatever
// else came in under Extra, so the routing layer can forward unknown
// fields unchanged (§4.1, §9).
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type known struct {
		TaskType        string   `json:"task_type,omitempty"`
		Languages       []string `json:"languages,omitempty"`
		Risk            string   `json:"risk,omitempty"`
		ToolPermissions []string `json:"tool_permissions,omitempty"`
		Environment     string   `json:"environment,omitempty"`
		SecurityGroups  []string `json:"security_groups,omitempty"`
		TraceParent     string   `json:"trace_parent,omitempty"`
	}
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, name := range metadataKnownFields {
		delete(raw, name)
	}
	*m = Metadata{
		TaskType:        k.TaskType,
		Languages:       k.Languages,
		Risk:            k.Risk,
		ToolPermissions: k.ToolPermissions,
		Environment:     k.Environment,
		SecurityGroups:  k.SecurityGroups,
		TraceParent:     k.TraceParent,
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// Payload is the tagged-variant content of a frame. Content is preserved
// as a free-form json.RawMessage-equivalent (interface{}) per §9's
// "Ad-hoc JSON Value fields" design note: the routing layer forwards
// unknown payload content unchanged, only admission/budget reach into the
// reported token/usd estimates.
type Payload struct {
	Type    PayloadType            `json:"type"`
	Content map[string]interface{} `json:"content,omitempty"`
}

// Frame is the ATP wire unit (§3).
type Frame struct {
	V         int      `json:"v"`
	SessionID string   `json:"session_id"`
	StreamID  string   `json:"stream_id"`
	MsgSeq    uint64   `json:"msg_seq"`
	FragSeq   uint32   `json:"frag_seq"`
	Flags     []Flag   `json:"flags,omitempty"`
	QoS       QoS      `json:"qos"`
	TTL       uint8    `json:"ttl"`
	Window    Window   `json:"window"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Payload   Payload  `json:"payload"`
	Sig       string   `json:"sig,omitempty"`
}

// HasFlag reports whether f is set.
func (fr *Frame) HasFlag(f Flag) bool {
	for _, flag := range fr.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// IsLast reports whether this is the terminal fragment of msg_seq: "flag
// MORE absent ≡ LAST" (§3).
func (fr *Frame) IsLast() bool {
	return !fr.HasFlag(FlagMORE)
}

// CurrentVersion is the only supported protocol major version (§6).
const CurrentVersion = 1
