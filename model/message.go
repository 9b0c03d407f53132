package model

import "time"

// MessageKind classifies a message's position in the conversation protocol.
type MessageKind string

const (
	KindSystem   MessageKind = "system"
	KindRequest  MessageKind = "request"
	KindResponse MessageKind = "response"
)

// PartKind discriminates the variants of a message part. Every part is one of
// these kinds; code that inspects parts switches on the kind rather than
// probing fields for presence.
type PartKind string

const (
	PartText       PartKind = "text"
	PartThinking   PartKind = "thinking"
	PartToolCall   PartKind = "tool_call"
	PartToolReturn PartKind = "tool_return"
	PartFile       PartKind = "file"
)

// Part is one unit of message content. Only the fields matching Kind are
// meaningful:
//
//   - PartText:       Text
//   - PartThinking:   Text, Signature (optional provider continuity token)
//   - PartToolCall:   ToolCallID, ToolName, ToolArgs
//   - PartToolReturn: ToolCallID, ToolName, Result
//   - PartFile:       MIMEType, Data
//
// Signature may additionally appear on non-thinking parts for providers that
// attach a thought signature to the part following the thinking block.
type Part struct {
	Kind       PartKind       `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Signature  string         `json:"signature,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolArgs   map[string]any `json:"tool_args,omitempty"`
	Result     string         `json:"result,omitempty"`
	MIMEType   string         `json:"mime_type,omitempty"`
	Data       []byte         `json:"data,omitempty"`
}

// Message is an ordered unit of conversation. Parts are immutable once the
// message is committed to a history; filtering produces a new message.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Parts     []Part      `json:"parts"`
	Timestamp time.Time   `json:"timestamp"`
}

// History is an ordered sequence of messages owned by a single session.
// Append-only except for compaction rewrites, which replace the whole slice.
type History []Message

// TextMessage builds a single-part message of the given kind.
func TextMessage(kind MessageKind, text string) Message {
	return Message{
		Kind:      kind,
		Parts:     []Part{{Kind: PartText, Text: text}},
		Timestamp: time.Now(),
	}
}

// Clone returns a shallow per-message copy of the history. Part slices are
// copied so callers can filter parts without mutating the original.
func (h History) Clone() History {
	out := make(History, len(h))
	for i, m := range h {
		parts := make([]Part, len(m.Parts))
		copy(parts, m.Parts)
		out[i] = Message{Kind: m.Kind, Parts: parts, Timestamp: m.Timestamp}
	}
	return out
}

// ToolCallIDs returns the ids of every tool-call part in the message.
func (m Message) ToolCallIDs() []string {
	var ids []string
	for _, p := range m.Parts {
		if p.Kind == PartToolCall {
			ids = append(ids, p.ToolCallID)
		}
	}
	return ids
}

// ToolReturnIDs returns the ids of every tool-return part in the message.
func (m Message) ToolReturnIDs() []string {
	var ids []string
	for _, p := range m.Parts {
		if p.Kind == PartToolReturn {
			ids = append(ids, p.ToolCallID)
		}
	}
	return ids
}

// HasThinking reports whether the message carries a thinking part.
func (m Message) HasThinking() bool {
	for _, p := range m.Parts {
		if p.Kind == PartThinking {
			return true
		}
	}
	return false
}

// Text concatenates the message's text and thinking parts. Tool parts are
// excluded; use a renderer that understands tool structure for those.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartText || p.Kind == PartThinking {
			out += p.Text
		}
	}
	return out
}
