package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type InboundType string

const (
	InAuth            InboundType = "auth"
	InPing            InboundType = "ping"
	InPresenceRequest InboundType = "presence_request"
	InTypingStart     InboundType = "typing_start"
	InTypingStop      InboundType = "typing_stop"
)

type OutboundType string

const (
	OutAuthOK          OutboundType = "auth_ok"
	OutAuthError       OutboundType = "auth_error"
	OutNotification    OutboundType = "notification"
	OutPresenceList    OutboundType = "presence_list"
	OutTypingIndicator OutboundType = "typing_indicator"
	OutUserOnline      OutboundType = "user_online"
	OutUserOffline     OutboundType = "user_offline"
)

const (
	ReasonMissingCredentials = "Missing userId or userName"
	ReasonAuthTimeout        = "Authentication timeout"
)

// ===== 入站 =====

// Inbound is one of AuthMsg, PingMsg, PresenceRequestMsg or TypingMsg.
type Inbound interface {
	Type() InboundType
	inbound()
}

type AuthMsg struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type PingMsg struct{}

type PresenceRequestMsg struct{}

// TypingMsg covers typing_start (Start=true) and typing_stop.
type TypingMsg struct {
	Start          bool   `json:"-"`
	ConversationID string `json:"conversationId"`
	TargetUserID   string `json:"targetUserId"`
}

func (AuthMsg) Type() InboundType            { return InAuth }
func (PingMsg) Type() InboundType            { return InPing }
func (PresenceRequestMsg) Type() InboundType { return InPresenceRequest }
func (m TypingMsg) Type() InboundType {
	if m.Start {
		return InTypingStart
	}
	return InTypingStop
}

func (AuthMsg) inbound()            {}
func (PingMsg) inbound()            {}
func (PresenceRequestMsg) inbound() {}
func (TypingMsg) inbound()          {}

// Complete reports whether both credentials are present.
func (m AuthMsg) Complete() bool { return m.UserID != "" && m.UserName != "" }

type ParseErrorKind string

const (
	ParseInvalidJSON    ParseErrorKind = "invalid_json"
	ParseUnknownType    ParseErrorKind = "unknown_type"
	ParseInvalidPayload ParseErrorKind = "invalid_payload"
	ParseMissingField   ParseErrorKind = "missing_field"
)

// ParseError describes why an inbound frame was rejected. Rejected frames are dropped without reply.
type ParseError struct {
	Kind   ParseErrorKind
	Type   string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("parse frame: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("parse frame type=%s: %s: %s", e.Type, e.Kind, e.Detail)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseInbound decodes a client envelope. An auth frame with missing or
// non-scalar credentials is returned as an incomplete AuthMsg so the caller can
// answer it; typing frames without both ids fail with ParseMissingField.
func ParseInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ParseError{Kind: ParseInvalidJSON, Detail: err.Error()}
	}

	switch InboundType(env.Type) {
	case InAuth:
		var p authPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return AuthMsg{UserID: credential(p.UserID), UserName: credential(p.UserName)}, nil
	case InPing:
		return PingMsg{}, nil
	case InPresenceRequest:
		return PresenceRequestMsg{}, nil
	case InTypingStart, InTypingStop:
		m := TypingMsg{Start: InboundType(env.Type) == InTypingStart}
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		if m.ConversationID == "" || m.TargetUserID == "" {
			return nil, &ParseError{Kind: ParseMissingField, Type: env.Type, Detail: "conversationId and targetUserId are required"}
		}
		return m, nil
	default:
		return nil, &ParseError{Kind: ParseUnknownType, Type: env.Type, Detail: "unsupported message type"}
	}
}

type authPayload struct {
	UserID   json.RawMessage `json:"userId"`
	UserName json.RawMessage `json:"userName"`
}

// credential accepts a JSON string or number (kept as written, 42 -> "42").
// Anything else counts as missing so the client gets an auth_error.
func credential(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func decodePayload(env envelope, dst any) error {
	p := bytes.TrimSpace(env.Payload)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(p, dst); err != nil {
		return &ParseError{Kind: ParseInvalidPayload, Type: env.Type, Detail: err.Error()}
	}
	return nil
}

// ===== 出站 =====

// Outbound is a server-to-client message; Encode wraps it in {type, payload}.
type Outbound interface {
	Type() OutboundType
}

type AuthOK struct {
	UserID      string `json:"userId"`
	OnlineCount int    `json:"onlineCount"`
}

type AuthError struct {
	Reason string `json:"reason"`
}

// Notification is pushed to clients as is; ID and CreatedAt (Unix ms) are filled in at dispatch.
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// NotificationFrame carries a Notification on the wire. Notification has its own
// Type field, so the outbound type lives on this wrapper.
type NotificationFrame struct {
	Notification
}

// PresenceEntry is one online user; ConnectedAt is Unix ms.
type PresenceEntry struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	ConnectedAt int64  `json:"connectedAt"`
}

type PresenceList struct {
	Users []PresenceEntry `json:"users"`
}

type TypingIndicator struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type UserOnline struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type UserOffline struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (AuthOK) Type() OutboundType            { return OutAuthOK }
func (AuthError) Type() OutboundType         { return OutAuthError }
func (NotificationFrame) Type() OutboundType { return OutNotification }
func (PresenceList) Type() OutboundType      { return OutPresenceList }
func (TypingIndicator) Type() OutboundType   { return OutTypingIndicator }
func (UserOnline) Type() OutboundType        { return OutUserOnline }
func (UserOffline) Type() OutboundType       { return OutUserOffline }

type outEnvelope struct {
	Type    OutboundType `json:"type"`
	Payload Outbound     `json:"payload"`
}

func Encode(m Outbound) ([]byte, error) {
	if pl, ok := m.(PresenceList); ok && pl.Users == nil {
		pl.Users = []PresenceEntry{}
		m = pl
	}
	data, err := json.Marshal(outEnvelope{Type: m.Type(), Payload: m})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return data, nil
}
