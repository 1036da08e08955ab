package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/domain"
)

// Frame is a raw wire payload, one JSON event per frame.
type Frame []byte

// Inbound event types accepted from clients.
const (
	TypeChatMessage = "chat_message"
	TypeTypingStart = "typing_start"
	TypeTypingStop  = "typing_stop"
	TypeReaction    = "reaction"
)

// Outbound event types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeMessage               = "message"
	TypeUserJoined            = "user_joined"
	TypeUserLeft              = "user_left"
	TypeError                 = "error"
)

var ErrMalformedPayload = errors.New("malformed payload")

// UnknownTypeError reports a frame whose type discriminator is absent
// or not one of the inbound types.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return "unknown message type: " + e.Type
}

// Inbound is the decoded client frame. Fields beyond Type are only
// meaningful for the matching event type.
type Inbound struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// DecodeInbound parses a raw frame and validates the type discriminator.
func DecodeInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	switch in.Type {
	case TypeChatMessage, TypeTypingStart, TypeTypingStop, TypeReaction:
		return &in, nil
	default:
		return nil, &UnknownTypeError{Type: in.Type}
	}
}

// Encode marshals an outbound event. Internal events are always
// marshalable, so a failure here is a programming error.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.event").Msg("encode outbound event")
		return nil
	}
	return b
}

// Participant is the presence view of one live connection.
type Participant struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	IsOnline bool          `json:"is_online"`
}

// PresenceEvent covers connection_established, user_joined and user_left:
// the identity that changed plus the refreshed member snapshot.
type PresenceEvent struct {
	Type         string        `json:"type"`
	UserID       domain.UserID `json:"user_id"`
	Username     string        `json:"username"`
	Participants []Participant `json:"participants"`
}

type MessageEvent struct {
	Type      string        `json:"type"`
	MessageID string        `json:"message_id"`
	Message   string        `json:"message"`
	UserID    domain.UserID `json:"user_id"`
	Username  string        `json:"username"`
	Timestamp string        `json:"timestamp"`
}

type TypingEvent struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

type ReactionEvent struct {
	Type      string        `json:"type"`
	MessageID string        `json:"message_id"`
	Emoji     string        `json:"emoji"`
	UserID    domain.UserID `json:"user_id"`
	Username  string        `json:"username"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewPresenceEvent(typ string, p domain.Principal, members []Participant) PresenceEvent {
	return PresenceEvent{Type: typ, UserID: p.ID, Username: p.Username, Participants: members}
}

func NewMessageEvent(id, text string, p domain.Principal, at time.Time) MessageEvent {
	return MessageEvent{
		Type:      TypeMessage,
		MessageID: id,
		Message:   text,
		UserID:    p.ID,
		Username:  p.Username,
		Timestamp: at.Format(time.RFC3339),
	}
}

func NewTypingEvent(typ string, p domain.Principal) TypingEvent {
	return TypingEvent{Type: typ, UserID: p.ID, Username: p.Username}
}

func NewReactionEvent(messageID, emoji string, p domain.Principal) ReactionEvent {
	return ReactionEvent{Type: TypeReaction, MessageID: messageID, Emoji: emoji, UserID: p.ID, Username: p.Username}
}

func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: msg}
}
