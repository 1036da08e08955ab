// Package ws runs the per-connection protocol: handshake, out-of-band
// token authentication, room join, event dispatch and teardown. One
// goroutine reads, one writes; nothing here blocks another connection.
package ws

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

// Application-level close codes sent on a rejected connection attempt.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
	CloseRoomNotFound = 4003
)

// State is the connection lifecycle stage. Closed is terminal.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoining
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Sessions is the supervisor surface the connection needs.
type Sessions interface {
	Bind(handle core.ConnID, cancel context.CancelFunc)
	Join(roomID domain.RoomID, handle core.ConnID, c core.Conn, p domain.Principal, at time.Time) ([]core.Participant, error)
	Leave(handle core.ConnID) (domain.RoomID, domain.Principal, []core.Participant, bool)
	Publish(roomID domain.RoomID, f core.Frame, exclude core.ConnID) core.PublishResult
}

// Handler carries the collaborators shared by all connections.
type Handler struct {
	Auth     core.Authenticator
	Rooms    core.RoomLookup
	Messages core.MessageStore
	Sessions Sessions
}

// conn is one live connection. Exclusively owned by its goroutine; the
// broadcaster and presence registry reference it only by handle.
type conn struct {
	h      *Handler
	id     core.ConnID
	send   core.Conn
	raw    *websocket.Conn
	roomID domain.RoomID

	principal domain.Principal
	state     State
}

// run drives the lifecycle until the transport closes. token comes
// from the query string, before any frame is read.
func (cn *conn) run(ctx context.Context, token string) {
	defer cn.teardown()

	cn.state = StateAuthenticating
	p, err := cn.h.Auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrMissingToken) {
			cn.closeWith(CloseMissingToken, "authentication token required")
		} else {
			cn.closeWith(CloseInvalidToken, "invalid token")
		}
		log.Info().Err(err).Str("module", "adapters.ws").Str("conn", string(cn.id)).Msg("authentication failed")
		return
	}
	if ctx.Err() != nil {
		// canceled mid-authentication: discard the result
		return
	}
	cn.principal = p

	cn.state = StateJoining
	exists, err := cn.h.Rooms.RoomExists(ctx, cn.roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Int64("room", int64(cn.roomID)).Msg("room lookup")
	}
	if err != nil || !exists {
		log.Info().Err(domain.ErrRoomNotFound).Str("module", "adapters.ws").Str("conn", string(cn.id)).Int64("room", int64(cn.roomID)).Msg("join rejected")
		cn.closeWith(CloseRoomNotFound, "debate session not found")
		return
	}
	if ctx.Err() != nil {
		return
	}

	members, err := cn.h.Sessions.Join(cn.roomID, cn.id, cn.send, p, time.Now())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Int64("room", int64(cn.roomID)).Msg("join failed")
		cn.closeWith(websocket.CloseInternalServerErr, "join failed")
		return
	}
	cn.state = StateActive
	log.Info().Str("module", "adapters.ws").Str("conn", string(cn.id)).Int64("room", int64(cn.roomID)).Int64("user", int64(p.ID)).Msg("connection active")

	cn.reply(core.Encode(core.NewPresenceEvent(core.TypeConnectionEstablished, p, members)))
	cn.h.Sessions.Publish(cn.roomID, core.Encode(core.NewPresenceEvent(core.TypeUserJoined, p, members)), cn.id)

	cn.readLoop(ctx)
}

func (cn *conn) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, raw, err := cn.raw.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.ws").Str("conn", string(cn.id)).Msg("read loop done")
			return
		}
		cn.dispatch(ctx, raw)
	}
}

// dispatch validates and routes one inbound frame. Decode and
// validation failures go back to the sender only; the connection
// stays active.
func (cn *conn) dispatch(ctx context.Context, raw []byte) {
	in, err := core.DecodeInbound(raw)
	if err != nil {
		var unknown *core.UnknownTypeError
		switch {
		case errors.As(err, &unknown):
			cn.replyError("Unknown message type: " + unknown.Type)
		default:
			cn.replyError("Invalid message payload")
		}
		return
	}

	switch in.Type {
	case core.TypeChatMessage:
		cn.handleChat(ctx, in)
	case core.TypeTypingStart, core.TypeTypingStop:
		cn.handleTyping(in)
	case core.TypeReaction:
		cn.handleReaction(in)
	}
}

// handleChat persists the message, then broadcasts it to the whole
// room including the sender. Persistence happens-before broadcast; a
// durability failure is surfaced to operators but never blocks
// delivery.
func (cn *conn) handleChat(ctx context.Context, in *core.Inbound) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		cn.replyError("Message cannot be empty")
		return
	}
	if len(text) > domain.MaxMessageLen {
		cn.replyError("Message too long")
		return
	}

	id := uuid.NewString()
	now := time.Now()
	if err := cn.h.Messages.Append(ctx, cn.roomID, cn.principal, id, text, now); err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Int64("room", int64(cn.roomID)).Str("message_id", id).Msg("persist failed, broadcasting anyway")
	}
	cn.h.Sessions.Publish(cn.roomID, core.Encode(core.NewMessageEvent(id, text, cn.principal, now)), "")
}

// handleTyping relays the indicator to everyone but the sender.
func (cn *conn) handleTyping(in *core.Inbound) {
	cn.h.Sessions.Publish(cn.roomID, core.Encode(core.NewTypingEvent(in.Type, cn.principal)), cn.id)
}

func (cn *conn) handleReaction(in *core.Inbound) {
	if in.MessageID == "" || in.Emoji == "" {
		cn.replyError("Reaction requires message_id and emoji")
		return
	}
	cn.h.Sessions.Publish(cn.roomID, core.Encode(core.NewReactionEvent(in.MessageID, in.Emoji, cn.principal)), "")
}

// teardown releases membership and announces the departure. Leave is
// idempotent so a partially established connection is safe here.
func (cn *conn) teardown() {
	cn.state = StateClosing
	roomID, p, members, wasJoined := cn.h.Sessions.Leave(cn.id)
	if wasJoined {
		cn.h.Sessions.Publish(roomID, core.Encode(core.NewPresenceEvent(core.TypeUserLeft, p, members)), "")
	}
	cn.send.Close()
	cn.state = StateClosed
	log.Info().Str("module", "adapters.ws").Str("conn", string(cn.id)).Msg("connection closed")
}

func (cn *conn) reply(f core.Frame) {
	if err := cn.send.TrySend(f); err != nil {
		log.Debug().Err(err).Str("module", "adapters.ws").Str("conn", string(cn.id)).Msg("reply dropped")
	}
}

func (cn *conn) replyError(msg string) {
	cn.reply(core.Encode(core.NewErrorEvent(msg)))
}

// closeWith writes the application close frame and closes the
// transport. WriteControl is safe alongside the writer goroutine.
func (cn *conn) closeWith(code int, reason string) {
	cn.state = StateClosing
	deadline := time.Now().Add(writeWait)
	if err := cn.raw.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Debug().Err(err).Str("module", "adapters.ws").Msg("write close frame")
	}
}
