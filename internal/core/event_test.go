package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/debatehub/internal/domain"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantErr  error
	}{
		{
			name:     "chat message",
			raw:      `{"type":"chat_message","message":"hello"}`,
			wantType: TypeChatMessage,
		},
		{
			name:     "typing start",
			raw:      `{"type":"typing_start"}`,
			wantType: TypeTypingStart,
		},
		{
			name:     "typing stop",
			raw:      `{"type":"typing_stop"}`,
			wantType: TypeTypingStop,
		},
		{
			name:     "reaction",
			raw:      `{"type":"reaction","message_id":"m1","emoji":"👍"}`,
			wantType: TypeReaction,
		},
		{
			name:    "not json",
			raw:     `{{{`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing type",
			raw:     `{"message":"hi"}`,
			wantErr: &UnknownTypeError{},
		},
		{
			name:    "unrecognized type",
			raw:     `{"type":"frobnicate"}`,
			wantErr: &UnknownTypeError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeInbound([]byte(tt.raw))
			if tt.wantErr != nil {
				require.Error(t, err)
				var unknown *UnknownTypeError
				if errors.As(tt.wantErr, &unknown) {
					assert.ErrorAs(t, err, &unknown)
				} else {
					assert.ErrorIs(t, err, ErrMalformedPayload)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, in.Type)
		})
	}
}

func TestDecodeInboundUnknownTypeCarriesName(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"frobnicate"}`))
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "frobnicate", unknown.Type)
	assert.Equal(t, "unknown message type: frobnicate", unknown.Error())
}

func TestDecodeInboundKeepsFields(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"reaction","message_id":"abc","emoji":"🔥"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", in.MessageID)
	assert.Equal(t, "🔥", in.Emoji)
}

func TestEncodeMessageEvent(t *testing.T) {
	p := domain.Principal{ID: 7, Username: "ada"}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := Encode(NewMessageEvent("m1", "hi", p, at))
	require.NotNil(t, f)

	in := string(f)
	assert.Contains(t, in, `"type":"message"`)
	assert.Contains(t, in, `"user_id":7`)
	assert.Contains(t, in, `"username":"ada"`)
	assert.Contains(t, in, `"timestamp":"2025-03-01T12:00:00Z"`)
}
