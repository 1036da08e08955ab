package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// socket owns the outbound half of one websocket connection: a
// buffered send queue drained by a single writer goroutine. TrySend
// never blocks; a full queue drops the frame and reports backpressure.
type socket struct {
	conn       *websocket.Conn
	send       chan core.Frame
	pingPeriod time.Duration

	mu     sync.RWMutex
	closed bool
}

func newSocket(conn *websocket.Conn, sendBuffer int, pingPeriod time.Duration) *socket {
	return &socket{
		conn:       conn,
		send:       make(chan core.Frame, sendBuffer),
		pingPeriod: pingPeriod,
	}
}

func (s *socket) TrySend(f core.Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (s *socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	_ = s.conn.Close()
	s.mu.Unlock()
}

func (s *socket) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("writePump ping")
				return
			}
		case data, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}
