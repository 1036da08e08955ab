package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

// Options tune the transport. Zero values fall back to defaults.
type Options struct {
	ReadLimit  int64
	SendBuffer int
	PingPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit == 0 {
		o.ReadLimit = 32768
	}
	if o.SendBuffer == 0 {
		o.SendBuffer = 32
	}
	if o.PingPeriod == 0 {
		o.PingPeriod = 54 * time.Second
	}
	return o
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleDebateSocket upgrades the transport and runs the connection
// lifecycle in the request goroutine. The token travels as a query
// parameter and is checked after the handshake, so rejections carry
// the application close codes.
func (h *Handler) HandleDebateSocket(ctx context.Context, c *gin.Context, opts Options) {
	opts = opts.withDefaults()

	roomID, err := strconv.ParseInt(c.Param("debateID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid debate id"})
		return
	}
	token := c.Query("token")

	wsc, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("upgrade failed")
		return
	}
	wsc.SetReadLimit(opts.ReadLimit)
	pongWait := opts.PingPeriod * 10 / 9
	_ = wsc.SetReadDeadline(time.Now().Add(pongWait))
	wsc.SetPongHandler(func(string) error {
		return wsc.SetReadDeadline(time.Now().Add(pongWait))
	})

	sock := newSocket(wsc, opts.SendBuffer, opts.PingPeriod)
	cn := &conn{
		h:      h,
		id:     core.ConnID(uuid.NewString()),
		send:   sock,
		raw:    wsc,
		roomID: domain.RoomID(roomID),
		state:  StateConnecting,
	}
	log.Info().Str("module", "adapters.ws").Str("conn", string(cn.id)).Int64("room", roomID).Msg("new connection")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.Sessions.Bind(cn.id, cancel)

	go sock.writePump(ctx)
	go func() {
		<-ctx.Done()
		sock.Close()
	}()

	cn.run(ctx, token)
}
