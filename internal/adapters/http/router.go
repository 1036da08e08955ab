// Package http wires the gin router: the websocket endpoint plus the
// small operational surface around it.
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/adapters/ws"
	"github.com/dkeye/debatehub/internal/app"
	"github.com/dkeye/debatehub/internal/config"
	"github.com/dkeye/debatehub/internal/domain"
)

func SetupRouter(ctx context.Context, cfg *config.Config, h *ws.Handler, sup *app.Supervisor) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	opts := ws.Options{
		ReadLimit:  cfg.ReadLimit,
		SendBuffer: cfg.SendBuffer,
		PingPeriod: cfg.PingPeriod,
	}
	r.GET("/ws/debates/:debateID/", func(c *gin.Context) {
		h.HandleDebateSocket(ctx, c, opts)
	})

	// Presence read for administrative tooling.
	api := r.Group("/api")
	api.GET("/debates/:debateID/participants", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("debateID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid debate id"})
			return
		}
		members, err := sup.Participants(domain.RoomID(id))
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Int64("room", id).Msg("participants read")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "presence unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"participants": members, "count": len(members)})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
