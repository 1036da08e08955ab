package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/debatehub/internal/adapters/ws"
	"github.com/dkeye/debatehub/internal/app"
	"github.com/dkeye/debatehub/internal/config"
	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func newTestRouter(t *testing.T) (*gin.Engine, *app.Supervisor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sup := app.NewSupervisor(core.NewMemoryPresence(), core.NewRoomBroadcaster())
	h := &ws.Handler{Sessions: sup}
	cfg := &config.Config{Mode: "test"}
	return SetupRouter(context.Background(), cfg, h, sup), sup
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParticipantsRead(t *testing.T) {
	r, sup := newTestRouter(t)
	_, err := sup.Join(42, "c1", nopConn{}, domain.Principal{ID: 1, Username: "ada"}, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debates/42/participants", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Participants []core.Participant `json:"participants"`
		Count        int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Participants, 1)
	assert.Equal(t, "ada", body.Participants[0].Username)
	assert.True(t, body.Participants[0].IsOnline)
}

func TestParticipantsEmptyRoom(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debates/7/participants", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
}

func TestParticipantsInvalidID(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debates/nope/participants", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
