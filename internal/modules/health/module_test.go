package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/health/service"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPositions struct{}

func (stubPositions) Positions() []models.Position {
	return []models.Position{{Pair: "LTC/USD", Amount: 36, EntryPrice: 100, Leverage: 3}}
}
func (stubPositions) TotalBalance() float64 { return 6400 }

type stubTrades struct {
	err   error
	limit int
}

func (s *stubTrades) Recent(_ context.Context, limit int) ([]models.TradeRecord, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []models.TradeRecord{{Pair: "LTC/USD", Action: models.ActionBuy, Size: 36, Price: 100}}, nil
}

type env struct {
	trades *stubTrades
	state  *service.State
	store  *service.DecisionStore
	hub    *service.Hub
	r      *gin.Engine
}

func newEnv() env {
	gin.SetMode(gin.TestMode)
	e := env{trades: &stubTrades{}, state: service.NewState(), store: service.NewDecisionStore(), hub: service.NewHub()}
	e.r = NewRouter(e.state, e.store, stubPositions{}, e.trades, e.hub)
	return e
}

func (e env) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv()

	assert.Equal(t, http.StatusOK, e.get("/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.get("/readyz").Code)

	e.state.SetReady(true)
	e.state.SetHalted(true)
	e.state.TouchCycle(time.Unix(1700000000, 0))
	assert.Equal(t, http.StatusOK, e.get("/readyz").Code)

	w := e.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["halted"])
	assert.EqualValues(t, 1700000000, body["lastCycleUnix"])
	assert.EqualValues(t, 1, body["cycles"])
}

func TestDecisionRoutes(t *testing.T) {
	e := newEnv()
	e.store.Publish(models.Decision{Pair: "ADA/USD", Action: models.ActionBuy, Score: 1.2})
	e.store.Publish(models.Decision{Pair: "ADA/USD", Action: models.ActionHold, Score: 0.1})

	w := e.get("/decisions/ada-usd")
	require.Equal(t, http.StatusOK, w.Code)
	var d models.Decision
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, models.ActionHold, d.Action)

	assert.Equal(t, http.StatusNotFound, e.get("/decisions/DOT-USD").Code)

	w = e.get("/decisions")
	var all []models.Decision
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestPositionsAndTrades(t *testing.T) {
	e := newEnv()

	w := e.get("/positions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":6400`)
	assert.Contains(t, w.Body.String(), "LTC/USD")

	w = e.get("/trades")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"buy"`)
	assert.Equal(t, defaultTradesLimit, e.trades.limit)

	require.Equal(t, http.StatusOK, e.get("/trades?limit=5000").Code)
	assert.Equal(t, maxTradesLimit, e.trades.limit)

	assert.Equal(t, http.StatusBadRequest, e.get("/trades?limit=abc").Code)

	e.trades.err = errors.New("db is down")
	assert.Equal(t, http.StatusServiceUnavailable, e.get("/trades").Code)
}

func TestWebsocketFeed(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.hub.Run(ctx)

	srv := httptest.NewServer(e.r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	e.hub.Publish(models.Decision{Pair: "ADA/USD", Action: models.ActionBuy})
	_ = e.hub.Record(ctx, models.TradeRecord{Pair: "ADA/USD", Action: models.ActionBuy})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kinds := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var f struct {
			Type string `json:"type"`
		}
		require.NoError(t, sonic.Unmarshal(msg, &f))
		kinds = append(kinds, f.Type)
	}
	assert.Equal(t, []string{"decision", "trade"}, kinds)
}

func TestNormalizePair(t *testing.T) {
	assert.Equal(t, "ADA/USD", normalizePair("ada-usd"))
	assert.Equal(t, "LTC/USD", normalizePair("LTC_USD"))
	assert.Equal(t, "BTC", normalizePair("btc"))
}
