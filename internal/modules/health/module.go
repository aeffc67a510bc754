package health

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"multisignal_bot/internal/helper"
	"multisignal_bot/internal/models"
	"multisignal_bot/internal/modules/config"
	"multisignal_bot/internal/modules/health/service"
	"multisignal_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg config.Config) Config {
	return Config{Addr: cfg.Service.HTTPAddr}
}

type PositionsSource interface {
	Positions() []models.Position
	TotalBalance() float64
}

type TradesSource interface {
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
}

const (
	defaultTradesLimit = 100
	maxTradesLimit     = 1000
)

// normalizePair: в URL пара приходит как ADA-USD или ada_usd.
func normalizePair(raw string) string {
	base, quote := helper.SplitPair(raw)
	if quote == "" {
		return base
	}
	return base + "/" + quote
}

func NewRouter(
	state *service.State,
	decisions *service.DecisionStore,
	positions PositionsSource,
	trades TradesSource,
	hub *service.Hub,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/livez", func(c *gin.Context) {
		// liveness: процесс жив
		c.String(http.StatusOK, "ok")
	})

	r.GET("/readyz", func(c *gin.Context) {
		if !state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})

	r.GET("/healthz", func(c *gin.Context) {
		lastCycle := int64(0)
		if t := state.LastCycle(); !t.IsZero() {
			lastCycle = t.Unix()
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":         state.Ready(),
			"halted":        state.Halted(),
			"uptimeSec":     int64(state.Uptime().Seconds()),
			"lastCycleUnix": lastCycle,
			"cycles":        state.Cycles(),
			"wsClients":     hub.Clients(),
		})
	})

	r.GET("/decisions", func(c *gin.Context) {
		c.JSON(http.StatusOK, decisions.All())
	})

	r.GET("/decisions/:pair", func(c *gin.Context) {
		pair := normalizePair(c.Param("pair"))
		d, ok := decisions.Get(pair)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no decision for " + pair})
			return
		}
		c.JSON(http.StatusOK, d)
	})

	r.GET("/positions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"balance":   positions.TotalBalance(),
			"positions": positions.Positions(),
		})
	})

	r.GET("/trades", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTradesLimit)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if limit > maxTradesLimit {
			limit = maxTradesLimit
		}
		recs, err := trades.Recent(c.Request.Context(), limit)
		if err != nil {
			logger.Warn("[HTTP] trades: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade history unavailable"})
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.GET("/ws", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg Config, engine *gin.Engine, hub *service.Hub) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	hubCtx, stopHub := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				stopHub()
				return err
			}
			go hub.Run(hubCtx)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopHub()
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	gin.SetMode(gin.ReleaseMode)
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			service.NewDecisionStore,
			service.NewHub,
			NewConfig,
			NewRouter,
			func(store *service.DecisionStore, hub *service.Hub) models.DecisionSink {
				return service.Feed{store, hub}
			},
		),
		fx.Invoke(RunHTTP),
	)
}
