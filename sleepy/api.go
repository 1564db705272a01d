package sleepy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

// API is the optional status server: a small read-only surface for
// uptime monitoring.
type API struct {
	bot        *Bot
	config     *APIConfig
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

func newAPI(bot *Bot, config *APIConfig) (*API, error) {
	logger := slog.New(
		newLogHandler(os.Stdout, config.LogLevel),
	).With(loggerNameKey, "api")

	api := &API{
		bot:    bot,
		config: config,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := config.CORS.GINConfig()
	if len(corsConfig.AllowOrigins) > 0 {
		engine.Use(cors.New(corsConfig))
	}

	engine.GET("/status", api.getStatus)
	engine.GET("/stats", api.getStats)

	api.engine = engine
	api.httpServer = &http.Server{
		Handler:           engine,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return api, nil
}

// Serve listens until the context ends, then shuts the server down.
func (a *API) Serve(ctx context.Context) error {
	network := a.config.ListenNetwork
	if network == "" {
		network = defaultListenNetwork
	}
	listener, err := net.Listen(network, a.config.Listen)
	if err != nil {
		return err
	}
	a.logger.Info("status api listening", "listen", a.config.Listen)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.httpServer.Serve(listener)
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.bot.config.ShutdownTimeout,
	)
	defer cancel()

	if err = a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("error shutting down status api", tint.Err(err))
		return err
	}
	return nil
}

type statusResponse struct {
	Version          string  `json:"version"`
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	GatewayConnected bool    `json:"gateway_connected"`
	GatewayLatencyMS int64   `json:"gateway_latency_ms"`
	GuildCount       int     `json:"guild_count"`
	ExtensionsLoaded int     `json:"extensions_loaded"`
	CommandCount     int     `json:"command_count"`
}

func (a *API) getStatus(c *gin.Context) {
	uptime := time.Since(a.bot.startedAt)
	c.JSON(
		http.StatusOK, statusResponse{
			Version:          Version,
			Uptime:           uptime.Round(time.Second).String(),
			UptimeSeconds:    uptime.Seconds(),
			GatewayConnected: a.bot.discord.connected.Load(),
			GatewayLatencyMS: a.bot.discord.heartbeatLatency().Milliseconds(),
			GuildCount:       len(a.bot.discord.session.State.Guilds),
			ExtensionsLoaded: len(a.bot.extensions.Loaded()),
			CommandCount:     len(a.bot.router.Commands()),
		},
	)
}

type statsResponse struct {
	TotalInvocations  int64          `json:"total_invocations"`
	FailedInvocations int64          `json:"failed_invocations"`
	TopCommands       []CommandUsage `json:"top_commands"`
}

func (a *API) getStats(c *gin.Context) {
	total, failed, err := invocationCounts(a.bot.db, time.Time{})
	if err != nil {
		a.logger.Error("error counting invocations", tint.Err(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	usage, err := commandUsageCounts(a.bot.db, 10)
	if err != nil {
		a.logger.Error("error loading command usage", tint.Err(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(
		http.StatusOK, statsResponse{
			TotalInvocations:  total,
			FailedInvocations: failed,
			TopCommands:       usage,
		},
	)
}
