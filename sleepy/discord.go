package sleepy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// Discord owns the gateway session and its lifecycle handlers.
type Discord struct {
	session            *discordgo.Session
	config             *DiscordConfig
	logger             *slog.Logger
	httpClient         *http.Client
	metricConnects     atomic.Int64
	metricDisconnects  atomic.Int64
	metricResumes      atomic.Int64
	connected          atomic.Bool
	removeHandlerFuncs []func()
	bot                *Bot
}

func newDiscord(
	bot *Bot,
	config *DiscordConfig,
	httpClient *http.Client,
	logger *slog.Logger,
) (*Discord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discord{
		bot:                bot,
		config:             config,
		logger:             logger.With(loggerNameKey, "discord"),
		httpClient:         httpClient,
		removeHandlerFuncs: []func(){},
	}

	session, err := d.newSession()
	if err != nil {
		return nil, err
	}
	d.session = session
	return d, nil
}

// newSession builds the gateway session. Event handlers run
// concurrently: interactive command helpers block on later gateway
// events, which would deadlock a synchronous dispatch loop. State
// tracking stays enabled for permission computation.
func (d *Discord) newSession() (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	session.SyncEvents = false
	session.StateEnabled = true
	session.Identify.Intents = d.config.GatewayIntents
	if d.httpClient != nil {
		session.Client = d.httpClient
	}

	if d.config.DiscordGoLogLevel != nil {
		session.LogLevel = discordgoLogLevel(d.config.DiscordGoLogLevel.Level())
	}
	return session, nil
}

// discordgoLogLevel converts a slog level to discordgo's message
// level scale.
func discordgoLogLevel(lvl slog.Level) int {
	switch {
	case lvl <= slog.LevelDebug:
		return discordgo.LogDebug
	case lvl <= slog.LevelInfo:
		return discordgo.LogInformational
	case lvl <= slog.LevelWarn:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}

// open registers the lifecycle handlers and connects to the gateway.
func (d *Discord) open(ctx context.Context) error {
	discordgo.Logger = discordgoLoggerFunc(ctx, d.bot.logHandler)

	d.removeHandlerFuncs = append(
		d.removeHandlerFuncs,
		d.session.AddHandler(d.handlerReady()),
		d.session.AddHandler(d.handlerConnect()),
		d.session.AddHandler(d.handlerDisconnect()),
		d.session.AddHandler(d.handlerResume()),
	)

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}
	return nil
}

func (d *Discord) close() error {
	for _, remove := range d.removeHandlerFuncs {
		remove()
	}
	d.removeHandlerFuncs = []func(){}
	return d.session.Close()
}

func (d *Discord) handlerReady() func(
	s *discordgo.Session,
	r *discordgo.Ready,
) {
	return func(s *discordgo.Session, _ *discordgo.Ready) {
		d.logger.Info(
			"ready",
			"session_id", s.State.SessionID,
			"user_id", s.State.User.ID,
			"username", s.State.User.Username,
		)
	}
}

func (d *Discord) handlerConnect() func(
	s *discordgo.Session,
	r *discordgo.Connect,
) {
	return func(s *discordgo.Session, _ *discordgo.Connect) {
		d.metricConnects.Add(1)
		d.connected.Store(true)

		var sessionID string
		var userID string
		var username string
		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
			if s.State.User != nil {
				userID = s.State.User.ID
				username = s.State.User.Username
			}
		}
		d.logger.Info(
			"connected",
			"session_id", sessionID,
			slog.Group("user", "id", userID, "username", username),
		)
	}
}

func (d *Discord) handlerDisconnect() func(
	s *discordgo.Session,
	r *discordgo.Disconnect,
) {
	return func(s *discordgo.Session, _ *discordgo.Disconnect) {
		d.connected.Store(false)
		d.metricDisconnects.Add(1)

		var sessionID string
		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
		}
		d.logger.Info("disconnected", "session_id", sessionID)
	}
}

func (d *Discord) handlerResume() func(
	s *discordgo.Session,
	r *discordgo.Resumed,
) {
	return func(_ *discordgo.Session, _ *discordgo.Resumed) {
		d.connected.Store(true)
		d.metricResumes.Add(1)
		d.logger.Info("resumed")
	}
}

// statusLoop rotates through the configured custom statuses until the
// context ends. A single status is set once.
func (d *Discord) statusLoop(ctx context.Context) {
	statuses := d.config.Statuses
	if len(statuses) == 0 {
		return
	}

	if err := d.session.UpdateCustomStatus(statuses[0]); err != nil {
		d.logger.Warn("error setting custom status", tint.Err(err))
	}
	if len(statuses) == 1 {
		return
	}

	interval := d.config.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.session.UpdateCustomStatus(statuses[next]); err != nil {
				d.logger.Warn("error rotating custom status", tint.Err(err))
			}
			next = (next + 1) % len(statuses)
		}
	}
}

// heartbeatLatency returns the gateway heartbeat round trip time.
func (d *Discord) heartbeatLatency() time.Duration {
	return d.session.HeartbeatLatency()
}
