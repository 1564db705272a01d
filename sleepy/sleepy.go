package sleepy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Set via ldflags at build time.
var (
	Version   = "dev"
	CommitSHA = ""
	BuildTime = ""
)

// GitHubURL is the canonical home of this project's source code.
const GitHubURL = "https://github.com/HitchedSyringe/Sleepy"

var defaultLogWriter io.Writer = os.Stdout

// Bot is the top-level assembly: gateway session, command router,
// extension manager, HTTP requester, database, and status API.
type Bot struct {
	config     *Config
	logHandler slog.Handler
	logger     *slog.Logger

	discord    *Discord
	Requester  *Requester
	extensions *ExtensionManager
	router     *Router
	menus      *menuManager
	db         *gorm.DB
	api        *API

	startedAt time.Time

	ownerMu  sync.RWMutex
	ownerIDs map[string]bool

	runMu   sync.Mutex
	running bool
	runCtx  context.Context
	stopRun context.CancelFunc
}

// New assembles a Bot from the given config. The returned bot is
// inert until Run is called.
func New(config *Config) (*Bot, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := structValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	b := &Bot{
		config:   config,
		ownerIDs: map[string]bool{},
	}
	for _, id := range config.OwnerIDs {
		b.ownerIDs[id] = true
	}

	b.logHandler = tint.NewHandler(
		defaultLogWriter, &tint.Options{
			Level:     config.LogLevel,
			AddSource: true,
		},
	)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	var cache Cache
	if config.HTTPCache.Enabled {
		cache = NewMemoryCache(config.HTTPCache.MaxEntries, config.HTTPCache.TTL)
	}
	b.Requester = NewRequester(config.HTTPClient, cache, b.logger)

	discordLogger := slog.New(
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     config.Discord.LogLevel,
				AddSource: true,
			},
		),
	)
	disc, err := newDiscord(b, config.Discord, config.HTTPClient, discordLogger)
	if err != nil {
		return nil, err
	}
	b.discord = disc

	b.router = newRouter(b, config.Prefixes, config.Mentionable, b.logger)
	b.extensions = newExtensionManager(b, config.Extensions.Root, b.logger)
	b.menus = newMenuManager(b, b.logger)

	if config.API != nil && config.API.Enabled {
		api, apiErr := newAPI(b, config.API)
		if apiErr != nil {
			return nil, apiErr
		}
		b.api = api
	}

	return b, nil
}

// Config returns the bot's configuration.
func (b *Bot) Config() *Config {
	return b.config
}

// Router returns the command router.
func (b *Bot) Router() *Router {
	return b.router
}

// Extensions returns the extension manager.
func (b *Bot) Extensions() *ExtensionManager {
	return b.extensions
}

// DB returns the bot database.
func (b *Bot) DB() *gorm.DB {
	return b.db
}

// Session returns the gateway session.
func (b *Bot) Session() *discordgo.Session {
	return b.discord.session
}

// StartedAt returns when Run was called, or the zero time before
// that.
func (b *Bot) StartedAt() time.Time {
	return b.startedAt
}

// Latency returns the gateway heartbeat round trip time.
func (b *Bot) Latency() time.Duration {
	return b.discord.heartbeatLatency()
}

// GatewayStats returns counts of gateway connects, disconnects and
// resumes observed since Run was called.
func (b *Bot) GatewayStats() (connects, disconnects, resumes int64) {
	return b.discord.metricConnects.Load(),
		b.discord.metricDisconnects.Load(),
		b.discord.metricResumes.Load()
}

// CommandUsage returns per-command invocation counts from the
// database, most used first. A limit of 0 returns everything.
func (b *Bot) CommandUsage(limit int) ([]CommandUsage, error) {
	if b.db == nil {
		return nil, errors.New("sleepy: no database configured")
	}
	return commandUsageCounts(b.db, limit)
}

// InvocationStats returns total and failed invocation counts since
// the given time. A zero time counts everything on record.
func (b *Bot) InvocationStats(since time.Time) (total, failed int64, err error) {
	if b.db == nil {
		return 0, 0, errors.New("sleepy: no database configured")
	}
	return invocationCounts(b.db, since)
}

// UserID returns the bot's own user ID, or "" before the gateway
// session is ready.
func (b *Bot) UserID() string {
	state := b.discord.session.State
	if state == nil || state.User == nil {
		return ""
	}
	return state.User.ID
}

// IsOwner reports whether the given user is a bot owner.
func (b *Bot) IsOwner(userID string) bool {
	b.ownerMu.RLock()
	defer b.ownerMu.RUnlock()
	return b.ownerIDs[userID]
}

// OwnerIDs returns the bot owners' user IDs.
func (b *Bot) OwnerIDs() []string {
	b.ownerMu.RLock()
	defer b.ownerMu.RUnlock()
	ids := make([]string, 0, len(b.ownerIDs))
	for id := range b.ownerIDs {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bot) setOwnerIDs(ids []string) {
	b.ownerMu.Lock()
	defer b.ownerMu.Unlock()
	b.ownerIDs = map[string]bool{}
	for _, id := range ids {
		b.ownerIDs[id] = true
	}
}

// detectOwners resolves the application's owner, or its team members,
// as the bot owners. Used when no owner IDs are configured.
func (b *Bot) detectOwners() error {
	app, err := b.discord.session.Application("@me")
	if err != nil {
		return fmt.Errorf("error fetching application info: %w", err)
	}

	var ids []string
	if app.Team != nil {
		for _, member := range app.Team.Members {
			if member.User != nil {
				ids = append(ids, member.User.ID)
			}
		}
	} else if app.Owner != nil {
		ids = append(ids, app.Owner.ID)
	}

	if len(ids) == 0 {
		return errors.New("application info contained no owners")
	}
	b.setOwnerIDs(ids)
	return nil
}

// runContext returns the bot's run context, for work done on behalf
// of command invocations.
func (b *Bot) runContext() context.Context {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.runCtx == nil {
		return context.Background()
	}
	return b.runCtx
}

func (b *Bot) allowedMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{
			discordgo.AllowedMentionTypeUsers,
		},
	}
}

func (b *Bot) menuTimeout() time.Duration {
	if b.config.MenuTimeout > 0 {
		return b.config.MenuTimeout
	}
	return DefaultMenuTimeout
}

// recordInvocation persists a CommandInvocation row for the dispatch.
func (b *Bot) recordInvocation(ctx *Context, cmdErr error) {
	if b.db == nil {
		return
	}

	record := CommandInvocation{
		Command:   ctx.Command.Name,
		Extension: ctx.Command.Extension,
		UserID:    ctx.Author().ID,
		ChannelID: ctx.Message.ChannelID,
		GuildID:   ctx.Message.GuildID,
		Prefix:    ctx.Prefix,
		Failed:    cmdErr != nil,
	}
	if cmdErr != nil {
		record.ErrorKind = strings.TrimPrefix(
			fmt.Sprintf("%T", cmdErr), "*sleepy.",
		)
	}

	if rv := b.db.WithContext(b.runContext()).Create(&record); rv.Error != nil {
		b.logger.Error(
			"error recording command invocation",
			"command", record.Command,
			tint.Err(rv.Error),
		)
	}
}

// RegisterExtension adds an extension constructor to the registry
// under the given name, e.g. "ext/meta".
func (b *Bot) RegisterExtension(name string, ctor ExtensionConstructor) error {
	return b.extensions.Register(name, ctor)
}

// loadExtensions resolves the configured extension names and loads
// them. Individual load failures are logged and skipped.
func (b *Bot) loadExtensions() (loaded int, failed int) {
	var names []string
	if b.config.Extensions.Autoload {
		names = b.extensions.Names()
	} else {
		names = b.extensions.ExpandNames(b.config.Extensions.List)
	}

	for _, name := range names {
		if err := b.extensions.Load(name); err != nil {
			failed++
			b.logger.Error(
				"error loading extension",
				"extension", name,
				tint.Err(err),
			)
			continue
		}
		loaded++
	}
	return loaded, failed
}

// Stop requests a running bot to shut down. It is a no-op before Run
// is called.
func (b *Bot) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.stopRun != nil {
		b.stopRun()
	}
}

// Run starts the bot and blocks until the context ends, Stop is
// called, or a fatal component error occurs. A Bot can only be run
// once.
func (b *Bot) Run(ctx context.Context) error {
	b.runMu.Lock()
	if b.running {
		b.runMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.runCtx = ctx
	b.stopRun = cancel
	b.runMu.Unlock()

	b.startedAt = time.Now()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	db, err := openDatabase(
		startCtx,
		b.config.DatabaseType,
		b.config.Database,
		b.logHandler,
		b.config.DatabaseSlowThreshold,
	)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	b.db = db

	loaded, failed := b.loadExtensions()

	removeRouterHandler := b.discord.session.AddHandler(
		b.router.handleMessageCreate,
	)
	defer removeRouterHandler()
	removeMenuHandler := b.discord.session.AddHandler(
		b.menus.handleInteraction,
	)
	defer removeMenuHandler()

	if err = b.discord.open(ctx); err != nil {
		return err
	}

	if len(b.OwnerIDs()) == 0 {
		if err = b.detectOwners(); err != nil {
			b.logger.Warn("error detecting bot owners", tint.Err(err))
		}
	}

	b.logger.Info(
		"bot is up",
		"version", Version,
		"user_id", b.UserID(),
		"extensions_registered", len(b.extensions.Names()),
		"extensions_loaded", loaded,
		"extensions_failed", failed,
		"commands", len(b.router.Commands()),
		"owner_ids", b.OwnerIDs(),
		"intents", int(b.config.Discord.GatewayIntents),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(
		func() error {
			b.discord.statusLoop(egCtx)
			return nil
		},
	)
	if b.api != nil {
		eg.Go(
			func() error {
				return b.api.Serve(egCtx)
			},
		)
	}

	runErr := eg.Wait()
	b.shutdown()
	return runErr
}

// shutdown releases everything Run acquired, in reverse order.
func (b *Bot) shutdown() {
	b.logger.Info("shutting down")

	b.menus.stopAll(b.discord.session)

	if err := b.discord.close(); err != nil {
		b.logger.Warn("error closing discord session", tint.Err(err))
	}

	if unloadErrs := b.extensions.UnloadAll(); len(unloadErrs) > 0 {
		for _, err := range unloadErrs {
			b.logger.Warn("error unloading extension", tint.Err(err))
		}
	}

	if b.db != nil {
		if sqlDB, err := b.db.DB(); err == nil {
			if err = sqlDB.Close(); err != nil {
				b.logger.Warn("error closing database", tint.Err(err))
			}
		}
	}
	b.logger.Info("shutdown complete")
}
