//nolint:lll // struct tags can't be split
package sleepy

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
	"github.com/go-playground/validator/v10"
)

const (
	EnvvarSetEnvPrefix = "SLEEPY_ENV_PREFIX"
	DefaultEnvPrefix   = "SLEEPY"

	DefaultDatabaseType          = "sqlite"
	DefaultDatabase              = "sleepy.sqlite3"
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultDatabaseLogLevel      = slog.LevelInfo

	DefaultLogLevel          = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelInfo
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultAPILogLevel       = slog.LevelInfo

	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 60 * time.Second

	DefaultExtensionsRoot = "ext"

	DefaultHTTPCacheMaxEntries = 64
	DefaultHTTPCacheTTL        = 4 * time.Hour
	DefaultHTTPTimeout         = 30 * time.Second

	DefaultMenuTimeout    = 3 * time.Minute
	DefaultStatusInterval = 5 * time.Minute

	DefaultDiscordGatewayIntent = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentMessageContent

	DefaultAPIListen         = "127.0.0.1:5000"
	defaultListenNetwork     = "tcp"
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second

	DefaultAPICORSAllowCredentials = false
	DefaultCORSMaxAge              = 12 * time.Hour
)

var (
	DefaultCORSAllowMethods = []string{
		http.MethodGet,
		http.MethodOptions,
		http.MethodHead,
	}
	DefaultCORSAllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Accept",
		"Cache-Control",
	}
	DefaultCORSExposeHeaders = []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
	}
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

type Config struct {
	// Prefixes the command router responds to, tried in order.
	Prefixes []string `yaml:"prefixes" mapstructure:"prefixes" json:"prefixes"`

	// Mentionable makes @mentioning the bot work as a prefix. When no
	// prefixes are configured the bot is mention-only regardless.
	Mentionable bool `yaml:"mentionable" mapstructure:"mentionable" json:"mentionable"`

	// Description is shown in the help and invite output.
	Description string `yaml:"description" mapstructure:"description" json:"description"`

	// OwnerIDs lists the bot owners' user IDs. When empty, owners are
	// detected from the Discord application's team on startup.
	OwnerIDs []string `yaml:"owner_ids" mapstructure:"owner_ids" json:"owner_ids"`

	// Extensions configures extension discovery and loading.
	Extensions ExtensionsConfig `yaml:"extensions" mapstructure:"extensions" json:"extensions"`

	// HTTPCache configures the requester's response cache.
	HTTPCache HTTPCacheConfig `yaml:"http_cache" mapstructure:"http_cache" json:"http_cache"`

	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// Discord configures the gateway connection itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// API configures the status API server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// MenuTimeout is how long pagination menus and prompts stay live.
	MenuTimeout time.Duration `yaml:"menu_timeout" mapstructure:"menu_timeout" json:"menu_timeout" binding:"min=0"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After
	// this elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// ExtensionsConfig configures which extensions load on startup.
type ExtensionsConfig struct {
	// Root is the registry prefix the `$` alias expands to.
	Root string `yaml:"root" mapstructure:"root" json:"root"`

	// Autoload loads every registered extension, ignoring List.
	Autoload bool `yaml:"autoload" mapstructure:"autoload" json:"autoload"`

	// List names the extensions to load. Supports the `$` root alias,
	// `{a,b}` brace sets, and a trailing `/*` wildcard.
	List []string `yaml:"list" mapstructure:"list" json:"list"`
}

// HTTPCacheConfig configures the requester's response cache.
type HTTPCacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// MaxEntries caps the cache size. Oldest entries are evicted first.
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" json:"max_entries" binding:"min=0"`

	// TTL is how long a cached response stays valid. 0=forever
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl" binding:"min=0"`
}

// DiscordConfig configures the discord connection itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// Statuses is rotated through as the bot's custom status, one per
	// status update interval. A single entry is set once and kept.
	Statuses []string `yaml:"statuses" mapstructure:"statuses" json:"statuses"`

	// StatusInterval is the delay between status rotations.
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval" json:"status_interval" binding:"min=0"`
}

// APIConfig configures the status API server
type APIConfig struct {
	// Determines if the status API should be active.
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000").
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true,hostname_port|filepath"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix").
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,oneof=tcp tcp4 tcp6 unix"`

	// The logging level for the API server.
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Cross-origin configuration
	CORS CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`

	// Maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" binding:"required_if=Enabled true,min=1s"`

	// Amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" binding:"required_if=Enabled true,min=1s"`
}

// CORSConfig specifies cross-origin resource sharing settings
type CORSConfig struct {
	AllowOrigins     []string      `yaml:"allow_origins" mapstructure:"allow_origins" json:"allow_origins"`
	AllowMethods     []string      `yaml:"allow_methods" mapstructure:"allow_methods" json:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers" mapstructure:"allow_headers" json:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers" mapstructure:"expose_headers" json:"expose_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials" json:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
}

func (c CORSConfig) GINConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		MaxAge:           c.MaxAge,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
	}
}

func DefaultCORSConfig() CORSConfig {
	defaultMethods := make([]string, len(DefaultCORSAllowMethods))
	copy(defaultMethods, DefaultCORSAllowMethods)

	defaultHeaders := make([]string, len(DefaultCORSAllowHeaders))
	copy(defaultHeaders, DefaultCORSAllowHeaders)

	defaultExpose := make([]string, len(DefaultCORSExposeHeaders))
	copy(defaultExpose, DefaultCORSExposeHeaders)

	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     defaultMethods,
		AllowHeaders:     defaultHeaders,
		ExposeHeaders:    defaultExpose,
		MaxAge:           DefaultCORSMaxAge,
		AllowCredentials: DefaultAPICORSAllowCredentials,
	}
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		Prefixes:    []string{},
		Mentionable: true,
		Extensions: ExtensionsConfig{
			Root:     DefaultExtensionsRoot,
			Autoload: true,
			List:     []string{},
		},
		HTTPCache: HTTPCacheConfig{
			Enabled:    true,
			MaxEntries: DefaultHTTPCacheMaxEntries,
			TTL:        DefaultHTTPCacheTTL,
		},
		Database:              DefaultDatabase,
		DatabaseType:          DefaultDatabaseType,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		Discord: &DiscordConfig{
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
			GatewayIntents:    DefaultDiscordGatewayIntent,
		},
		API: &APIConfig{
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          apiLogLevel,
			CORS:              DefaultCORSConfig(),
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		LogLevel:        mainLogLevel,
		MenuTimeout:     DefaultMenuTimeout,
		StartupTimeout:  DefaultStartupTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		HTTPClient:      &http.Client{Timeout: DefaultHTTPTimeout},
	}
}
