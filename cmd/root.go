package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

var (
	cfg        = sleepy.DefaultConfig()
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use: "sleepy [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch level {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if envFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading env file %s: %v", envFile, err)
		}
	}

	viper.SetDefault("prefixes", []string{})
	viper.SetDefault("mentionable", true)
	viper.SetDefault("description", "")
	viper.SetDefault("owner_ids", []string{})

	viper.SetDefault("extensions.root", sleepy.DefaultExtensionsRoot)
	viper.SetDefault("extensions.autoload", true)
	viper.SetDefault("extensions.list", []string{})

	viper.SetDefault("http_cache.enabled", true)
	viper.SetDefault("http_cache.max_entries", sleepy.DefaultHTTPCacheMaxEntries)
	viper.SetDefault("http_cache.ttl", sleepy.DefaultHTTPCacheTTL)

	viper.SetDefault("database", sleepy.DefaultDatabase)
	viper.SetDefault("database_type", sleepy.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		sleepy.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		sleepy.DefaultDatabaseLogLevel.String(),
	)

	viper.SetDefault("log_level", sleepy.DefaultLogLevel.String())
	viper.SetDefault("menu_timeout", sleepy.DefaultMenuTimeout)
	viper.SetDefault("startup_timeout", sleepy.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", sleepy.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault(
		"discord.log_level",
		sleepy.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		sleepy.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		int(sleepy.DefaultDiscordGatewayIntent),
	)
	viper.SetDefault("discord.statuses", []string{})
	viper.SetDefault("discord.status_interval", sleepy.DefaultStatusInterval)

	// API config
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", sleepy.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.log_level", sleepy.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", sleepy.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		sleepy.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", sleepy.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", sleepy.DefaultIdleTimeout)

	// API: CORS config
	viper.SetDefault(
		"api.cors.allow_headers",
		sleepy.DefaultCORSAllowHeaders,
	)
	viper.SetDefault(
		"api.cors.allow_methods",
		sleepy.DefaultCORSAllowMethods,
	)
	viper.SetDefault(
		"api.cors.expose_headers",
		sleepy.DefaultCORSExposeHeaders,
	)
	viper.SetDefault("api.cors.allow_origins", []string{})
	viper.SetDefault("api.cors.max_age", sleepy.DefaultCORSMaxAge)
	viper.SetDefault(
		"api.cors.allow_credentials",
		sleepy.DefaultAPICORSAllowCredentials,
	)

	envPrefix := os.Getenv(sleepy.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = sleepy.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("error reading config file %s: %v", configFile, err)
		}
	}

	// Convert values to correct types
	viper.Set("prefixes", viper.GetStringSlice("prefixes"))
	viper.Set("owner_ids", viper.GetStringSlice("owner_ids"))
	viper.Set("extensions.list", viper.GetStringSlice("extensions.list"))
	viper.Set("discord.statuses", viper.GetStringSlice("discord.statuses"))
	viper.Set(
		"api.cors.allow_headers",
		viper.GetStringSlice("api.cors.allow_headers"),
	)
	viper.Set(
		"api.cors.allow_origins",
		viper.GetStringSlice("api.cors.allow_origins"),
	)
	viper.Set(
		"api.cors.allow_methods",
		viper.GetStringSlice("api.cors.allow_methods"),
	)
	viper.Set(
		"api.cors.expose_headers",
		viper.GetStringSlice("api.cors.expose_headers"),
	)

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(strings.ToUpper(lvl)))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file to use",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env",
		"",
		"Env file to load before reading the config",
	)
}
