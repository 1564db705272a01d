package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

// defaultConfigYAML is the starter config written by the init
// subcommand. Values track the sleepy.Default* constants.
const defaultConfigYAML = `# Sleepy bot configuration.
#
# Every key can also be set via environment variable using the SLEEPY_
# prefix, with dots replaced by underscores (e.g. discord.token becomes
# SLEEPY_DISCORD_TOKEN).

# Command prefixes, tried in order. With mentionable set, @mentioning
# the bot also works as a prefix.
prefixes: []
mentionable: true

description: ""

# Bot owner user IDs. Leave empty to detect owners from the Discord
# application's team on startup.
owner_ids: []

extensions:
  root: ext
  autoload: true
  # Used when autoload is false. Supports the $ root alias, {a,b}
  # brace sets, and a trailing /* wildcard, e.g. "$/{fun,meta}".
  list: []

http_cache:
  enabled: true
  max_entries: 64
  ttl: 4h

database: sleepy.sqlite3
database_type: sqlite
database_log_level: INFO
database_slow_threshold: 200ms

log_level: INFO
menu_timeout: 3m
startup_timeout: 30s
shutdown_timeout: 60s

discord:
  token: ""
  application_id: ""
  log_level: INFO
  discordgo_log_level: WARN
  # statuses are rotated through every status_interval.
  statuses: []
  status_interval: 5m

api:
  enabled: false
  listen: 127.0.0.1:5000
  listen_network: tcp
  log_level: INFO
  read_timeout: 5s
  read_header_timeout: 5s
  write_timeout: 10s
  idle_timeout: 30s
  cors:
    allow_origins: []
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [config file]",
	Short: "Write a starter config file and initialize the database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		target := "config.yaml"
		if len(args) > 0 {
			target = args[0]
		}

		if _, err := os.Stat(target); err == nil && !initForce {
			log.Fatalf(
				"%s already exists (pass --force to overwrite)", target,
			)
		}
		if err := os.WriteFile(target, []byte(defaultConfigYAML), 0o600); err != nil {
			log.Fatalf("Error writing config file: %v", err)
		}
		fmt.Fprintf(out, "Wrote starter config to %s\n", target)

		if cfg.DatabaseType == "" || cfg.Database == "" {
			fmt.Fprintln(out, "No database configured; skipping migration.")
			return
		}

		db, err := sleepy.CreateDB(ctx, cfg.DatabaseType, cfg.Database)
		if err != nil {
			log.Fatalf("Error creating database: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		fmt.Fprintln(
			out,
			"Initialization complete. You can now start the bot with the 'run' subcommand.",
		)
	},
}

func init() {
	initCmd.Flags().BoolVar(
		&initForce,
		"force",
		false,
		"Overwrite an existing config file",
	)
	rootCmd.AddCommand(initCmd)
}
