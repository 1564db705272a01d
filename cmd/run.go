package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/HitchedSyringe/Sleepy/ext/fun"
	"github.com/HitchedSyringe/Sleepy/ext/meta"
	"github.com/HitchedSyringe/Sleepy/ext/moderation"
	"github.com/HitchedSyringe/Sleepy/ext/owner"
	"github.com/HitchedSyringe/Sleepy/ext/stats"
	"github.com/HitchedSyringe/Sleepy/ext/web"
	"github.com/HitchedSyringe/Sleepy/sleepy"
)

// stockExtensions maps registry names to the extensions shipped with
// the bot. Which of these actually load is decided by the extensions
// section of the config.
var stockExtensions = map[string]sleepy.ExtensionConstructor{
	"ext/fun":        fun.New,
	"ext/meta":       meta.New,
	"ext/moderation": moderation.New,
	"ext/owner":      owner.New,
	"ext/stats":      stats.New,
	"ext/web":        web.New,
}

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Sleepy bot and (optionally) the status API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := sleepy.New(cfg)
		if err != nil {
			log.Fatalf("error creating bot: %s", err.Error())
		}

		for name, ctor := range stockExtensions {
			if err = bot.RegisterExtension(name, ctor); err != nil {
				log.Fatalf("error registering %s: %s", name, err.Error())
			}
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running bot: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
