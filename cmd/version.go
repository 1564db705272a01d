package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf(
			"version=%s commit=%s built: %s",
			sleepy.Version,
			sleepy.CommitSHA,
			sleepy.BuildTime,
		)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
