package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fwpull/fwpull/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "fwpull",
	Short: "fetch, verify, and decrypt a firmware artifact",
	Long:  "fwpull downloads a firmware artifact in parallel byte ranges, resuming interrupted runs, then verifies and decrypts it in a single streaming pass.",
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(historyCmd)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	log.Error("%v", err)
	os.Exit(1)
}
