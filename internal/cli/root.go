// Package cli defines the chess-trainer commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "chess-trainer",
	Short: "Browser chess trainer backed by a UCI engine",
	Long: `chess-trainer serves games against Stockfish, a two-player playground
and puzzle sets to a browser over a websocket.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $TRAINER_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(puzzlesCmd)
	rootCmd.AddCommand(bestMoveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}
