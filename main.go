package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/stuartleeks/home-dash/epaper-dash/config"
)

var rootCmd = &cobra.Command{
	Use:   "dash",
	Short: "dash - e-paper dashboard renderer",
	Long: `dash renders the weather and bus arrival dashboard for a 7.5" e-paper display,
either on demand over HTTP or to a file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
