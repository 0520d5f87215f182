// Command linkwrap runs the Discord link-wrapping bot.
//
//	linkwrap serve                 run the bot and the ops server (default)
//	linkwrap convert [text...]     convert links once and print the result
//	linkwrap cache stats|keys|flush  inspect or clear the Redis resolution cache
//
// Configuration is read from the environment and an optional .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkwrap/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ linkwrap: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	serve := buildServeCmd()

	rootCmd := &cobra.Command{
		Use:           "linkwrap",
		Short:         "Rewrite shopping agent links into affiliate redirects",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		// no subcommand means serve
		RunE: serve.RunE,
	}
	rootCmd.AddCommand(serve, buildConvertCmd(), buildCacheCmd())
	return rootCmd
}
