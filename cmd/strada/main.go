package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strada-dev/strada/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strada",
		Short: "Navigation engine host and tooling",
		Long: `Strada is a client-side navigation engine: URL parsing, route
matching with guards and resolvers, redirects, and an observable
navigation lifecycle.

The CLI hosts a navigation server for remote clients, inspects
redirect manifests, and validates project configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, errors.Format(err))
		os.Exit(1)
	}
}
