package main

import "github.com/spf13/cobra"

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "movieshell",
		Short:         "Serve a local movie and series library over HTTP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCatalogCommand())
	return rootCmd
}
