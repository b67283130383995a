package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "alphalend",
		Short:         "Multi-asset lending pool with Alpha rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path of the toml config")

	root.AddCommand(
		serveCommand(&configPath),
		migrateCommand(&configPath),
		memoCommand(),
	)
	return root
}
