package main

import (
	"fmt"
	"os"

	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/pkg/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           cnst.CommandName,
		Short:         "Atelier API server",
		Long:          `Atelier API server exposes team, role and ownership administration behind the role hierarchy guard`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "conf", "c", "apiserver.yaml", "path to configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newSeedCmd(&configPath),
		newTokenCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of apiserver",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cnst.CommandName, version.Get())
			},
		},
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
