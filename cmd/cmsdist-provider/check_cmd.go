package main

import (
	"fmt"

	"github.com/open-edge-platform/cmsdist-provider/internal/config"
	"github.com/open-edge-platform/cmsdist-provider/internal/utils/system"
	"github.com/spf13/cobra"
)

var checkUser string

func createCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags]",
		Short: "Verifies the host tools and install user the provider needs",
		Args:  cobra.NoArgs,
		RunE:  executeCheck,
	}
	cmd.Flags().StringVar(&checkUser, "user", "",
		"Install user to check (default from configuration)")
	return cmd
}

func executeCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if info, err := system.GetHostOsInfo(ctx); err == nil {
		fmt.Fprintf(out, "host: %s %s (%s)\n", info["name"], info["version"], info["arch"])
	}

	user := checkUser
	if user == "" {
		user = config.NewConfigHelpers(globalConfig).EffectiveDefaults().InstallUser
	}
	checks, err := system.CheckPrerequisites(ctx, user)
	for _, c := range checks {
		if c.OK {
			fmt.Fprintf(out, "ok      %s\n", c.Name)
		} else {
			fmt.Fprintf(out, "FAILED  %s: %s\n", c.Name, c.Detail)
		}
	}
	return err
}
