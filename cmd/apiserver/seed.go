package main

import (
	"fmt"

	"github.com/amoylab/atelier/internal/apiserver/database"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/spf13/cobra"
)

func newSeedCmd(configPath *string) *cobra.Command {
	var in database.BootstrapInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a tenant and its owner, seeding the system roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadConfig[config.APIServerConfig](*configPath)
			if err != nil {
				return err
			}
			db, err := database.NewDatabase(&cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			tenant, owner, err := database.Bootstrap(cmd.Context(), db, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %s (%s)\nowner  %s (%s)\n",
				tenant.ID, tenant.Name, owner.ID, owner.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.TenantName, "tenant", "", "tenant name")
	cmd.Flags().StringVar(&in.OwnerEmail, "owner-email", "", "owner email")
	cmd.Flags().StringVar(&in.OwnerName, "owner-name", "", "owner display name")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("owner-email")
	return cmd
}
