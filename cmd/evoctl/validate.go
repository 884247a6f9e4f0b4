package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PaiCY-T/evoengine/internal/config"
)

func validateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file without starting a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s: valid (population_size=%d, elite_count=%d)\n",
				path, cfg.PopulationSize, cfg.EliteCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", "evoctl.toml", "path to the TOML configuration file")
	return cmd
}
