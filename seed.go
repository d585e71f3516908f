package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vibin_client/config"
	"vibin_client/services"
)

func newSeedCmd() *cobra.Command {
	var (
		count  int
		seed   int64
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write generated profiles to the Users table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be > 0")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.MockSeed
			}

			profiles := services.GenerateProfiles(rand.New(rand.NewSource(seed)), count, time.Now())
			if dryRun {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profiles)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			cfg.Backend = config.BackendDynamo
			awsCfg, err := awsConfigFor(ctx, cfg)
			if err != nil {
				return err
			}
			return newDynamoBackend(cfg, *awsCfg, logger).Seed(ctx, profiles)
		},
	}

	cmd.Flags().IntVar(&count, "count", 50, "Number of profiles to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (defaults to VIBIN_MOCK_SEED)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the profiles as JSON instead of writing them")
	return cmd
}
