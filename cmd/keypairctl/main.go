// Command keypairctl provisions the keypair pool that internal/keypairpool
// hands out to new projects, and reports the pool's remaining low-water
// count.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"launchctl/internal/keypairpool"
	"launchctl/internal/project"
	"launchctl/internal/store"
	"launchctl/pkg/config"
)

func main() {
	_ = godotenv.Load(".env")

	rootCmd := &cobra.Command{Use: "keypairctl"}
	rootCmd.AddCommand(provisionCmd())
	rootCmd.AddCommand(statusCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openPool() (*store.Client, *keypairpool.Pool, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	client, err := store.NewClient(cfg, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to store: %w", err)
	}
	return client, keypairpool.New(client.DB()), nil
}

func provisionCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "generate and insert new keypairs into the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, pool, err := openPool()
			if err != nil {
				return err
			}
			defer client.Close()

			keypairs := make([]project.Keypair, count)
			for i := range keypairs {
				_, priv, err := ed25519.GenerateKey(rand.Reader)
				if err != nil {
					return fmt.Errorf("generate keypair: %w", err)
				}
				var kp project.Keypair
				copy(kp[:], priv)
				keypairs[i] = kp
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := pool.Provision(ctx, keypairs); err != nil {
				return fmt.Errorf("provision: %w", err)
			}
			fmt.Printf("provisioned %d keypairs\n", count)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 100, "number of keypairs to generate")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report the pool's remaining unassigned keypair count",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, pool, err := openPool()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			n, err := pool.LowWaterCount(ctx)
			if err != nil {
				return fmt.Errorf("low water count: %w", err)
			}
			fmt.Printf("unassigned keypairs: %d\n", n)
			return nil
		},
	}
}
