// Command migrator runs the background worker pool that drives projects
// through their on-chain lifecycle transitions: closing static pools,
// graduating them to curve pools, and graduating completed curve pools to an
// external AMM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"launchctl/internal/bundlesubmitter"
	"launchctl/internal/chainiface"
	"launchctl/internal/chainrpc"
	"launchctl/internal/migrator"
	"launchctl/internal/project"
	"launchctl/internal/store"
	"launchctl/pkg/config"
	"launchctl/pkg/utils"
)

func main() {
	_ = godotenv.Load(".env")

	logger := logrus.New()
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, perr := logrus.ParseLevel(cfg.Logging.Level); perr == nil {
		logger.SetLevel(level)
	}
	log := logrus.NewEntry(logger)

	client, err := store.NewClient(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("connect to store")
	}
	defer client.Close()
	repo := store.NewProjectRepository(client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	chain, err := chainrpc.Dial(ctx, cfg.Chain.RPCURL)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("dial chain rpc")
	}
	defer chain.Close()

	bundleCtx, bundleCancel := context.WithTimeout(context.Background(), 10*time.Second)
	submitter, err := bundlesubmitter.Dial(bundleCtx, cfg.Chain.BundleSubmitterURL)
	bundleCancel()
	if err != nil {
		log.WithError(err).Fatal("dial bundle submitter")
	}
	defer submitter.Close()

	programID := decodePubkey(utils.EnvOrDefault("PROGRAM_ID", ""))
	authority := decodePubkey(utils.EnvOrDefault("MIGRATION_AUTHORITY", ""))
	ammProgramID := decodePubkey(utils.EnvOrDefault("EXTERNAL_AMM_PROGRAM_ID", ""))

	pool := migrator.New(
		migrator.Config{
			Parallelism:           cfg.Migrator.Parallelism,
			PollInterval:          cfg.Migrator.PollInterval,
			BatchSize:             50,
			ConfirmAttempts:       cfg.Migrator.ConfirmAttempts,
			ConfirmPollInterval:   cfg.Migrator.ConfirmPollInterval,
			BackoffInitial:        cfg.Migrator.BackoffInitial,
			BackoffCeiling:        cfg.Migrator.BackoffCeiling,
			ShutdownGrace:         cfg.Migrator.ShutdownGrace,
			StaticPoolCapLamports: cfg.Pools.StaticPoolCapLamports,
		},
		repo, submitter, chain,
		chainiface.OpaqueAMMGraduator{ExternalProgramID: ammProgramID},
		programID, authority, log,
	)

	runCtx, runCancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		runCancel()
	}()

	log.Info("migrator starting")
	pool.Run(runCtx)
	log.Info("migrator stopped")
}

func decodePubkey(s string) (pk project.Pubkey) {
	if s == "" {
		return pk
	}
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return pk
	}
	copy(pk[:], raw)
	return pk
}
