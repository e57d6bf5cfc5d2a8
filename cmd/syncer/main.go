// Command syncer watches chain accounts for every in-flight project and
// folds what it observes into the Project Store: this is the only process
// that ever mutates observed on-chain state (StaticPoolState, CurvePoolState,
// and the Created -> Confirmed stage transition).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"launchctl/internal/chainrpc"
	"launchctl/internal/chainsync"
	"launchctl/internal/project"
	"launchctl/internal/store"
	"launchctl/pkg/config"
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

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	chain, err := chainrpc.Dial(dialCtx, cfg.Chain.RPCURL)
	dialCancel()
	if err != nil {
		log.WithError(err).Fatal("dial chain rpc")
	}
	defer chain.Close()

	source := chainsync.NewPollingSource(chain, 5*time.Second)
	consumer := chainsync.NewConsumer(log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	go source.Run(ctx)
	go runRegistrar(ctx, repo, source, log)

	log.Info("syncer starting")
	if err := consumer.Run(ctx, source, repo); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("chain sync consumer stopped unexpectedly")
	}
	log.Info("syncer stopped")
}

// registrar periodically scans the store for projects whose accounts the
// poller does not yet know about and registers them for watching. A
// once-registered project is never re-registered, but every tick still
// lists up to 500 unlocked projects per watched stage, oldest first.
func runRegistrar(ctx context.Context, repo *store.ProjectRepository, source *chainsync.PollingSource, log *logrus.Entry) {
	seenProject := map[uuid.UUID]bool{}
	seenStatic := map[uuid.UUID]bool{}
	seenCurve := map[uuid.UUID]bool{}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, stage := range []project.Stage{
			project.StageCreated,
			project.StageConfirmed,
			project.StageOnStaticPool,
			project.StageOnCurvePool,
		} {
			projects, err := repo.ListPending(ctx, stage, time.Now(), 500)
			if err != nil {
				log.WithError(err).Warn("registrar: list pending")
				continue
			}
			for _, p := range projects {
				// The curve pool account doubles as the project's on-chain
				// existence signal: CreateProject initializes it in the same
				// transaction as the mint, so its presence means creation
				// landed.
				if p.CurvePoolKeypair != nil && !seenProject[p.ID] {
					seenProject[p.ID] = true
					source.WatchProject(p.ID, p.CurvePoolKeypair.Pubkey())
				}
				if p.StaticPoolPubkey != nil && !seenStatic[p.ID] {
					seenStatic[p.ID] = true
					source.WatchStaticPool(p.ID, *p.StaticPoolPubkey)
				}
				if p.CurvePoolKeypair != nil && !seenCurve[p.ID] {
					seenCurve[p.ID] = true
					source.WatchCurvePool(p.ID, p.CurvePoolKeypair.Pubkey())
				}
			}
		}
	}
}
