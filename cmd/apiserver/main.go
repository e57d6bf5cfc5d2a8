// Command apiserver is the control plane's public HTTP surface: create
// project, read projection, buy/sell against a curve pool, claim a dev lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"launchctl/internal/chainrpc"
	"launchctl/internal/curve"
	"launchctl/internal/httpapi"
	"launchctl/internal/ipfs"
	"launchctl/internal/keypairpool"
	"launchctl/internal/store"
	"launchctl/internal/tradeservice"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := client.MigrateUp(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("run migrations")
	}
	cancel()

	repo := store.NewProjectRepository(client, keypairpool.New(client.DB()))

	rpcCtx, rpcCancel := context.WithTimeout(context.Background(), 10*time.Second)
	chain, err := chainrpc.Dial(rpcCtx, cfg.Chain.RPCURL)
	rpcCancel()
	if err != nil {
		log.WithError(err).Fatal("dial chain rpc")
	}
	defer chain.Close()

	programID := decodeProgramID(utils.EnvOrDefault("PROGRAM_ID", ""))
	curveParams := curve.Params{
		VirtualSolOffset:   utils.EnvOrDefaultUint64("CURVE_VIRTUAL_SOL_OFFSET", 30_000_000_000),
		VirtualTokenOffset: utils.EnvOrDefaultUint64("CURVE_VIRTUAL_TOKEN_OFFSET", 1_073_000_000_000_000),
		RealTokenReserves:  utils.EnvOrDefaultUint64("CURVE_REAL_TOKEN_RESERVES", 793_100_000_000_000),
	}
	feeBps := uint16(utils.EnvOrDefaultInt("FEE_BASIS_POINTS", int(cfg.Fees.BasisPoints)))

	trader := tradeservice.New(repo, chain, programID, curveParams, feeBps)
	uploader := ipfs.NewHTTPUploader(cfg.IPFS.UploadEndpoint)
	server := httpapi.NewServer(repo, trader, uploader, chain, programID, cfg.HTTP.RequestBudget, log)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: server,
	}

	go func() {
		log.WithField("addr", cfg.HTTP.ListenAddr).Info("apiserver listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

func decodeProgramID(s string) (pk [32]byte) {
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
