// Package migrator runs the background worker pool that drives every
// project through its lifecycle transitions once the off-chain side of a
// step is ready: closing a pre-sale pool, graduating it onto a curve,
// closing a completed curve, and graduating onto an external AMM. The
// worker-pool shape generalizes the teacher's single ticker-driven
// subBlockLoop/blockLoop (core/consensus.go) to N concurrent goroutines,
// each polling the store for its own slice of eligible work.
package migrator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"launchctl/internal/apperr"
	"launchctl/internal/bundlesubmitter"
	"launchctl/internal/chainiface"
	"launchctl/internal/chainrpc"
	"launchctl/internal/lifecycle"
	"launchctl/internal/project"
	"launchctl/internal/txbuilder"
)

// Store is the subset of internal/store.ProjectRepository the migrator
// needs.
type Store interface {
	ListPending(ctx context.Context, stage project.Stage, beforeTS time.Time, limit int) ([]*project.Project, error)
	LockMigration(ctx context.Context, id uuid.UUID, lockedBy string) error
	UnlockMigration(ctx context.Context, id uuid.UUID, lockedBy string) error
	AdvanceStage(ctx context.Context, id uuid.UUID, from, to project.Stage) error
}

// Config tunes the worker pool's polling, confirmation, and backoff
// behavior. Every field is ambient — the retry/backoff discipline spec.md
// requires but does not parameterize.
type Config struct {
	Parallelism           int
	PollInterval          time.Duration
	BatchSize             int
	ConfirmAttempts       int
	ConfirmPollInterval   time.Duration
	BackoffInitial        time.Duration
	BackoffCeiling        time.Duration
	ShutdownGrace         time.Duration
	StaticPoolCapLamports uint64
	// Clock supplies "now" for stage-eligibility predicates. Defaults to the
	// wall clock; tests inject a fake one to drive launch_ts eligibility
	// deterministically. Retry backoff waits on real time.
	Clock Clock
}

// Clock abstracts time.Now so eligibility predicates that depend on the
// current time can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ChainReader is the migrator's view of the chain: a fresh blockhash for
// every transaction it builds, and read access to account state so an
// ambiguous confirmation can be resolved before a transaction is resubmitted.
type ChainReader interface {
	RecentBlockhash(ctx context.Context) ([32]byte, error)
	GetAccountInfo(ctx context.Context, pubkey string) (chainrpc.AccountInfo, error)
}

// Pool runs Config.Parallelism worker goroutines against a shared Store,
// Submitter, and authority signing identity.
type Pool struct {
	cfg          Config
	store        Store
	submitter    bundlesubmitter.Submitter
	chain        ChainReader
	ammGraduator chainiface.AMMGraduator
	programID    project.Pubkey
	authority    project.Pubkey
	logger       *logrus.Entry
}

// New builds a migrator Pool.
func New(cfg Config, store Store, submitter bundlesubmitter.Submitter, chain ChainReader, ammGraduator chainiface.AMMGraduator, programID, authority project.Pubkey, logger *logrus.Entry) *Pool {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 20
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Pool{
		cfg: cfg, store: store, submitter: submitter, chain: chain,
		ammGraduator: ammGraduator, programID: programID, authority: authority,
		logger: logger.WithField("component", "migrator"),
	}
}

// Run starts Config.Parallelism worker goroutines and blocks until ctx is
// cancelled, then waits up to Config.ShutdownGrace for in-flight work to
// finish before returning.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < max(1, p.cfg.Parallelism); i++ {
		wg.Add(1)
		workerID := workerName(i)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	<-ctx.Done()
	grace := p.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 0
	}
	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warn("shutdown grace period elapsed with workers still running")
	}
}

func workerName(i int) string {
	return fmt.Sprintf("migrator-worker-%d", i)
}

func (w *Pool) workerLoop(ctx context.Context, workerID string) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx, workerID)
		}
	}
}

var candidateStages = []project.Stage{
	project.StageOnStaticPool,
	project.StageStaticPoolClosed,
	project.StageOnCurvePool,
	project.StageCurvePoolClosed,
}

func (w *Pool) pollOnce(ctx context.Context, workerID string) {
	now := w.cfg.Clock.Now()
	for _, stage := range candidateStages {
		candidates, err := w.store.ListPending(ctx, stage, now, w.cfg.BatchSize)
		if err != nil {
			w.logger.WithError(err).Warn("list pending failed")
			continue
		}
		for _, p := range candidates {
			w.processWithBackoff(ctx, workerID, p)
		}
	}
}

// processWithBackoff retries a single project's migration step, backing off
// exponentially up to BackoffCeiling, as long as the failure is transient.
// Permanent failures (e.g. a slippage-style rejection baked into the
// transaction itself) are logged and abandoned for this poll cycle; the
// project remains eligible on the next ListPending pass.
func (w *Pool) processWithBackoff(ctx context.Context, workerID string, p *project.Project) {
	if err := w.store.LockMigration(ctx, p.ID, workerID); err != nil {
		return
	}
	defer w.store.UnlockMigration(ctx, p.ID, workerID)

	backoff := w.cfg.BackoffInitial
	if backoff <= 0 {
		backoff = time.Second
	}
	for attempt := 0; ; attempt++ {
		err := w.processOne(ctx, p)
		if err == nil {
			return
		}
		if !apperr.Retryable(err) {
			w.logger.WithError(err).WithField("project_id", p.ID).Warn("permanent migration failure, abandoning this cycle")
			return
		}
		w.logger.WithError(err).WithField("project_id", p.ID).WithField("attempt", attempt).Warn("transient migration failure, backing off")
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
		if w.cfg.BackoffCeiling > 0 && backoff > w.cfg.BackoffCeiling {
			backoff = w.cfg.BackoffCeiling
		}
	}
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d/2+1)))
}

// processOne builds, submits, and confirms exactly one migration
// transaction for p, then CASes its stage forward.
func (w *Pool) processOne(ctx context.Context, p *project.Project) error {
	blockhash, err := w.chain.RecentBlockhash(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "recent blockhash")
	}

	switch {
	case lifecycle.NeedsStaticClose(p, w.cfg.Clock.Now(), w.cfg.StaticPoolCapLamports):
		tx := txbuilder.BuildCloseStatic(w.programID, blockhash, w.authority, *p.StaticPoolPubkey)
		if err := w.submitAndConfirm(ctx, tx, *p.StaticPoolPubkey); err != nil {
			return err
		}
		return w.advance(ctx, p.ID, project.StageOnStaticPool, project.StageStaticPoolClosed)

	case lifecycle.NeedsStaticGraduate(p):
		tx := txbuilder.BuildGraduateStaticToCurve(w.programID, blockhash, w.authority, *p.StaticPoolPubkey, p.CurvePoolKeypair.Pubkey())
		if err := w.submitAndConfirm(ctx, tx, p.CurvePoolKeypair.Pubkey()); err != nil {
			return err
		}
		return w.advance(ctx, p.ID, project.StageStaticPoolClosed, project.StageOnCurvePool)

	case lifecycle.NeedsCurveClose(p):
		tx := txbuilder.BuildCloseCurve(w.programID, blockhash, w.authority, p.CurvePoolKeypair.Pubkey())
		if err := w.submitAndConfirm(ctx, tx, p.CurvePoolKeypair.Pubkey()); err != nil {
			return err
		}
		return w.advance(ctx, p.ID, project.StageOnCurvePool, project.StageCurvePoolClosed)

	case lifecycle.NeedsAMMGraduate(p):
		tx, err := txbuilder.BuildGraduateToExternalAMM(w.ammGraduator, blockhash, w.authority, p.CurvePoolKeypair.Pubkey())
		if err != nil {
			return err
		}
		if err := w.submitAndConfirm(ctx, tx, p.CurvePoolKeypair.Pubkey()); err != nil {
			return err
		}
		return w.advance(ctx, p.ID, project.StageCurvePoolClosed, project.StageGraduated)

	case p.Stage == project.StageCurvePoolClosed && p.Schema.CurvePool == project.CurveInternal:
		// Internal-curve projects have no AMM step; they graduate directly.
		return w.advance(ctx, p.ID, project.StageCurvePoolClosed, project.StageGraduated)

	default:
		return nil
	}
}

func (w *Pool) advance(ctx context.Context, id uuid.UUID, from, to project.Stage) error {
	if err := w.store.AdvanceStage(ctx, id, from, to); err != nil {
		return apperr.Wrap(apperr.KindStateConflict, err, "advance stage")
	}
	return nil
}

// submitAndConfirm sends tx and polls for its landing status up to
// ConfirmAttempts times, spaced ConfirmPollInterval apart. target is the
// account the transaction is expected to mutate; if confirmation times out
// ambiguously, target's slot is compared against its pre-submission baseline
// before the caller is told to retry.
func (w *Pool) submitAndConfirm(ctx context.Context, tx txbuilder.Transaction, target project.Pubkey) error {
	targetKey := base58.Encode(target[:])
	baseline, baselineErr := w.chain.GetAccountInfo(ctx, targetKey)
	if baselineErr != nil {
		w.logger.WithError(baselineErr).Warn("baseline account read failed, proceeding without ambiguity recheck")
	}

	sig, err := w.submitter.SendTransaction(ctx, tx.Bytes)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "send transaction")
	}

	attempts := w.cfg.ConfirmAttempts
	if attempts <= 0 {
		attempts = 10
	}
	interval := w.cfg.ConfirmPollInterval
	if interval <= 0 {
		interval = time.Second
	}

	for i := 0; i < attempts; i++ {
		statuses, err := w.submitter.GetBundleStatuses(ctx, []string{sig})
		if err == nil {
			switch statuses[sig] {
			case bundlesubmitter.StatusLanded:
				return nil
			case bundlesubmitter.StatusFailed:
				return apperr.New(apperr.KindFatal, "transaction failed on-chain")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	// Confirmation timed out ambiguously: the bundle submitter's status
	// endpoint never settled, but the transaction may still have landed.
	// Re-read the target account directly before telling the caller to
	// resubmit, since resubmitting a transaction that already landed can
	// double-execute an instruction the program does not treat as
	// idempotent.
	if baselineErr == nil {
		after, err := w.chain.GetAccountInfo(ctx, targetKey)
		if err == nil && after.Slot > baseline.Slot {
			w.logger.WithField("target", targetKey).Info("target account advanced past baseline during ambiguous confirmation, treating as landed")
			return nil
		}
	}
	return apperr.New(apperr.KindTransient, "transaction confirmation timed out")
}
