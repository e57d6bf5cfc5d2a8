package chainsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"launchctl/internal/lifecycle"
	"launchctl/internal/project"
)

// Store is the subset of internal/store.ProjectRepository the consumer
// needs, kept narrow so tests can supply a fake instead of a real database.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error)
	UpsertStaticPoolState(ctx context.Context, id uuid.UUID, collected uint64, closed bool, slot uint64) error
	UpsertCurvePoolState(ctx context.Context, id uuid.UUID, virtualSol, virtualToken uint64, complete bool, slot uint64) error
	AdvanceStage(ctx context.Context, id uuid.UUID, from, to project.Stage) error
}

// Source yields the next chain event, blocking until one is available or
// ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// Consumer applies chain events to the Project Store idempotently: the
// store's upsert queries already guard on slot, so replaying the same event
// twice, or receiving events out of slot order, is always safe.
type Consumer struct {
	logger *logrus.Entry
}

// NewConsumer builds a Consumer.
func NewConsumer(logger *logrus.Entry) *Consumer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Consumer{logger: logger.WithField("component", "chainsync")}
}

// Apply folds a single event into the store referenced by repo.
func (c *Consumer) Apply(ctx context.Context, repo Store, ev Event) error {
	switch e := ev.(type) {
	case ProjectObserved:
		p, err := repo.GetProject(ctx, e.ProjectID)
		if err != nil {
			return fmt.Errorf("chainsync: project observed: %w", err)
		}
		if p.Stage != project.StageCreated {
			return nil
		}
		if err := repo.AdvanceStage(ctx, e.ProjectID, project.StageCreated, project.StageConfirmed); err != nil {
			return fmt.Errorf("chainsync: advance to confirmed: %w", err)
		}
		next := lifecycle.NextConfirmedStage(p)
		if err := repo.AdvanceStage(ctx, e.ProjectID, project.StageConfirmed, next); err != nil {
			return fmt.Errorf("chainsync: advance past confirmed: %w", err)
		}
	case StaticPoolStateEvent:
		if err := repo.UpsertStaticPoolState(ctx, e.ProjectID, e.CollectedLamports, e.Closed, e.Slot); err != nil {
			return fmt.Errorf("chainsync: static pool state: %w", err)
		}
	case CurvePoolStateEvent:
		if err := repo.UpsertCurvePoolState(ctx, e.ProjectID, e.VirtualSolReserves, e.VirtualTokenReserves, e.Complete, e.Slot); err != nil {
			return fmt.Errorf("chainsync: curve pool state: %w", err)
		}
	default:
		c.logger.Warnf("unhandled chain event type %T", ev)
	}
	return nil
}

// Run drains source until ctx is cancelled, applying every event to repo.
// A per-event error is logged and skipped rather than stopping the loop, so
// one malformed or stale event never wedges the whole syncer.
func (c *Consumer) Run(ctx context.Context, source Source, repo Store) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ev, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).Warn("chain event source error")
			continue
		}
		if err := c.Apply(ctx, repo, ev); err != nil {
			c.logger.WithError(err).Warn("failed to apply chain event")
		}
	}
}
