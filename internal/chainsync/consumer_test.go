package chainsync

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"launchctl/internal/project"
)

type fakeStore struct {
	projects       map[uuid.UUID]*project.Project
	advanceCalls   [][2]project.Stage
	staticUpserts  int
	curveUpserts   int
}

func (f *fakeStore) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return f.projects[id], nil
}

func (f *fakeStore) UpsertStaticPoolState(ctx context.Context, id uuid.UUID, collected uint64, closed bool, slot uint64) error {
	f.staticUpserts++
	return nil
}

func (f *fakeStore) UpsertCurvePoolState(ctx context.Context, id uuid.UUID, virtualSol, virtualToken uint64, complete bool, slot uint64) error {
	f.curveUpserts++
	return nil
}

func (f *fakeStore) AdvanceStage(ctx context.Context, id uuid.UUID, from, to project.Stage) error {
	f.advanceCalls = append(f.advanceCalls, [2]project.Stage{from, to})
	if p, ok := f.projects[id]; ok {
		p.Stage = to
	}
	return nil
}

func TestApplyProjectObservedAdvancesThroughConfirmed(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{
		id: {ID: id, Stage: project.StageCreated, Schema: project.DeploySchema{}},
	}}
	c := NewConsumer(nil)
	if err := c.Apply(context.Background(), store, ProjectObserved{ProjectID: id, Slot: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.advanceCalls) != 2 {
		t.Fatalf("expected 2 advance calls, got %d", len(store.advanceCalls))
	}
	if store.advanceCalls[0] != ([2]project.Stage{project.StageCreated, project.StageConfirmed}) {
		t.Fatalf("unexpected first transition: %v", store.advanceCalls[0])
	}
}

func TestApplyProjectObservedSkipsIfAlreadyPastCreated(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{
		id: {ID: id, Stage: project.StageConfirmed},
	}}
	c := NewConsumer(nil)
	if err := c.Apply(context.Background(), store, ProjectObserved{ProjectID: id, Slot: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.advanceCalls) != 0 {
		t.Fatalf("expected no advance calls, got %d", len(store.advanceCalls))
	}
}

func TestApplyStaticAndCurveEventsUpsert(t *testing.T) {
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{}}
	c := NewConsumer(nil)
	id := uuid.New()
	if err := c.Apply(context.Background(), store, StaticPoolStateEvent{ProjectID: id, Slot: 1, CollectedLamports: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Apply(context.Background(), store, CurvePoolStateEvent{ProjectID: id, Slot: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.staticUpserts != 1 || store.curveUpserts != 1 {
		t.Fatalf("expected one upsert of each kind, got static=%d curve=%d", store.staticUpserts, store.curveUpserts)
	}
}
