package tradeservice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"launchctl/internal/apperr"
	"launchctl/internal/curve"
	"launchctl/internal/project"
)

type fakeStore struct {
	projects map[uuid.UUID]*project.Project
}

func (s *fakeStore) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "not found")
	}
	return p, nil
}

type fakeBlockhash struct{}

func (fakeBlockhash) RecentBlockhash(ctx context.Context) ([32]byte, error) {
	return [32]byte{1, 2, 3}, nil
}

func curveProject(stage project.Stage) *project.Project {
	var curveKP project.Keypair
	curveKP[63] = 9
	return &project.Project{
		ID:               uuid.New(),
		Stage:            stage,
		CurvePoolKeypair: &curveKP,
		CurvePoolState: &project.CurvePoolState{
			VirtualSolReserves:   30_000_000_000,
			VirtualTokenReserves: 1_866_100_000_000_000, // token offset + all real tokens: a fresh curve
		},
	}
}

func testParams() curve.Params {
	return curve.Params{
		VirtualSolOffset:   30_000_000_000,
		VirtualTokenOffset: 1_073_000_000_000_000,
		RealTokenReserves:  793_100_000_000_000,
	}
}

func TestBuyRejectsWhenProjectOnNeitherPool(t *testing.T) {
	p := curveProject(project.StageConfirmed)
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	_, err := svc.Buy(context.Background(), p.ID, project.Pubkey{2}, 1_000_000, 0)
	if apperr.KindOf(err) != apperr.KindStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestBuyRejectsStaticPoolWithNoAssignedAccount(t *testing.T) {
	p := curveProject(project.StageOnStaticPool)
	p.CurvePoolKeypair = nil
	p.CurvePoolState = nil
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	_, err := svc.Buy(context.Background(), p.ID, project.Pubkey{2}, 1_000_000, 0)
	if apperr.KindOf(err) != apperr.KindStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestBuySucceedsAgainstStaticPool(t *testing.T) {
	p := curveProject(project.StageOnStaticPool)
	p.CurvePoolKeypair = nil
	p.CurvePoolState = nil
	var staticPub project.Pubkey
	staticPub[0] = 5
	p.StaticPoolPubkey = &staticPub
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	result, err := svc.Buy(context.Background(), p.ID, project.Pubkey{2}, 1_000_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.TransactionBytes) == 0 {
		t.Fatal("expected non-empty transaction bytes")
	}
	if result.TokensOut != 0 {
		t.Fatalf("expected no token quote for a static pool deposit, got %d", result.TokensOut)
	}
}

func TestBuySucceedsAndReturnsQuote(t *testing.T) {
	p := curveProject(project.StageOnCurvePool)
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	result, err := svc.Buy(context.Background(), p.ID, project.Pubkey{2}, 1_000_000_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TokensOut == 0 {
		t.Fatal("expected a non-zero token quote")
	}
	if len(result.TransactionBytes) == 0 {
		t.Fatal("expected non-empty transaction bytes")
	}
}

func TestBuyRejectsSlippageBreach(t *testing.T) {
	p := curveProject(project.StageOnCurvePool)
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	_, err := svc.Buy(context.Background(), p.ID, project.Pubkey{2}, 1_000_000_000, ^uint64(0))
	if apperr.KindOf(err) != apperr.KindSlippageBreach {
		t.Fatalf("expected slippage breach, got %v", err)
	}
}

func TestClaimDevLockRejectsWhenSchemaHasNoLock(t *testing.T) {
	p := curveProject(project.StageOnCurvePool)
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	_, err := svc.ClaimDevLock(context.Background(), p.ID, time.Now())
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClaimDevLockFailsFastBeforeUnlock(t *testing.T) {
	p := curveProject(project.StageOnCurvePool)
	var devKP project.Keypair
	devKP[63] = 7
	p.DevLockKeypair = &devKP
	p.CreatedAt = time.Now()
	p.Schema.DevPurchase = &project.DevPurchase{Amount: 1, Lock: project.DevLockInterval, LockInterval: time.Hour}
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{p.ID: p}}
	svc := New(store, fakeBlockhash{}, project.Pubkey{1}, testParams(), 100)

	_, err := svc.ClaimDevLock(context.Background(), p.ID, time.Now())
	if apperr.KindOf(err) != apperr.KindStateConflict {
		t.Fatalf("expected state conflict for still-locked claim, got %v", err)
	}
}
