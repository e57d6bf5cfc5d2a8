package txbuilder

import (
	"testing"
	"time"

	"launchctl/internal/apperr"
	"launchctl/internal/curve"
	"launchctl/internal/project"
)

var programID = project.Pubkey{1, 2, 3}

func TestBuildCreateProjectIncludesPreSignedSigners(t *testing.T) {
	var curvePool project.Keypair
	curvePool[0] = 2
	tx := BuildCreateProject(programID, [32]byte{}, project.Pubkey{9}, &curvePool, nil)
	if len(tx.PreSignedSigners) != 1 {
		t.Fatalf("expected 1 pre-signed signer, got %d", len(tx.PreSignedSigners))
	}
	if len(tx.Bytes) == 0 {
		t.Fatalf("expected non-empty transaction bytes")
	}
}

func TestBuildCreateProjectOmitsSignerForExternalCurve(t *testing.T) {
	tx := BuildCreateProject(programID, [32]byte{}, project.Pubkey{9}, nil, nil)
	if len(tx.PreSignedSigners) != 0 {
		t.Fatalf("expected no pre-signed signers for an external-curve project, got %d", len(tx.PreSignedSigners))
	}
	if len(tx.Bytes) == 0 {
		t.Fatalf("expected non-empty transaction bytes")
	}
}

func curveFixture() (curve.State, curve.Params) {
	return curve.State{VirtualSolReserves: 30_000_000_000, VirtualTokenReserves: 1_073_000_000_000},
		curve.Params{VirtualSolOffset: 30_000_000_000, VirtualTokenOffset: 273_000_000_000, RealTokenReserves: 800_000_000_000}
}

func TestBuildBuyCurveRejectsSlippageBreach(t *testing.T) {
	state, params := curveFixture()
	_, _, err := BuildBuyCurve(programID, [32]byte{}, project.Pubkey{9}, project.Pubkey{2}, state, params, 1_000_000_000, 0, 1<<63)
	if apperr.KindOf(err) != apperr.KindSlippageBreach {
		t.Fatalf("expected slippage breach, got %v", err)
	}
}

func TestBuildBuyCurveSucceedsWithinSlippage(t *testing.T) {
	state, params := curveFixture()
	tx, quote, err := BuildBuyCurve(programID, [32]byte{}, project.Pubkey{9}, project.Pubkey{2}, state, params, 1_000_000_000, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TokensOut == 0 || len(tx.Bytes) == 0 {
		t.Fatalf("expected a nonzero quote and populated transaction bytes")
	}
}

func TestBuildClaimDevLockFailsFastBeforeUnlock(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	_, err := BuildClaimDevLock(programID, [32]byte{}, project.Pubkey{9}, project.Pubkey{3}, created, 24*time.Hour, now)
	if err != ErrStillLocked {
		t.Fatalf("expected ErrStillLocked, got %v", err)
	}
}

func TestBuildClaimDevLockSucceedsAfterUnlock(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(25 * time.Hour)
	tx, err := BuildClaimDevLock(programID, [32]byte{}, project.Pubkey{9}, project.Pubkey{3}, created, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tx.Bytes) == 0 {
		t.Fatalf("expected populated transaction bytes")
	}
}
