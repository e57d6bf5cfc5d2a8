// Package tradeservice implements internal/httpapi.Trader: it reads a
// project's current on-chain-observed state, quotes and builds a trade or
// claim transaction via internal/txbuilder, and hands the unsigned
// transaction back for the caller's own wallet to sign and submit. No store
// mutation happens here — pool state only changes once the chain syncer
// observes the resulting transaction land.
package tradeservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"launchctl/internal/apperr"
	"launchctl/internal/curve"
	"launchctl/internal/project"
	"launchctl/internal/txbuilder"
)

// Store is the subset of internal/store.ProjectRepository this service
// needs.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

// RecentBlockhashSource supplies a fresh blockhash for each built transaction.
type RecentBlockhashSource interface {
	RecentBlockhash(ctx context.Context) ([32]byte, error)
}

// Service wires together the Store, a blockhash source, and the platform's
// program id / curve parameters / fee rate to build trade transactions.
type Service struct {
	store       Store
	blockhashes RecentBlockhashSource
	programID   project.Pubkey
	curveParams curve.Params
	feeBps      uint16
}

// New builds a Service.
func New(store Store, blockhashes RecentBlockhashSource, programID project.Pubkey, curveParams curve.Params, feeBps uint16) *Service {
	return &Service{store: store, blockhashes: blockhashes, programID: programID, curveParams: curveParams, feeBps: feeBps}
}

// BuyResult is the unsigned buy transaction plus its quote.
type BuyResult struct {
	TransactionBytes []byte
	PreSignedSigners []project.Pubkey
	TokensOut        uint64
}

// Buy quotes and builds a buy transaction for projectID against whichever
// pool is currently active: the pre-sale static pool or the bonding curve.
func (s *Service) Buy(ctx context.Context, projectID uuid.UUID, buyer project.Pubkey, lamportsIn, minTokensOut uint64) (BuyResult, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return BuyResult{}, err
	}

	if p.Stage == project.StageOnStaticPool {
		if p.StaticPoolPubkey == nil {
			return BuyResult{}, apperr.New(apperr.KindStateConflict, "project's static pool has no assigned account")
		}
		blockhash, err := s.blockhashes.RecentBlockhash(ctx)
		if err != nil {
			return BuyResult{}, apperr.Wrap(apperr.KindTransient, err, "recent blockhash")
		}
		// The pre-sale pool is a flat deposit: tokens are distributed
		// proportionally once the pool graduates, not quoted at deposit
		// time, so there is no curve output here to hold minTokensOut against.
		tx := txbuilder.BuildBuyStatic(s.programID, blockhash, buyer, *p.StaticPoolPubkey, lamportsIn)
		return BuyResult{TransactionBytes: tx.Bytes, PreSignedSigners: tx.PreSignedSigners}, nil
	}

	if p.Stage != project.StageOnCurvePool || p.CurvePoolState == nil || p.CurvePoolKeypair == nil {
		return BuyResult{}, apperr.New(apperr.KindStateConflict, "project is not on an active pool")
	}
	blockhash, err := s.blockhashes.RecentBlockhash(ctx)
	if err != nil {
		return BuyResult{}, apperr.Wrap(apperr.KindTransient, err, "recent blockhash")
	}
	state := curve.FromPoolState(p.CurvePoolState)
	tx, quote, err := txbuilder.BuildBuyCurve(s.programID, blockhash, buyer, p.CurvePoolKeypair.Pubkey(), state, s.curveParams, lamportsIn, s.feeBps, minTokensOut)
	if err != nil {
		return BuyResult{}, err
	}
	return BuyResult{TransactionBytes: tx.Bytes, PreSignedSigners: tx.PreSignedSigners, TokensOut: quote.TokensOut}, nil
}

// SellResult is the unsigned sell transaction plus its quote.
type SellResult struct {
	TransactionBytes []byte
	PreSignedSigners []project.Pubkey
	SolOut           uint64
}

// Sell quotes and builds a curve-pool sell transaction for projectID.
func (s *Service) Sell(ctx context.Context, projectID uuid.UUID, seller project.Pubkey, tokensIn, minSolOut uint64) (SellResult, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return SellResult{}, err
	}
	if p.Stage != project.StageOnCurvePool || p.CurvePoolState == nil || p.CurvePoolKeypair == nil {
		return SellResult{}, apperr.New(apperr.KindStateConflict, "project is not on an active curve pool")
	}
	blockhash, err := s.blockhashes.RecentBlockhash(ctx)
	if err != nil {
		return SellResult{}, apperr.Wrap(apperr.KindTransient, err, "recent blockhash")
	}
	state := curve.FromPoolState(p.CurvePoolState)
	tx, quote, err := txbuilder.BuildSellCurve(s.programID, blockhash, seller, p.CurvePoolKeypair.Pubkey(), state, s.curveParams, tokensIn, s.feeBps, minSolOut)
	if err != nil {
		return SellResult{}, err
	}
	return SellResult{TransactionBytes: tx.Bytes, PreSignedSigners: tx.PreSignedSigners, SolOut: quote.SolOut}, nil
}

// ClaimResult is the unsigned dev-lock-claim transaction.
type ClaimResult struct {
	TransactionBytes []byte
	PreSignedSigners []project.Pubkey
}

// ClaimDevLock quotes and builds a dev-lock claim transaction for
// projectID, failing fast (ErrStillLocked, via txbuilder) if now is before
// the escrow's unlock time.
func (s *Service) ClaimDevLock(ctx context.Context, projectID uuid.UUID, now time.Time) (ClaimResult, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !p.Schema.HasDevLock() || p.DevLockKeypair == nil {
		return ClaimResult{}, apperr.New(apperr.KindValidation, "project has no dev lock to claim")
	}
	blockhash, err := s.blockhashes.RecentBlockhash(ctx)
	if err != nil {
		return ClaimResult{}, apperr.Wrap(apperr.KindTransient, err, "recent blockhash")
	}
	tx, err := txbuilder.BuildClaimDevLock(s.programID, blockhash, p.Owner, p.DevLockKeypair.Pubkey(), p.CreatedAt, p.Schema.DevPurchase.LockInterval, now)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{TransactionBytes: tx.Bytes, PreSignedSigners: tx.PreSignedSigners}, nil
}
