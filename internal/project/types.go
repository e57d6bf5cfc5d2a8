// Package project defines the central aggregate of the control plane: a
// token-launch Project, its deployment schema, and the stage state machine
// it progresses through. The package holds only types and pure invariant
// checks; persistence lives in internal/store and transitions are driven by
// internal/lifecycle and internal/migrator.
package project

import (
	"time"

	"github.com/google/uuid"
)

// Pubkey is a 32-byte chain account address, the domain the spec calls
// "pubkey = 32-byte blob".
type Pubkey [32]byte

// Keypair is a 64-byte chain signing identity, the domain the spec calls
// "keypair = 64-byte blob" (seed || public key, matching the pool's storage
// format).
type Keypair [64]byte

// Pubkey returns the public half of the keypair.
func (k Keypair) Pubkey() Pubkey {
	var pk Pubkey
	copy(pk[:], k[32:])
	return pk
}

// BaseUnits is a non-negative chain amount up to 2^64-1, the domain the spec
// calls "balance = non-negative integer up to 2^64-1".
type BaseUnits = uint64

// Stage is the project's position in the lifecycle state machine. It is
// materialized as a first-class value rather than a free-form status string
// so the legal transition graph (see internal/lifecycle) can be asserted
// against it directly.
type Stage int

const (
	StageCreated Stage = iota
	StageConfirmed
	StageOnStaticPool
	StageStaticPoolClosed
	StageOnCurvePool
	StageCurvePoolClosed
	StageGraduated
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageConfirmed:
		return "confirmed"
	case StageOnStaticPool:
		return "on_static_pool"
	case StageStaticPoolClosed:
		return "static_pool_closed"
	case StageOnCurvePool:
		return "on_curve_pool"
	case StageCurvePoolClosed:
		return "curve_pool_closed"
	case StageGraduated:
		return "graduated"
	default:
		return "unknown"
	}
}

// PublicStage is the client-facing name for a Stage, hiding the internal
// Created/Confirmed distinction per the public projection rule.
func (s Stage) PublicStage() string {
	switch s {
	case StageOnStaticPool:
		return "staticPoolActive"
	case StageStaticPoolClosed:
		return "staticPoolClosed"
	case StageOnCurvePool:
		return "curvePoolActive"
	case StageCurvePoolClosed:
		return "curvePoolClosed"
	case StageGraduated:
		return "graduated"
	default:
		// Created and Confirmed have no public name: a client never needs
		// to distinguish "not yet observed on-chain" from "observed, not
		// yet on a pool" — both just mean "not launched yet".
		return "pending"
	}
}

// CurveVariant selects who owns the bonding-curve pool for a project.
type CurveVariant int

const (
	// CurveInternal is a pool hosted by this platform's own program.
	CurveInternal CurveVariant = iota
	// CurveExternal is a pool hosted by an external pump.fun-style program
	// that this platform only observes and eventually graduates through.
	CurveExternal
)

func (v CurveVariant) String() string {
	if v == CurveExternal {
		return "pumpfun"
	}
	return "moonzip"
}

// ParseCurveVariant maps the wire name used by create_project requests
// ("moonzip" / "pumpfun", per the end-to-end scenarios in the spec) to a
// CurveVariant.
func ParseCurveVariant(s string) (CurveVariant, bool) {
	switch s {
	case "moonzip":
		return CurveInternal, true
	case "pumpfun":
		return CurveExternal, true
	default:
		return 0, false
	}
}

// DevLockKind selects whether a dev purchase is held in escrow.
type DevLockKind int

const (
	DevLockDisabled DevLockKind = iota
	DevLockInterval
)

// DevPurchase is the creator's optional initial buy, held in escrow for
// DevLockKind == DevLockInterval.
type DevPurchase struct {
	Amount       BaseUnits
	Lock         DevLockKind
	LockInterval time.Duration // meaningful only when Lock == DevLockInterval
}

// StaticPoolConfig is the optional pre-sale pool schema.
type StaticPoolConfig struct {
	LaunchTS time.Time
}

// DeploySchema is the immutable set of choices made at project creation that
// determine which on-chain artifacts the project will ever have.
type DeploySchema struct {
	StaticPool  *StaticPoolConfig // nil means no static pool stage
	CurvePool   CurveVariant
	DevPurchase *DevPurchase // nil means no dev purchase
}

// HasStaticPool reports whether this schema includes a pre-sale pool.
func (d DeploySchema) HasStaticPool() bool { return d.StaticPool != nil }

// HasDevLock reports whether the dev purchase, if any, is escrowed.
func (d DeploySchema) HasDevLock() bool {
	return d.DevPurchase != nil && d.DevPurchase.Lock == DevLockInterval
}

// Project is the central aggregate: a user-created token launch and
// everything learned about its on-chain progress.
type Project struct {
	ID        uuid.UUID
	Owner     Pubkey
	Schema    DeploySchema
	Stage     Stage
	CreatedAt time.Time

	// Assigned identities. Immutable once set (invariants I1-I3).
	StaticPoolPubkey *Pubkey
	CurvePoolKeypair *Keypair
	DevLockKeypair   *Keypair

	Metadata TokenMetadata

	// Observed on-chain state, upserted by the chain syncer.
	StaticPoolState *StaticPoolState
	CurvePoolState  *CurvePoolState
}

// TokenMetadata is the token's off-chain descriptive record.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Description string
	Website     string
	Twitter     string
	Telegram    string
	// MetadataURI is filled in once the off-chain metadata upload
	// succeeds; empty until then.
	MetadataURI string
}

// StaticPoolState is the observed chain state of a project's pre-sale pool.
type StaticPoolState struct {
	CollectedLamports uint64
	Closed            bool
	LastSlot          uint64
}

// CurvePoolState is the observed chain state of a project's bonding-curve
// pool (internal or external).
type CurvePoolState struct {
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	Complete             bool
	LastSlot             uint64
}

// Validate checks the structural invariants a DeploySchema must satisfy
// before a project is created, independent of any persisted state.
func (d DeploySchema) Validate() error {
	if d.DevPurchase != nil {
		if d.DevPurchase.Lock == DevLockInterval && d.DevPurchase.LockInterval <= 0 {
			return errInvalidLockInterval
		}
	}
	if d.StaticPool != nil && d.StaticPool.LaunchTS.IsZero() {
		return errInvalidLaunchTS
	}
	return nil
}
