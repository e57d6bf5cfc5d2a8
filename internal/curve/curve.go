// Package curve implements the constant-product bonding curve used by
// internal-variant curve pools. It generalizes the teacher's float64 AMM
// router pricing (core/liquidity_pools.go Swap) to base-unit uint64 reserves
// with overflow-checked arithmetic that rejects rather than wraps, since on-chain programs
// reject a transaction rather than silently lose precision.
package curve

import (
	"errors"
	"math/bits"

	"launchctl/internal/numerics"
	"launchctl/internal/project"
)

// ErrReservesExhausted is returned when a swap would drive a real reserve
// below zero — the curve equivalent of a Solana program rejecting the
// instruction outright.
var ErrReservesExhausted = errors.New("curve: swap would exhaust real reserves")

// Params are the immutable constants fixed at curve-pool creation: the
// virtual reserves offsets above the pool's real (actually held) balances.
// Seeding virtual reserves above zero real reserves is what gives the curve
// a finite starting price instead of a division-by-zero at the first trade.
type Params struct {
	VirtualSolOffset   uint64
	VirtualTokenOffset uint64
	// RealTokenReserves is the total token supply allocated to the curve at
	// creation; real token reserves can never exceed this value.
	RealTokenReserves uint64
}

// State is a curve pool's current virtual reserves, the only quantities the
// constant-product formula needs.
type State struct {
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// FromPoolState adapts a project.CurvePoolState to a curve State.
func FromPoolState(s *project.CurvePoolState) State {
	return State{VirtualSolReserves: s.VirtualSolReserves, VirtualTokenReserves: s.VirtualTokenReserves}
}

// realSol returns the pool's actual held sol balance, as distinct from the
// virtual reserve the pricing formula uses.
func (p Params) realSol(s State) (uint64, error) {
	return numerics.SubU64(s.VirtualSolReserves, p.VirtualSolOffset)
}

// realTokens returns the pool's actual held token balance.
func (p Params) realTokens(s State) (uint64, error) {
	return numerics.SubU64(s.VirtualTokenReserves, p.VirtualTokenOffset)
}

// Buy quotes and applies a purchase of solIn lamports (gross, before fee).
// The pool receives solIn net of feeBps; tokensOut is floored per the
// integer-only on-chain formula. Returns the post-trade state.
func Buy(s State, p Params, solIn uint64, feeBps uint16) (tokensOut uint64, next State, err error) {
	solNet, err := numerics.NetOfFeeU64(solIn, feeBps)
	if err != nil {
		return 0, State{}, err
	}
	newVirtualSol, err := numerics.AddU64(s.VirtualSolReserves, solNet)
	if err != nil {
		return 0, State{}, err
	}
	// k = VirtualSolReserves * VirtualTokenReserves, held constant across the
	// trade; MulDivU64 carries the product in a 128-bit intermediate so k
	// need not fit in uint64 on its own.
	newVirtualTokens, err := numerics.MulDivU64(s.VirtualSolReserves, s.VirtualTokenReserves, newVirtualSol)
	if err != nil {
		return 0, State{}, err
	}
	// Round the pool's remaining tokens up so that tokensOut, taken as the
	// difference, is floored rather than rounded in the buyer's favour.
	kHi, kLo := bits.Mul64(s.VirtualSolReserves, s.VirtualTokenReserves)
	if pHi, pLo := bits.Mul64(newVirtualTokens, newVirtualSol); pHi != kHi || pLo != kLo {
		newVirtualTokens++
	}
	tokensOut, err = numerics.SubU64(s.VirtualTokenReserves, newVirtualTokens)
	if err != nil {
		return 0, State{}, err
	}
	next = State{VirtualSolReserves: newVirtualSol, VirtualTokenReserves: newVirtualTokens}
	realTok, err := p.realTokens(next)
	if err != nil {
		return 0, State{}, ErrReservesExhausted
	}
	if realTok > p.RealTokenReserves {
		return 0, State{}, ErrReservesExhausted
	}
	return tokensOut, next, nil
}

// Sell quotes and applies a sale of tokensIn base units. The gross sol
// proceeds are computed from the curve formula first, then the user
// receives gross net of feeBps — the platform's cut always comes out of
// what the user would otherwise receive, on both sides of the curve.
func Sell(s State, p Params, tokensIn uint64, feeBps uint16) (solOut uint64, next State, err error) {
	newVirtualTokens, err := numerics.AddU64(s.VirtualTokenReserves, tokensIn)
	if err != nil {
		return 0, State{}, err
	}
	newVirtualSol, err := numerics.MulDivU64(s.VirtualSolReserves, s.VirtualTokenReserves, newVirtualTokens)
	if err != nil {
		return 0, State{}, err
	}
	solGross, err := numerics.SubU64(s.VirtualSolReserves, newVirtualSol)
	if err != nil {
		return 0, State{}, err
	}
	solOut, err = numerics.NetOfFeeU64(solGross, feeBps)
	if err != nil {
		return 0, State{}, err
	}
	next = State{VirtualSolReserves: newVirtualSol, VirtualTokenReserves: newVirtualTokens}
	if _, err := p.realSol(next); err != nil {
		return 0, State{}, ErrReservesExhausted
	}
	return solOut, next, nil
}

// Complete reports whether the curve has sold down to its real-reserve
// floor and should be closed and migrated, per the "reached cap" condition
// tracked server-side rather than recomputed from chain state each time.
func Complete(s State, p Params) bool {
	realTok, err := p.realTokens(s)
	if err != nil {
		return true
	}
	return realTok == 0
}
