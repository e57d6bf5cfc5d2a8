// Package txbuilder constructs unsigned transactions from the opaque
// instruction model in internal/chainiface. Every exported function is
// pure: no I/O, no persistence, no randomness — callers supply the recent
// blockhash and any keys the builder needs, and get back a wire-ready
// Transaction plus, for trades, the quote the caller should show the user
// before asking for a signature.
package txbuilder

import (
	"encoding/binary"
	"time"

	"launchctl/internal/apperr"
	"launchctl/internal/chainiface"
	"launchctl/internal/curve"
	"launchctl/internal/project"
)

// Transaction is the builder's wire value: the serialized unsigned
// transaction plus the pubkeys of any co-signers the platform itself holds
// keys for (the curve pool authority, a freshly-assigned pool keypair, ...).
// The caller is always expected to add their own signature on top; these are
// signers the platform adds before handing the transaction back.
type Transaction struct {
	Bytes            []byte
	PreSignedSigners []project.Pubkey
}

func serializeInstruction(buf []byte, ix chainiface.Instruction) []byte {
	buf = append(buf, ix.ProgramID[:]...)
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(ix.Accounts)))
	buf = append(buf, n[:]...)
	for _, a := range ix.Accounts {
		buf = append(buf, a.Pubkey[:]...)
		flags := byte(0)
		if a.IsSigner {
			flags |= 1
		}
		if a.IsWritable {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	var dlen [4]byte
	binary.LittleEndian.PutUint32(dlen[:], uint32(len(ix.Data)))
	buf = append(buf, dlen[:]...)
	buf = append(buf, ix.Data...)
	return buf
}

// serialize concatenates the recent blockhash with every instruction in
// order, the minimal wire shape a submitter needs to forward the
// transaction on-chain verbatim.
func serialize(recentBlockhash [32]byte, instructions ...chainiface.Instruction) []byte {
	buf := append([]byte{}, recentBlockhash[:]...)
	for _, ix := range instructions {
		buf = serializeInstruction(buf, ix)
	}
	return buf
}

// BuildCreateProject constructs the transaction that initializes a
// project's on-chain accounts. curvePool is the keypair the keypair pool
// assigned for an internal-curve project (nil for external-curve projects,
// which have no platform-held pool key); staticPool is the pre-sale pool
// account, if the schema configures one.
func BuildCreateProject(programID project.Pubkey, recentBlockhash [32]byte, owner project.Pubkey, curvePool *project.Keypair, staticPool *project.Pubkey) Transaction {
	var curvePoolPub *project.Pubkey
	var preSigned []project.Pubkey
	if curvePool != nil {
		pk := curvePool.Pubkey()
		curvePoolPub = &pk
		preSigned = append(preSigned, pk)
	}
	ix := chainiface.NewCreateProject(programID, owner, curvePoolPub, staticPool)
	return Transaction{Bytes: serialize(recentBlockhash, ix), PreSignedSigners: preSigned}
}

// BuildBuyStatic constructs a pre-sale pool deposit transaction.
func BuildBuyStatic(programID project.Pubkey, recentBlockhash [32]byte, buyer project.Pubkey, staticPool project.Pubkey, lamports uint64) Transaction {
	ix := chainiface.NewBuyStatic(programID, buyer, staticPool, lamports)
	return Transaction{Bytes: serialize(recentBlockhash, ix)}
}

// BuildCloseStatic constructs the authority-signed instruction that closes a
// pre-sale pool once its launch condition has fired.
func BuildCloseStatic(programID project.Pubkey, recentBlockhash [32]byte, authority, staticPool project.Pubkey) Transaction {
	ix := chainiface.NewCloseStatic(programID, authority, staticPool)
	return Transaction{Bytes: serialize(recentBlockhash, ix), PreSignedSigners: []project.Pubkey{authority}}
}

// BuildGraduateStaticToCurve constructs the authority-signed migration
// instruction moving a closed pre-sale pool's proceeds onto the curve pool.
func BuildGraduateStaticToCurve(programID project.Pubkey, recentBlockhash [32]byte, authority, staticPool, curvePool project.Pubkey) Transaction {
	ix := chainiface.NewGraduateStaticToCurve(programID, authority, staticPool, curvePool)
	return Transaction{Bytes: serialize(recentBlockhash, ix), PreSignedSigners: []project.Pubkey{authority}}
}

// BuyQuote is what a caller should show the user before they sign a curve
// buy: the tokens they will receive and the pool state the trade leaves
// behind, so a slippage check can be made against it.
type BuyQuote struct {
	TokensOut uint64
	NextState curve.State
}

// BuildBuyCurve quotes and builds a curve-pool buy. minTokensOut enforces
// the caller's slippage tolerance: if the curve would yield fewer tokens,
// the function returns an apperr.KindSlippageBreach error and no
// transaction, exactly as spec.md's fee and slippage invariants require.
func BuildBuyCurve(programID project.Pubkey, recentBlockhash [32]byte, buyer project.Pubkey, curvePool project.Pubkey, state curve.State, params curve.Params, lamportsIn uint64, feeBps uint16, minTokensOut uint64) (Transaction, BuyQuote, error) {
	tokensOut, next, err := curve.Buy(state, params, lamportsIn, feeBps)
	if err != nil {
		return Transaction{}, BuyQuote{}, apperr.Wrap(apperr.KindValidation, err, "buy quote failed")
	}
	if tokensOut < minTokensOut {
		return Transaction{}, BuyQuote{}, apperr.New(apperr.KindSlippageBreach, "tokens out below minimum requested")
	}
	ix := chainiface.NewBuyCurve(programID, buyer, curvePool, lamportsIn)
	return Transaction{Bytes: serialize(recentBlockhash, ix)}, BuyQuote{TokensOut: tokensOut, NextState: next}, nil
}

// SellQuote is the curve-pool counterpart of BuyQuote.
type SellQuote struct {
	SolOut    uint64
	NextState curve.State
}

// BuildSellCurve quotes and builds a curve-pool sell, enforcing minSolOut as
// the seller's slippage tolerance the same way BuildBuyCurve does.
func BuildSellCurve(programID project.Pubkey, recentBlockhash [32]byte, seller project.Pubkey, curvePool project.Pubkey, state curve.State, params curve.Params, tokensIn uint64, feeBps uint16, minSolOut uint64) (Transaction, SellQuote, error) {
	solOut, next, err := curve.Sell(state, params, tokensIn, feeBps)
	if err != nil {
		return Transaction{}, SellQuote{}, apperr.Wrap(apperr.KindValidation, err, "sell quote failed")
	}
	if solOut < minSolOut {
		return Transaction{}, SellQuote{}, apperr.New(apperr.KindSlippageBreach, "sol out below minimum requested")
	}
	ix := chainiface.NewSellCurve(programID, seller, curvePool, tokensIn)
	return Transaction{Bytes: serialize(recentBlockhash, ix)}, SellQuote{SolOut: solOut, NextState: next}, nil
}

// BuildCloseCurve constructs the authority-signed instruction that closes a
// curve pool once its completion flag has been observed.
func BuildCloseCurve(programID project.Pubkey, recentBlockhash [32]byte, authority, curvePool project.Pubkey) Transaction {
	ix := chainiface.NewCloseCurve(programID, authority, curvePool)
	return Transaction{Bytes: serialize(recentBlockhash, ix), PreSignedSigners: []project.Pubkey{authority}}
}

// ErrStillLocked is returned by BuildClaimDevLock when called before the
// escrow's unlock time. Failing here rather than handing back a
// guaranteed-to-revert transaction avoids burning the caller's blockhash
// budget on a claim that the chain program would reject anyway.
var ErrStillLocked = apperr.New(apperr.KindStateConflict, "dev lock has not reached its unlock time")

// BuildClaimDevLock constructs the instruction that releases an escrowed
// dev purchase, failing fast if interval has not yet elapsed as of now.
func BuildClaimDevLock(programID project.Pubkey, recentBlockhash [32]byte, owner project.Pubkey, devLockAccount project.Pubkey, createdAt time.Time, lockInterval time.Duration, now time.Time) (Transaction, error) {
	if now.Before(createdAt.Add(lockInterval)) {
		return Transaction{}, ErrStillLocked
	}
	ix := chainiface.NewClaimDevLock(programID, owner, devLockAccount)
	return Transaction{Bytes: serialize(recentBlockhash, ix)}, nil
}

// BuildGraduateToExternalAMM constructs the migration instruction for an
// external-curve project via whichever AMMGraduator the caller supplies,
// keeping the migrator itself independent of any concrete AMM's IDL.
func BuildGraduateToExternalAMM(g chainiface.AMMGraduator, recentBlockhash [32]byte, authority, curvePool project.Pubkey) (Transaction, error) {
	ix, err := g.GraduateToExternalAMM(authority, curvePool)
	if err != nil {
		return Transaction{}, apperr.Wrap(apperr.KindTransient, err, "external amm graduation instruction failed")
	}
	return Transaction{Bytes: serialize(recentBlockhash, ix), PreSignedSigners: []project.Pubkey{authority}}, nil
}
