// Package chainiface defines the opaque on-chain instruction and
// account-layout model: discriminators and account metas, with no knowledge
// of the real program's IDL. This is the seam where the actual deployed
// program's instruction set would plug in; everything upstream of this
// package only ever constructs and combines Instruction values.
package chainiface

import (
	"encoding/binary"

	"launchctl/internal/project"
)

// AccountMeta mirrors the account-metadata triple every instruction account
// carries on-chain: which key, and whether it must sign or be writable.
type AccountMeta struct {
	Pubkey     project.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single opaque on-chain instruction: a target program, the
// accounts it touches, and an opaque data payload. Nothing in this package
// or its callers interprets Data beyond constructing it.
type Instruction struct {
	ProgramID project.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Discriminators identify which instruction handler Data dispatches to,
// matching the 8-byte-prefix convention used by anchor-style Solana
// programs. The exact values are a placeholder for the real deployed
// program's IDL; what matters here is that every instruction carries one.
var (
	DiscCreateProject  = [8]byte{1}
	DiscBuyStatic      = [8]byte{2}
	DiscCloseStatic    = [8]byte{3}
	DiscGraduateStatic = [8]byte{4}
	DiscBuyCurve       = [8]byte{5}
	DiscSellCurve      = [8]byte{6}
	DiscCloseCurve     = [8]byte{7}
	DiscClaimDevLock   = [8]byte{8}
	DiscGraduateToAMM  = [8]byte{9}
)

func encodeU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// NewCreateProject builds the instruction that initializes a project's
// on-chain accounts. curvePool doubles as the mint: a project's curve pool
// account is the same account that carries its token identity, so internal-
// curve projects co-sign with a single platform-held keypair rather than
// separate mint and pool keys. curvePool is nil for external-curve projects,
// whose mint and pool accounts are created by the external program instead.
// staticPool is nil unless the schema configures a pre-sale pool.
func NewCreateProject(programID project.Pubkey, payer project.Pubkey, curvePool, staticPool *project.Pubkey) Instruction {
	accounts := []AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
	}
	if curvePool != nil {
		accounts = append(accounts, AccountMeta{Pubkey: *curvePool, IsSigner: true, IsWritable: true})
	}
	if staticPool != nil {
		accounts = append(accounts, AccountMeta{Pubkey: *staticPool, IsSigner: false, IsWritable: true})
	}
	return Instruction{ProgramID: programID, Accounts: accounts, Data: DiscCreateProject[:]}
}

// NewBuyStatic builds the instruction that deposits lamports into a
// project's pre-sale pool.
func NewBuyStatic(programID project.Pubkey, buyer, staticPool project.Pubkey, lamports uint64) Instruction {
	data := append([]byte{}, DiscBuyStatic[:]...)
	data = encodeU64(data, lamports)
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: buyer, IsSigner: true, IsWritable: true},
			{Pubkey: staticPool, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// NewCloseStatic builds the instruction that closes a pre-sale pool once its
// launch condition has been reached.
func NewCloseStatic(programID project.Pubkey, authority, staticPool project.Pubkey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: authority, IsSigner: true, IsWritable: false},
			{Pubkey: staticPool, IsSigner: false, IsWritable: true},
		},
		Data: DiscCloseStatic[:],
	}
}

// NewGraduateStaticToCurve builds the instruction that moves a closed
// pre-sale pool's collected lamports into the project's curve pool.
func NewGraduateStaticToCurve(programID project.Pubkey, authority, staticPool, curvePool project.Pubkey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: authority, IsSigner: true, IsWritable: false},
			{Pubkey: staticPool, IsSigner: false, IsWritable: true},
			{Pubkey: curvePool, IsSigner: false, IsWritable: true},
		},
		Data: DiscGraduateStatic[:],
	}
}

// NewBuyCurve builds the instruction that swaps lamports for tokens against
// a project's internal bonding-curve pool.
func NewBuyCurve(programID project.Pubkey, buyer, curvePool project.Pubkey, lamportsIn uint64) Instruction {
	data := append([]byte{}, DiscBuyCurve[:]...)
	data = encodeU64(data, lamportsIn)
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: buyer, IsSigner: true, IsWritable: true},
			{Pubkey: curvePool, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// NewSellCurve builds the instruction that swaps tokens for lamports against
// a project's internal bonding-curve pool.
func NewSellCurve(programID project.Pubkey, seller, curvePool project.Pubkey, tokensIn uint64) Instruction {
	data := append([]byte{}, DiscSellCurve[:]...)
	data = encodeU64(data, tokensIn)
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: seller, IsSigner: true, IsWritable: true},
			{Pubkey: curvePool, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// NewCloseCurve builds the instruction that closes a curve pool once its
// completion condition has been reached.
func NewCloseCurve(programID project.Pubkey, authority, curvePool project.Pubkey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: authority, IsSigner: true, IsWritable: false},
			{Pubkey: curvePool, IsSigner: false, IsWritable: true},
		},
		Data: DiscCloseCurve[:],
	}
}

// NewClaimDevLock builds the instruction that releases an escrowed dev
// purchase to its owner once the lock interval has elapsed.
func NewClaimDevLock(programID project.Pubkey, owner, devLockAccount project.Pubkey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: owner, IsSigner: true, IsWritable: true},
			{Pubkey: devLockAccount, IsSigner: false, IsWritable: true},
		},
		Data: DiscClaimDevLock[:],
	}
}

// AMMGraduator builds the instruction that moves a closed curve pool's
// liquidity onto an external AMM. The real instruction set for any given
// external AMM program is unspecified; callers depend on this interface, not
// a concrete encoding, so a new AMM integration is a new implementation of
// this interface rather than a change to the migrator.
type AMMGraduator interface {
	GraduateToExternalAMM(authority, curvePool project.Pubkey) (Instruction, error)
}

// OpaqueAMMGraduator is a placeholder AMMGraduator that emits a single
// fixed-shape instruction carrying no program-specific accounts beyond the
// authority and curve pool. Production deployments replace this with a
// graduator built against the target AMM's actual IDL.
type OpaqueAMMGraduator struct {
	ExternalProgramID project.Pubkey
}

func (g OpaqueAMMGraduator) GraduateToExternalAMM(authority, curvePool project.Pubkey) (Instruction, error) {
	return Instruction{
		ProgramID: g.ExternalProgramID,
		Accounts: []AccountMeta{
			{Pubkey: authority, IsSigner: true, IsWritable: false},
			{Pubkey: curvePool, IsSigner: false, IsWritable: true},
		},
		Data: DiscGraduateToAMM[:],
	}, nil
}
