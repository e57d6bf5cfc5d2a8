// Package keypairpool assigns pre-generated keypairs out of the
// keypair_reservations table to projects that need one, so the platform
// never has to generate (and therefore briefly hold unescrowed) a signing
// key on the request path.
package keypairpool

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"launchctl/internal/apperr"
	"launchctl/internal/project"
)

// ErrPoolExhausted is returned by Assign when no unassigned keypair remains.
var ErrPoolExhausted = apperr.New(apperr.KindResourceExhausted, "keypair pool exhausted")

// Pool assigns keypairs out of a shared Postgres-backed reservation table.
type Pool struct {
	db *sql.DB
}

// New wraps an open *sql.DB as a Pool.
func New(db *sql.DB) *Pool { return &Pool{db: db} }

// Assign pops one unassigned keypair and marks it assigned to projectID,
// all inside tx so the caller can commit or roll back alongside whatever
// else the assignment is part of (e.g. the project row's own creation).
// SELECT ... FOR UPDATE SKIP LOCKED lets concurrent callers each pop a
// distinct row instead of blocking on each other.
func (p *Pool) Assign(ctx context.Context, tx *sql.Tx, projectID uuid.UUID) (project.Keypair, error) {
	var (
		id  int64
		raw []byte
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, keypair FROM keypair_reservations
		WHERE assigned_project_id IS NULL
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
	).Scan(&id, &raw)
	if err == sql.ErrNoRows {
		return project.Keypair{}, ErrPoolExhausted
	}
	if err != nil {
		return project.Keypair{}, fmt.Errorf("keypairpool: select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE keypair_reservations SET assigned_project_id = $1, assigned_at = now() WHERE id = $2`,
		projectID, id,
	); err != nil {
		return project.Keypair{}, fmt.Errorf("keypairpool: assign: %w", err)
	}

	var kp project.Keypair
	copy(kp[:], raw)
	return kp, nil
}

// LowWaterCount returns how many keypairs remain unassigned, so an operator
// job can decide whether to provision more.
func (p *Pool) LowWaterCount(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM keypair_reservations WHERE assigned_project_id IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("keypairpool: low water count: %w", err)
	}
	return n, nil
}

// Provision bulk-inserts freshly generated keypairs into the pool. Callers
// (cmd/keypairctl, primarily) generate the actual key material; this
// function only persists it.
func (p *Pool) Provision(ctx context.Context, keypairs []project.Keypair) error {
	if len(keypairs) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("keypairpool: begin provision tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO keypair_reservations (keypair) VALUES ($1)`)
	if err != nil {
		return fmt.Errorf("keypairpool: prepare provision: %w", err)
	}
	defer stmt.Close()

	for _, kp := range keypairs {
		if _, err := stmt.ExecContext(ctx, kp[:]); err != nil {
			return fmt.Errorf("keypairpool: insert: %w", err)
		}
	}
	return tx.Commit()
}
