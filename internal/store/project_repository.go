package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"launchctl/internal/keypairpool"
	"launchctl/internal/project"
)

// ProjectRepository is the Project Store's query surface. Every method
// issues its own statement; callers that need several statements inside one
// transaction use DB() directly. The migrator does not: it calls
// LockMigration, AdvanceStage and UnlockMigration one by one.
type ProjectRepository struct {
	client   *Client
	keypairs *keypairpool.Pool
}

// NewProjectRepository builds a ProjectRepository over an open Client.
// keypairs may be nil for callers that never create projects (the migrator
// and chain syncer only read and advance existing rows).
func NewProjectRepository(c *Client, keypairs *keypairpool.Pool) *ProjectRepository {
	return &ProjectRepository{client: c, keypairs: keypairs}
}

// execer is the subset of *sql.DB/*sql.Tx insertProject needs, so the same
// statement works whether or not it runs inside a keypair-assigning
// transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func pubkeyBytes(p *project.Pubkey) []byte {
	if p == nil {
		return nil
	}
	b := make([]byte, 32)
	copy(b, p[:])
	return b
}

func keypairBytes(k *project.Keypair) []byte {
	if k == nil {
		return nil
	}
	b := make([]byte, 64)
	copy(b, k[:])
	return b
}

func toPubkey(b []byte) *project.Pubkey {
	if b == nil {
		return nil
	}
	var p project.Pubkey
	copy(p[:], b)
	return &p
}

func toKeypair(b []byte) *project.Keypair {
	if b == nil {
		return nil
	}
	var k project.Keypair
	copy(k[:], b)
	return &k
}

// CreateProject assigns an internal-curve project its curve pool keypair
// out of the keypair pool and inserts the project row, both inside one
// transaction, so a row is never committed with a keypair that failed to
// reserve or vice versa (invariant I2). External-curve projects and schemas
// with no curve pool draw nothing from the pool. The caller is responsible
// for having validated p.Schema beforehand (project.DeploySchema.Validate).
func (r *ProjectRepository) CreateProject(ctx context.Context, p *project.Project) error {
	tx, err := r.client.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: create project: begin tx: %w", err)
	}
	defer tx.Rollback()

	if r.keypairs != nil && p.Schema.CurvePool == project.CurveInternal && p.CurvePoolKeypair == nil {
		kp, err := r.keypairs.Assign(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		p.CurvePoolKeypair = &kp
	}

	if err := insertProject(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: create project: commit: %w", err)
	}
	return nil
}

// insertProject issues the project row INSERT against ex, so CreateProject
// can run it inside the same transaction as a keypair assignment.
func insertProject(ctx context.Context, ex execer, p *project.Project) error {
	var launchTS *time.Time
	if p.Schema.StaticPool != nil {
		launchTS = &p.Schema.StaticPool.LaunchTS
	}
	var devAmount *uint64
	var devLockKind *string
	var devLockIntervalSeconds *int64
	if p.Schema.DevPurchase != nil {
		amt := p.Schema.DevPurchase.Amount
		devAmount = &amt
		kind := "disabled"
		if p.Schema.DevPurchase.Lock == project.DevLockInterval {
			kind = "interval"
			secs := int64(p.Schema.DevPurchase.LockInterval / time.Second)
			devLockIntervalSeconds = &secs
		}
		devLockKind = &kind
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO projects (
			id, owner, stage, created_at,
			has_static_pool, static_launch_ts, curve_variant,
			dev_purchase_amount, dev_lock_kind, dev_lock_interval_seconds,
			static_pool_pubkey, curve_pool_keypair, dev_lock_keypair,
			token_name, token_symbol, token_description, token_website,
			token_twitter, token_telegram, token_metadata_uri
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		p.ID, p.Owner[:], p.Stage.String(), p.CreatedAt,
		p.Schema.HasStaticPool(), launchTS, p.Schema.CurvePool.String(),
		devAmount, devLockKind, devLockIntervalSeconds,
		pubkeyBytes(p.StaticPoolPubkey), keypairBytes(p.CurvePoolKeypair), keypairBytes(p.DevLockKeypair),
		p.Metadata.Name, p.Metadata.Symbol, p.Metadata.Description, p.Metadata.Website,
		p.Metadata.Twitter, p.Metadata.Telegram, p.Metadata.MetadataURI,
	)
	if err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

const projectColumns = `
	id, owner, stage, created_at,
	has_static_pool, static_launch_ts, curve_variant,
	dev_purchase_amount, dev_lock_kind, dev_lock_interval_seconds,
	static_pool_pubkey, curve_pool_keypair, dev_lock_keypair,
	token_name, token_symbol, token_description, token_website,
	token_twitter, token_telegram, token_metadata_uri,
	static_pool_collected_lamports, static_pool_closed, static_pool_last_slot,
	curve_virtual_sol_reserves, curve_virtual_token_reserves, curve_complete, curve_last_slot`

func scanProject(scan func(...any) error) (*project.Project, error) {
	var (
		p                        project.Project
		stageStr, curveVariant   string
		owner                    []byte
		launchTS                 sql.NullTime
		devAmount                sql.NullInt64
		devLockKind              sql.NullString
		devLockIntervalSeconds   sql.NullInt64
		staticPoolPubkey         []byte
		curvePoolKeypair         []byte
		devLockKeypair           []byte
		staticCollected          int64
		staticClosed             bool
		staticLastSlot           int64
		curveVirtualSol          int64
		curveVirtualToken        int64
		curveComplete            bool
		curveLastSlot            int64
	)
	var hasStaticPool bool
	if err := scan(
		&p.ID, &owner, &stageStr, &p.CreatedAt,
		&hasStaticPool, &launchTS, &curveVariant,
		&devAmount, &devLockKind, &devLockIntervalSeconds,
		&staticPoolPubkey, &curvePoolKeypair, &devLockKeypair,
		&p.Metadata.Name, &p.Metadata.Symbol, &p.Metadata.Description, &p.Metadata.Website,
		&p.Metadata.Twitter, &p.Metadata.Telegram, &p.Metadata.MetadataURI,
		&staticCollected, &staticClosed, &staticLastSlot,
		&curveVirtualSol, &curveVirtualToken, &curveComplete, &curveLastSlot,
	); err != nil {
		return nil, err
	}
	copy(p.Owner[:], owner)
	p.Stage = parseStage(stageStr)
	variant, _ := project.ParseCurveVariant(curveVariant)
	p.Schema.CurvePool = variant
	if hasStaticPool && launchTS.Valid {
		p.Schema.StaticPool = &project.StaticPoolConfig{LaunchTS: launchTS.Time}
	}
	if devLockKind.Valid {
		lock := project.DevLockDisabled
		if devLockKind.String == "interval" {
			lock = project.DevLockInterval
		}
		dp := &project.DevPurchase{Lock: lock}
		if devAmount.Valid {
			dp.Amount = uint64(devAmount.Int64)
		}
		if devLockIntervalSeconds.Valid {
			dp.LockInterval = time.Duration(devLockIntervalSeconds.Int64) * time.Second
		}
		p.Schema.DevPurchase = dp
	}
	p.StaticPoolPubkey = toPubkey(staticPoolPubkey)
	p.CurvePoolKeypair = toKeypair(curvePoolKeypair)
	p.DevLockKeypair = toKeypair(devLockKeypair)
	p.StaticPoolState = &project.StaticPoolState{
		CollectedLamports: uint64(staticCollected),
		Closed:            staticClosed,
		LastSlot:          uint64(staticLastSlot),
	}
	p.CurvePoolState = &project.CurvePoolState{
		VirtualSolReserves:   uint64(curveVirtualSol),
		VirtualTokenReserves: uint64(curveVirtualToken),
		Complete:             curveComplete,
		LastSlot:             uint64(curveLastSlot),
	}
	return &p, nil
}

func parseStage(s string) project.Stage {
	switch s {
	case "created":
		return project.StageCreated
	case "confirmed":
		return project.StageConfirmed
	case "on_static_pool":
		return project.StageOnStaticPool
	case "static_pool_closed":
		return project.StageStaticPoolClosed
	case "on_curve_pool":
		return project.StageOnCurvePool
	case "curve_pool_closed":
		return project.StageCurvePoolClosed
	case "graduated":
		return project.StageGraduated
	default:
		return project.StageCreated
	}
}

// GetProject fetches a project by id, returning ErrNotFound if it does not
// exist.
func (r *ProjectRepository) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	row := r.client.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return p, nil
}

// ListPending returns projects in stage with no migration lock held,
// created at or before beforeTS, oldest first. The migrator polls
// this to find work.
func (r *ProjectRepository) ListPending(ctx context.Context, stage project.Stage, beforeTS time.Time, limit int) ([]*project.Project, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE p.stage = $1
		  AND p.created_at <= $2
		  AND NOT EXISTS (SELECT 1 FROM project_migration_locks l WHERE l.project_id = p.id)
		ORDER BY p.created_at ASC
		LIMIT $3`, stage.String(), beforeTS, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list pending: %w", err)
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: scan pending project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdvanceStage performs the CAS stage transition: it only succeeds if the
// row's current stage still equals from. A zero rows-affected result means
// someone else moved the project first, or it was never in "from".
func (r *ProjectRepository) AdvanceStage(ctx context.Context, id uuid.UUID, from, to project.Stage) error {
	res, err := r.client.db.ExecContext(ctx,
		`UPDATE projects SET stage = $1 WHERE id = $2 AND stage = $3`,
		to.String(), id, from.String(),
	)
	if err != nil {
		return fmt.Errorf("store: advance stage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: advance stage rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleStage
	}
	return nil
}

// AssignKeypair sets one of the project's immutable identity fields exactly
// once (invariants I1-I3 enforced by the WHERE ... IS NULL clause). field
// must be one of "static_pool_pubkey", "curve_pool_keypair",
// "dev_lock_keypair".
func (r *ProjectRepository) AssignKeypair(ctx context.Context, id uuid.UUID, field string, value []byte) error {
	switch field {
	case "static_pool_pubkey", "curve_pool_keypair", "dev_lock_keypair":
	default:
		return fmt.Errorf("store: assign keypair: unknown field %q", field)
	}
	query := fmt.Sprintf(`UPDATE projects SET %s = $1 WHERE id = $2 AND %s IS NULL`, field, field)
	res, err := r.client.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("store: assign keypair: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: %s already assigned", field)
	}
	return nil
}

// UpsertStaticPoolState applies a chain-observed static pool update only if
// slot is newer than the project's last recorded slot, per the idempotent
// last-writer-wins-on-increasing-slot rule.
func (r *ProjectRepository) UpsertStaticPoolState(ctx context.Context, id uuid.UUID, collected uint64, closed bool, slot uint64) error {
	_, err := r.client.db.ExecContext(ctx, `
		UPDATE projects
		SET static_pool_collected_lamports = $1, static_pool_closed = $2, static_pool_last_slot = $3
		WHERE id = $4 AND static_pool_last_slot < $3`,
		collected, closed, slot, id,
	)
	if err != nil {
		return fmt.Errorf("store: upsert static pool state: %w", err)
	}
	return nil
}

// UpsertCurvePoolState is the curve-pool counterpart of
// UpsertStaticPoolState.
func (r *ProjectRepository) UpsertCurvePoolState(ctx context.Context, id uuid.UUID, virtualSol, virtualToken uint64, complete bool, slot uint64) error {
	_, err := r.client.db.ExecContext(ctx, `
		UPDATE projects
		SET curve_virtual_sol_reserves = $1, curve_virtual_token_reserves = $2, curve_complete = $3, curve_last_slot = $4
		WHERE id = $5 AND curve_last_slot < $4`,
		virtualSol, virtualToken, complete, slot, id,
	)
	if err != nil {
		return fmt.Errorf("store: upsert curve pool state: %w", err)
	}
	return nil
}

// LockMigration claims the per-project migration lock for lockedBy (a
// worker identifier), failing with ErrMigrationLocked if another worker
// already holds it.
func (r *ProjectRepository) LockMigration(ctx context.Context, id uuid.UUID, lockedBy string) error {
	_, err := r.client.db.ExecContext(ctx,
		`INSERT INTO project_migration_locks (project_id, locked_at, locked_by) VALUES ($1, now(), $2)
		 ON CONFLICT (project_id) DO NOTHING`,
		id, lockedBy,
	)
	if err != nil {
		return fmt.Errorf("store: lock migration: %w", err)
	}
	var owner string
	if err := r.client.db.QueryRowContext(ctx,
		`SELECT locked_by FROM project_migration_locks WHERE project_id = $1`, id,
	).Scan(&owner); err != nil {
		return fmt.Errorf("store: lock migration read-back: %w", err)
	}
	if owner != lockedBy {
		return ErrMigrationLocked
	}
	return nil
}

// UnlockMigration releases a migration lock this worker previously claimed.
func (r *ProjectRepository) UnlockMigration(ctx context.Context, id uuid.UUID, lockedBy string) error {
	_, err := r.client.db.ExecContext(ctx,
		`DELETE FROM project_migration_locks WHERE project_id = $1 AND locked_by = $2`, id, lockedBy,
	)
	if err != nil {
		return fmt.Errorf("store: unlock migration: %w", err)
	}
	return nil
}
