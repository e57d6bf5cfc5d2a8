package store

import "launchctl/internal/apperr"

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = apperr.New(apperr.KindValidation, "project not found")

// ErrStaleStage is returned by AdvanceStage when the project's current
// stage no longer matches the expected "from" stage — another writer moved
// it first, or it never was in that stage to begin with.
var ErrStaleStage = apperr.New(apperr.KindStateConflict, "project stage changed since it was read")

// ErrMigrationLocked is returned by LockMigration when another migrator
// worker already holds the lock for this project.
var ErrMigrationLocked = apperr.New(apperr.KindStateConflict, "project migration already locked")

// ErrPoolExhausted reports that no unassigned keypair remains in the pool.
// No function in this package returns it: CreateProject passes
// keypairpool.ErrPoolExhausted through unchanged.
var ErrPoolExhausted = apperr.New(apperr.KindResourceExhausted, "keypair pool exhausted")
