package store

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"launchctl/internal/project"
)

func TestPubkeyBytesRoundTrip(t *testing.T) {
	var pk project.Pubkey
	copy(pk[:], []byte("0123456789012345678901234567890"))

	b := pubkeyBytes(&pk)
	if len(b) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(b))
	}
	got := toPubkey(b)
	if *got != pk {
		t.Fatalf("round trip mismatch: got %v want %v", got, pk)
	}
}

func TestPubkeyBytesNilInput(t *testing.T) {
	if b := pubkeyBytes(nil); b != nil {
		t.Fatalf("expected nil for nil pubkey, got %v", b)
	}
	if p := toPubkey(nil); p != nil {
		t.Fatalf("expected nil pubkey for nil bytes, got %v", p)
	}
}

func TestKeypairBytesRoundTrip(t *testing.T) {
	var kp project.Keypair
	for i := range kp {
		kp[i] = byte(i)
	}
	b := keypairBytes(&kp)
	if len(b) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(b))
	}
	got := toKeypair(b)
	if *got != kp {
		t.Fatalf("round trip mismatch")
	}
}

func TestParseStageKnownAndUnknown(t *testing.T) {
	cases := map[string]project.Stage{
		"created":            project.StageCreated,
		"confirmed":          project.StageConfirmed,
		"on_static_pool":     project.StageOnStaticPool,
		"static_pool_closed": project.StageStaticPoolClosed,
		"on_curve_pool":      project.StageOnCurvePool,
		"curve_pool_closed":  project.StageCurvePoolClosed,
		"graduated":          project.StageGraduated,
		"nonsense":           project.StageCreated,
	}
	for in, want := range cases {
		if got := parseStage(in); got != want {
			t.Errorf("parseStage(%q) = %v, want %v", in, got, want)
		}
	}
}

// fakeScanRow supplies scanProject's positional arguments directly, the way
// database/sql's row.Scan would after reading a real row.
type fakeScanRow struct {
	id                     uuid.UUID
	owner                  []byte
	stage                  string
	createdAt              time.Time
	hasStaticPool          bool
	launchTS               sql.NullTime
	curveVariant           string
	devAmount              sql.NullInt64
	devLockKind            sql.NullString
	devLockIntervalSeconds sql.NullInt64
	staticPoolPubkey       []byte
	curvePoolKeypair       []byte
	devLockKeypair         []byte
	name, symbol, desc     string
	website, twitter, tg   string
	metadataURI            string
	staticCollected        int64
	staticClosed           bool
	staticLastSlot         int64
	curveVirtualSol        int64
	curveVirtualToken      int64
	curveComplete          bool
	curveLastSlot          int64
}

func (r fakeScanRow) scan(dest ...any) error {
	targets := []any{
		&r.id, &r.owner, &r.stage, &r.createdAt,
		&r.hasStaticPool, &r.launchTS, &r.curveVariant,
		&r.devAmount, &r.devLockKind, &r.devLockIntervalSeconds,
		&r.staticPoolPubkey, &r.curvePoolKeypair, &r.devLockKeypair,
		&r.name, &r.symbol, &r.desc, &r.website,
		&r.twitter, &r.tg, &r.metadataURI,
		&r.staticCollected, &r.staticClosed, &r.staticLastSlot,
		&r.curveVirtualSol, &r.curveVirtualToken, &r.curveComplete, &r.curveLastSlot,
	}
	if len(targets) != len(dest) {
		return fmt.Errorf("scan arg count mismatch: got %d want %d", len(dest), len(targets))
	}
	for i := range dest {
		if err := copyScanValue(dest[i], targets[i]); err != nil {
			return err
		}
	}
	return nil
}

// copyScanValue copies the value pointed to by src into dest, both of which
// must be pointers to the same underlying type. Mirrors what
// database/sql.Rows.Scan does for directly-assignable destination types.
func copyScanValue(dest, src any) error {
	switch d := dest.(type) {
	case *uuid.UUID:
		*d = *src.(*uuid.UUID)
	case *[]byte:
		*d = *src.(*[]byte)
	case *string:
		*d = *src.(*string)
	case *time.Time:
		*d = *src.(*time.Time)
	case *bool:
		*d = *src.(*bool)
	case *int64:
		*d = *src.(*int64)
	case *sql.NullTime:
		*d = *src.(*sql.NullTime)
	case *sql.NullInt64:
		*d = *src.(*sql.NullInt64)
	case *sql.NullString:
		*d = *src.(*sql.NullString)
	default:
		return fmt.Errorf("copyScanValue: unsupported dest type %T", dest)
	}
	return nil
}

func TestScanProjectReconstructsStaticPoolOnlyWhenPresent(t *testing.T) {
	launch := time.Now().Truncate(time.Second)
	row := fakeScanRow{
		id:                     uuid.New(),
		owner:                  make([]byte, 32),
		stage:                  "on_static_pool",
		createdAt:              time.Now(),
		hasStaticPool:          true,
		launchTS:               sql.NullTime{Time: launch, Valid: true},
		curveVariant:           "moonzip",
		devAmount:              sql.NullInt64{Int64: 1000, Valid: true},
		devLockKind:            sql.NullString{String: "interval", Valid: true},
		devLockIntervalSeconds: sql.NullInt64{Int64: 3600, Valid: true},
		staticPoolPubkey:       make([]byte, 32),
		curvePoolKeypair:       make([]byte, 64),
		devLockKeypair:         make([]byte, 64),
		name:                   "Name", symbol: "SYM", desc: "desc",
		website: "web", twitter: "tw", tg: "tg",
		metadataURI:       "uri",
		staticCollected:   500,
		staticLastSlot:    10,
		curveVirtualSol:   1,
		curveVirtualToken: 2,
		curveLastSlot:     3,
	}

	p, err := scanProject(row.scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Schema.StaticPool == nil {
		t.Fatal("expected static pool config to be reconstructed")
	}
	if !p.Schema.StaticPool.LaunchTS.Equal(launch) {
		t.Fatalf("launch ts mismatch: got %v want %v", p.Schema.StaticPool.LaunchTS, launch)
	}
	if p.Schema.DevPurchase == nil || p.Schema.DevPurchase.Lock != project.DevLockInterval {
		t.Fatal("expected dev purchase with interval lock")
	}
	if p.Schema.DevPurchase.LockInterval != time.Hour {
		t.Fatalf("expected 1h lock interval, got %v", p.Schema.DevPurchase.LockInterval)
	}
}

func TestScanProjectOmitsStaticPoolWhenAbsent(t *testing.T) {
	row := fakeScanRow{
		id:               uuid.New(),
		owner:            make([]byte, 32),
		stage:            "on_curve_pool",
		createdAt:        time.Now(),
		hasStaticPool:    false,
		curveVariant:     "pumpfun",
		staticPoolPubkey: nil,
		curvePoolKeypair: make([]byte, 64),
		devLockKeypair:   nil,
	}

	p, err := scanProject(row.scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Schema.StaticPool != nil {
		t.Fatal("expected no static pool config")
	}
	if p.Schema.DevPurchase != nil {
		t.Fatal("expected no dev purchase")
	}
	if p.CurvePoolKeypair == nil {
		t.Fatal("expected curve pool keypair to be set")
	}
}
