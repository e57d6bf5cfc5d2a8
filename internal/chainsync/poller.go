package chainsync

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"launchctl/internal/chainrpc"
	"launchctl/internal/project"
)

// AccountReader is the subset of internal/chainrpc.Client the poller needs,
// kept narrow so tests can supply a fake.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (chainrpc.AccountInfo, error)
}

// watchKind selects how a watched account's raw bytes are decoded.
type watchKind int

const (
	watchProject watchKind = iota
	watchStaticPool
	watchCurvePool
)

type watchTarget struct {
	projectID uuid.UUID
	pubkey    string
	kind      watchKind
	lastSlot  uint64
}

// PollingSource is a Source that periodically re-reads a fixed set of
// watched accounts and emits an Event for whichever ones changed slot since
// the previous poll. It is the chain syncer's account-watch loop: new
// projects are registered with WatchProject, WatchStaticPool and
// WatchCurvePool as soon as their pool pubkeys are
// assigned, and the loop itself never needs to know anything about Postgres.
type PollingSource struct {
	reader   AccountReader
	interval time.Duration
	targets  []watchTarget
	queue    chan Event
	watchCh  chan watchTarget
}

// NewPollingSource builds a PollingSource that polls reader every interval.
func NewPollingSource(reader AccountReader, interval time.Duration) *PollingSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PollingSource{
		reader:   reader,
		interval: interval,
		queue:    make(chan Event, 256),
		watchCh:  make(chan watchTarget, 256),
	}
}

// WatchProject registers a project's existence-signal account for polling
// on the next and every subsequent tick.
func (p *PollingSource) WatchProject(projectID uuid.UUID, pubkey project.Pubkey) {
	p.watchCh <- watchTarget{projectID: projectID, pubkey: base58.Encode(pubkey[:]), kind: watchProject}
}

// WatchStaticPool registers a project's static pool account for polling.
func (p *PollingSource) WatchStaticPool(projectID uuid.UUID, pubkey project.Pubkey) {
	p.watchCh <- watchTarget{projectID: projectID, pubkey: base58.Encode(pubkey[:]), kind: watchStaticPool}
}

// WatchCurvePool registers a project's curve pool account for polling.
func (p *PollingSource) WatchCurvePool(projectID uuid.UUID, pubkey project.Pubkey) {
	p.watchCh <- watchTarget{projectID: projectID, pubkey: base58.Encode(pubkey[:]), kind: watchCurvePool}
}

// Run drains newly registered watch targets and polls the existing ones on
// interval until ctx is cancelled. It must run in its own goroutine
// alongside Consumer.Run, which calls Next to drain the events Run produces.
func (p *PollingSource) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.watchCh:
			p.targets = append(p.targets, t)
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *PollingSource) pollAll(ctx context.Context) {
	for i := range p.targets {
		t := &p.targets[i]
		info, err := p.reader.GetAccountInfo(ctx, t.pubkey)
		if err != nil || info.Slot <= t.lastSlot || len(info.Data) == 0 {
			continue
		}
		t.lastSlot = info.Slot
		ev, ok := decodeEvent(*t, info)
		if !ok {
			continue
		}
		select {
		case p.queue <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Next implements Source by draining the event queue Run populates.
func (p *PollingSource) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-p.queue:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeEvent interprets a watched account's raw bytes per its kind. The
// layout mirrors internal/txbuilder's little-endian wire encoding: static
// pool accounts are 8 bytes collected lamports followed by a 1-byte closed
// flag; curve pool accounts are 8 bytes virtual SOL reserves, 8 bytes
// virtual token reserves, then a 1-byte complete flag.
func decodeEvent(t watchTarget, info chainrpc.AccountInfo) (Event, bool) {
	switch t.kind {
	case watchProject:
		return ProjectObserved{ProjectID: t.projectID, Slot: info.Slot}, true
	case watchStaticPool:
		if len(info.Data) < 9 {
			return nil, false
		}
		return StaticPoolStateEvent{
			ProjectID:         t.projectID,
			Slot:              info.Slot,
			CollectedLamports: binary.LittleEndian.Uint64(info.Data[0:8]),
			Closed:            info.Data[8] != 0,
		}, true
	case watchCurvePool:
		if len(info.Data) < 17 {
			return nil, false
		}
		return CurvePoolStateEvent{
			ProjectID:            t.projectID,
			Slot:                 info.Slot,
			VirtualSolReserves:   binary.LittleEndian.Uint64(info.Data[0:8]),
			VirtualTokenReserves: binary.LittleEndian.Uint64(info.Data[8:16]),
			Complete:             info.Data[16] != 0,
		}, true
	default:
		return nil, false
	}
}
