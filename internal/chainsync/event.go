// Package chainsync consumes the chain indexer's event stream and folds it
// into the Project Store. Event is a closed Go sum type (an interface with
// a private marker method) rather than an open EventType-string-plus-
// map[string]any shape, because this consumer only ever needs the small
// fixed set of events below.
package chainsync

import "github.com/google/uuid"

// Event is any chain-observed fact the consumer knows how to fold into the
// Project Store.
type Event interface {
	isChainEvent()
}

// ProjectObserved reports that a project's create instruction has landed
// on-chain at slot.
type ProjectObserved struct {
	ProjectID uuid.UUID
	Slot      uint64
}

func (ProjectObserved) isChainEvent() {}

// StaticPoolStateEvent reports the current observed state of a project's
// pre-sale pool as of slot.
type StaticPoolStateEvent struct {
	ProjectID         uuid.UUID
	Slot              uint64
	CollectedLamports uint64
	Closed            bool
}

func (StaticPoolStateEvent) isChainEvent() {}

// CurvePoolStateEvent reports the current observed state of a project's
// bonding-curve pool as of slot.
type CurvePoolStateEvent struct {
	ProjectID            uuid.UUID
	Slot                 uint64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	Complete             bool
}

func (CurvePoolStateEvent) isChainEvent() {}
