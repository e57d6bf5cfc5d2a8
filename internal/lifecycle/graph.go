// Package lifecycle holds the project stage transition graph and the
// eligibility predicates the migrator worker uses to find candidates. The
// graph is a first-class value rather than a free-form status column, so
// every legal edge is enumerable and every CAS against it can be checked
// against this table instead of ad-hoc conditionals.
package lifecycle

import (
	"time"

	"launchctl/internal/project"
)

// Graph enumerates the legal outgoing edges for every stage. A project may
// never move to a stage absent from its current stage's edge list — this is
// invariant I4 (no backward transitions) given first-class form.
var Graph = map[project.Stage][]project.Stage{
	project.StageCreated:          {project.StageConfirmed},
	project.StageConfirmed:        {project.StageOnStaticPool, project.StageOnCurvePool},
	project.StageOnStaticPool:     {project.StageStaticPoolClosed},
	project.StageStaticPoolClosed: {project.StageOnCurvePool},
	project.StageOnCurvePool:      {project.StageCurvePoolClosed},
	project.StageCurvePoolClosed:  {project.StageGraduated},
	project.StageGraduated:        nil,
}

// CanTransition reports whether from -> to is a legal edge in Graph.
func CanTransition(from, to project.Stage) bool {
	for _, next := range Graph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextConfirmedStage picks the edge Confirmed should take for a given
// project, which branches on whether the project's schema has a static pool.
func NextConfirmedStage(p *project.Project) project.Stage {
	if p.Schema.HasStaticPool() {
		return project.StageOnStaticPool
	}
	return project.StageOnCurvePool
}

// NeedsConfirm reports whether p is waiting for the chain syncer to have
// observed its on-chain create instruction. observed reports whether the
// syncer has seen the project's on-chain account.
func NeedsConfirm(p *project.Project, observed bool) bool {
	return p.Stage == project.StageCreated && observed
}

// NeedsStaticClose reports whether p's static pool should close: either its
// configured launch timestamp has passed, or the chain-observed collected
// lamports have reached the configured cap. When both conditions are
// configured, whichever triggers first closes the pool (spec leaves the
// dual-condition policy open; this is the documented choice).
func NeedsStaticClose(p *project.Project, now time.Time, capLamports uint64) bool {
	if p.Stage != project.StageOnStaticPool {
		return false
	}
	if p.Schema.StaticPool != nil && !now.Before(p.Schema.StaticPool.LaunchTS) {
		return true
	}
	if p.StaticPoolState != nil && p.StaticPoolState.CollectedLamports >= capLamports {
		return true
	}
	return false
}

// NeedsStaticGraduate reports whether p's closed static pool should be
// migrated onto a curve pool.
func NeedsStaticGraduate(p *project.Project) bool {
	return p.Stage == project.StageStaticPoolClosed
}

// NeedsCurveClose reports whether p's curve pool has reached its completion
// flag and should be closed.
func NeedsCurveClose(p *project.Project) bool {
	if p.Stage != project.StageOnCurvePool {
		return false
	}
	return p.CurvePoolState != nil && p.CurvePoolState.Complete
}

// NeedsAMMGraduate reports whether p's closed curve pool still needs a
// migration step: external-curve projects graduate to an external AMM;
// internal-curve projects terminate at Graduated via a simpler close and so
// never need this predicate to fire.
func NeedsAMMGraduate(p *project.Project) bool {
	return p.Stage == project.StageCurvePoolClosed && p.Schema.CurvePool == project.CurveExternal
}

// TerminalStageForInternalClose is the stage an internal-curve project moves
// to directly from CurvePoolClosed, since it has no external AMM step.
const TerminalStageForInternalClose = project.StageGraduated
