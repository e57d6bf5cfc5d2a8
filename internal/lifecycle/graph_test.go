package lifecycle

import (
	"testing"
	"time"

	"launchctl/internal/project"
)

func TestCanTransitionOnlyLegalEdges(t *testing.T) {
	cases := []struct {
		from, to project.Stage
		want     bool
	}{
		{project.StageCreated, project.StageConfirmed, true},
		{project.StageCreated, project.StageOnCurvePool, false},
		{project.StageConfirmed, project.StageOnStaticPool, true},
		{project.StageConfirmed, project.StageOnCurvePool, true},
		{project.StageOnStaticPool, project.StageOnCurvePool, false},
		{project.StageOnStaticPool, project.StageStaticPoolClosed, true},
		{project.StageStaticPoolClosed, project.StageOnCurvePool, true},
		{project.StageOnCurvePool, project.StageCurvePoolClosed, true},
		{project.StageCurvePoolClosed, project.StageGraduated, true},
		{project.StageGraduated, project.StageCreated, false},
		{project.StageOnCurvePool, project.StageCreated, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%v, %v) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestNextConfirmedStageBranchesOnSchema(t *testing.T) {
	withStatic := &project.Project{Schema: project.DeploySchema{
		StaticPool: &project.StaticPoolConfig{LaunchTS: time.Now().Add(time.Hour)},
	}}
	if got := NextConfirmedStage(withStatic); got != project.StageOnStaticPool {
		t.Fatalf("expected OnStaticPool, got %v", got)
	}

	withoutStatic := &project.Project{Schema: project.DeploySchema{}}
	if got := NextConfirmedStage(withoutStatic); got != project.StageOnCurvePool {
		t.Fatalf("expected OnCurvePool, got %v", got)
	}
}

func TestNeedsStaticCloseEitherConditionFirst(t *testing.T) {
	now := time.Now()
	launch := now.Add(-time.Minute) // already past

	byTime := &project.Project{
		Stage:  project.StageOnStaticPool,
		Schema: project.DeploySchema{StaticPool: &project.StaticPoolConfig{LaunchTS: launch}},
	}
	if !NeedsStaticClose(byTime, now, 1_000_000) {
		t.Fatalf("expected close by elapsed launch_ts")
	}

	byCap := &project.Project{
		Stage:           project.StageOnStaticPool,
		Schema:          project.DeploySchema{StaticPool: &project.StaticPoolConfig{LaunchTS: now.Add(time.Hour)}},
		StaticPoolState: &project.StaticPoolState{CollectedLamports: 2_000_000},
	}
	if !NeedsStaticClose(byCap, now, 1_000_000) {
		t.Fatalf("expected close by cap reached")
	}

	neither := &project.Project{
		Stage:           project.StageOnStaticPool,
		Schema:          project.DeploySchema{StaticPool: &project.StaticPoolConfig{LaunchTS: now.Add(time.Hour)}},
		StaticPoolState: &project.StaticPoolState{CollectedLamports: 1},
	}
	if NeedsStaticClose(neither, now, 1_000_000) {
		t.Fatalf("expected no close when neither condition met")
	}
}

func TestNeedsAMMGraduateOnlyForExternalCurve(t *testing.T) {
	internal := &project.Project{Stage: project.StageCurvePoolClosed, Schema: project.DeploySchema{CurvePool: project.CurveInternal}}
	if NeedsAMMGraduate(internal) {
		t.Fatalf("internal curve should not need AMM graduation")
	}
	external := &project.Project{Stage: project.StageCurvePoolClosed, Schema: project.DeploySchema{CurvePool: project.CurveExternal}}
	if !NeedsAMMGraduate(external) {
		t.Fatalf("external curve should need AMM graduation")
	}
}

func TestNeedsCurveCloseRequiresCompleteFlag(t *testing.T) {
	p := &project.Project{Stage: project.StageOnCurvePool, CurvePoolState: &project.CurvePoolState{Complete: false}}
	if NeedsCurveClose(p) {
		t.Fatalf("should not need close before complete flag")
	}
	p.CurvePoolState.Complete = true
	if !NeedsCurveClose(p) {
		t.Fatalf("should need close once complete flag set")
	}
}
