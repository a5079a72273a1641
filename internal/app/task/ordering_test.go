package task

import (
	"reflect"
	"testing"
)

func TestClampIndex(t *testing.T) {
	cases := []struct{ idx, count, want int }{
		{-5, 3, 0},
		{0, 3, 0},
		{2, 3, 2},
		{3, 3, 3},
		{99, 3, 3},
		{0, 0, 0},
		{7, 0, 0},
	}
	for _, tc := range cases {
		if got := ClampIndex(tc.idx, tc.count); got != tc.want {
			t.Fatalf("ClampIndex(%d, %d) = %d, want %d", tc.idx, tc.count, got, tc.want)
		}
	}
}

func TestPlanSameListMove(t *testing.T) {
	ids := []string{"T1", "T2", "T3", "T4", "T5"}

	plan, ok := PlanSameListMove(ids, "T2", 3)
	if !ok {
		t.Fatal("task should be found")
	}
	want := []string{"T1", "T3", "T4", "T2", "T5"}
	if !reflect.DeepEqual(plan.Dest, want) {
		t.Fatalf("ordering = %v, want %v", plan.Dest, want)
	}
	if !plan.SameList {
		t.Fatal("plan should be marked same-list")
	}
}

func TestPlanSameListMoveToOwnIndexIsNoOp(t *testing.T) {
	ids := []string{"T1", "T2", "T3"}
	plan, ok := PlanSameListMove(ids, "T2", 1)
	if !ok {
		t.Fatal("task should be found")
	}
	if !reflect.DeepEqual(plan.Dest, ids) {
		t.Fatalf("ordering = %v, want unchanged %v", plan.Dest, ids)
	}
}

func TestPlanSameListMoveClampsOversizedIndex(t *testing.T) {
	ids := []string{"T1", "T2", "T3"}
	plan, _ := PlanSameListMove(ids, "T1", 100)
	want := []string{"T2", "T3", "T1"}
	if !reflect.DeepEqual(plan.Dest, want) {
		t.Fatalf("ordering = %v, want %v", plan.Dest, want)
	}
}

func TestPlanCrossListMove(t *testing.T) {
	src := []string{"T1", "T2", "T3"}
	dst := []string{"U1", "U2"}

	plan, ok := PlanCrossListMove(src, dst, "T2", 1)
	if !ok {
		t.Fatal("task should be found")
	}
	if want := []string{"T1", "T3"}; !reflect.DeepEqual(plan.Source, want) {
		t.Fatalf("source = %v, want %v", plan.Source, want)
	}
	if want := []string{"U1", "T2", "U2"}; !reflect.DeepEqual(plan.Dest, want) {
		t.Fatalf("dest = %v, want %v", plan.Dest, want)
	}
	if plan.SameList {
		t.Fatal("plan must not be marked same-list")
	}
}

func TestPlanCrossListMoveIntoEmptyList(t *testing.T) {
	plan, ok := PlanCrossListMove([]string{"T1"}, nil, "T1", 5)
	if !ok {
		t.Fatal("task should be found")
	}
	if len(plan.Source) != 0 {
		t.Fatalf("source = %v, want empty", plan.Source)
	}
	if want := []string{"T1"}; !reflect.DeepEqual(plan.Dest, want) {
		t.Fatalf("dest = %v, want %v", plan.Dest, want)
	}
}

func TestPlanMoveMissingTask(t *testing.T) {
	if _, ok := PlanSameListMove([]string{"T1"}, "ghost", 0); ok {
		t.Fatal("missing task must not plan")
	}
	if _, ok := PlanCrossListMove([]string{"T1"}, nil, "ghost", 0); ok {
		t.Fatal("missing task must not plan")
	}
}

func TestPlanRemovalKeepsDenseRemainder(t *testing.T) {
	rest, found := PlanRemoval([]string{"T1", "T2", "T3"}, "T2")
	if !found {
		t.Fatal("task should be found")
	}
	if want := []string{"T1", "T3"}; !reflect.DeepEqual(rest, want) {
		t.Fatalf("remainder = %v, want %v", rest, want)
	}
	if _, found := PlanRemoval(rest, "T2"); found {
		t.Fatal("second removal must report missing")
	}
}
