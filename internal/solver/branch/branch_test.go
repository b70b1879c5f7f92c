package branch

import (
	"context"
	"testing"
	"time"

	"ufolepvolley/scheduler/internal/solver"
)

func TestSolveRespectsAtMostOneConstraint(t *testing.T) {
	s := New()
	a := s.NewBoolVar("a")
	b := s.NewBoolVar("b")
	c := s.NewBoolVar("c")
	s.AddLinearLE([]solver.Term{solver.Term(a), solver.Term(b), solver.Term(c)}, 1)
	s.Maximize([]solver.Term{solver.Term(a), solver.Term(b), solver.Term(c)})

	status, err := s.Solve(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal {
		t.Fatalf("status = %v, want optimal", status)
	}

	count := 0
	for _, v := range []solver.Var{a, b, c} {
		if s.Value(v) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 variable true, got %d", count)
	}
}

func TestSolveExactlyOneAssignment(t *testing.T) {
	s := New()
	vars := []solver.Var{s.NewBoolVar("m1"), s.NewBoolVar("m2"), s.NewBoolVar("m3")}
	var terms []solver.Term
	for _, v := range vars {
		terms = append(terms, solver.Term(v))
	}
	s.AddLinearEQ(terms, 1)

	status, err := s.Solve(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal {
		t.Fatalf("status = %v, want optimal", status)
	}
	count := 0
	for _, v := range vars {
		if s.Value(v) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 true, got %d", count)
	}
}

func TestSolveDetectsInfeasibility(t *testing.T) {
	s := New()
	a := s.NewBoolVar("a")
	b := s.NewBoolVar("b")
	// a must be 1 (exactly-one over a single var forces it), b must be 1 too,
	// but a+b<=1 makes that infeasible.
	s.AddLinearEQ([]solver.Term{solver.Term(a)}, 1)
	s.AddLinearEQ([]solver.Term{solver.Term(b)}, 1)
	s.AddLinearLE([]solver.Term{solver.Term(a), solver.Term(b)}, 1)

	status, err := s.Solve(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", status)
	}
}

func TestSolveMaximizesObjective(t *testing.T) {
	s := New()
	vars := make([]solver.Var, 4)
	for i := range vars {
		vars[i] = s.NewBoolVar("v")
	}
	// Pairwise disjoint pairs: at most one of (0,1), at most one of (2,3).
	s.AddLinearLE([]solver.Term{solver.Term(vars[0]), solver.Term(vars[1])}, 1)
	s.AddLinearLE([]solver.Term{solver.Term(vars[2]), solver.Term(vars[3])}, 1)
	var obj []solver.Term
	for _, v := range vars {
		obj = append(obj, solver.Term(v))
	}
	s.Maximize(obj)

	status, err := s.Solve(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal {
		t.Fatalf("status = %v, want optimal", status)
	}
	count := 0
	for _, v := range vars {
		if s.Value(v) {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected objective-maximal assignment of 2 true vars, got %d", count)
	}
}
