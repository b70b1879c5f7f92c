// Package branch implements the in-process backend for solver.Model: a
// deterministic backtracking branch-and-bound search over boolean
// variables with constraint propagation, used in place of a CP-SAT binding
// that does not exist in Go.
//
// It is exact, not heuristic: given enough time it finds the
// objective-maximal feasible assignment, or proves infeasibility. The
// federation's eight-team division ceiling keeps the variable count (one
// per candidate placement) small enough for this to be tractable within
// the configured wall-clock cap; a timeout still yields the best feasible
// assignment found so far, never a wrong one.
package branch

import (
	"context"
	"time"

	"ufolepvolley/scheduler/internal/solver"
)

type linConstraint struct {
	vars  []int
	limit int
	eq    bool
}

// weightedConstraint is a signed counting constraint: sum of coeff_i*x_i
// <= limit. Used only where a rule nets two counts against each other (the
// home/away balance); every other rule is a plain linConstraint with
// coefficient 1.
type weightedConstraint struct {
	vars   []int
	coeffs []int
	limit  int
}

// Solver is a solver.Model backed by backtracking search.
type Solver struct {
	names       []string
	constraints []linConstraint
	weighted    []weightedConstraint
	objVars     map[int]bool

	assigned []int8 // -1 unknown, 0, 1
	best     []int8
	bestObj  int
	found    bool
}

// New returns an empty model.
func New() *Solver {
	return &Solver{objVars: make(map[int]bool)}
}

func (s *Solver) NewBoolVar(name string) solver.Var {
	s.names = append(s.names, name)
	return solver.Var(len(s.names) - 1)
}

func (s *Solver) AddLinearLE(terms []solver.Term, limit int) {
	s.constraints = append(s.constraints, linConstraint{vars: termVars(terms), limit: limit})
}

func (s *Solver) AddLinearEQ(terms []solver.Term, limit int) {
	s.constraints = append(s.constraints, linConstraint{vars: termVars(terms), limit: limit, eq: true})
}

// AddWeightedLE posts Σ coeff_i * x_i <= limit, allowing negative
// coefficients so one count can be netted against another.
func (s *Solver) AddWeightedLE(terms []solver.WeightedTerm, limit int) {
	vars := make([]int, len(terms))
	coeffs := make([]int, len(terms))
	for i, t := range terms {
		vars[i] = int(t.V)
		coeffs[i] = t.Coeff
	}
	s.weighted = append(s.weighted, weightedConstraint{vars: vars, coeffs: coeffs, limit: limit})
}

func (s *Solver) Maximize(terms []solver.Term) {
	for _, t := range terms {
		s.objVars[int(t)] = true
	}
}

func termVars(terms []solver.Term) []int {
	vars := make([]int, len(terms))
	for i, t := range terms {
		vars[i] = int(t)
	}
	return vars
}

// Value returns the assignment of v in the best solution found.
func (s *Solver) Value(v solver.Var) bool {
	if int(v) >= len(s.best) {
		return false
	}
	return s.best[v] == 1
}

// Solve runs the search until an optimal solution is proven, the deadline
// passes, or infeasibility is established.
func (s *Solver) Solve(ctx context.Context, cap time.Duration) (solver.Status, error) {
	n := len(s.names)
	s.assigned = make([]int8, n)
	for i := range s.assigned {
		s.assigned[i] = -1
	}
	s.best = nil
	s.bestObj = -1
	s.found = false

	deadline := time.Now().Add(cap)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	timedOut := false
	s.search(0, &timedOut, deadline)

	switch {
	case !s.found && timedOut:
		return solver.StatusTimeout, nil
	case !s.found:
		return solver.StatusInfeasible, nil
	case timedOut:
		return solver.StatusFeasible, nil
	default:
		return solver.StatusOptimal, nil
	}
}

// search performs chronological backtracking with forward-checking
// propagation, assigning variable `from` and up, in index order. Branching
// tries true (scheduled) before false, which biases the search toward
// maximizing the objective early and keeps output deterministic.
func (s *Solver) search(from int, timedOut *bool, deadline time.Time) {
	if *timedOut {
		return
	}
	if time.Now().After(deadline) {
		*timedOut = true
		return
	}

	idx := s.nextUnassigned(from)
	if idx == -1 {
		s.recordIfBetter()
		return
	}

	bound := s.upperBound(idx)
	if s.found && bound <= s.bestObj {
		return // cannot beat the best solution found so far
	}

	for _, val := range [2]int8{1, 0} {
		s.assigned[idx] = val
		saved := s.snapshotPropagation()
		if s.propagate() {
			s.search(idx+1, timedOut, deadline)
		}
		s.restorePropagation(saved)
		s.assigned[idx] = -1
		if *timedOut {
			return
		}
	}
}

func (s *Solver) nextUnassigned(from int) int {
	for i := from; i < len(s.assigned); i++ {
		if s.assigned[i] == -1 {
			return i
		}
	}
	return -1
}

// upperBound estimates the best possible objective value reachable from
// the current partial assignment: assigned objective vars set to 1, plus
// every still-unassigned objective var (an optimistic, non-tight bound
// sufficient to prune clearly dominated branches).
func (s *Solver) upperBound(from int) int {
	total := 0
	for v := range s.objVars {
		if s.assigned[v] == 1 {
			total++
		} else if s.assigned[v] == -1 {
			total++
		}
	}
	return total
}

func (s *Solver) recordIfBetter() {
	obj := 0
	for v := range s.objVars {
		if s.assigned[v] == 1 {
			obj++
		}
	}
	if !s.found || obj > s.bestObj {
		s.found = true
		s.bestObj = obj
		s.best = make([]int8, len(s.assigned))
		copy(s.best, s.assigned)
	}
}

// snapshotPropagation/restorePropagation let propagate() force additional
// variables without losing the ability to backtrack cleanly.
func (s *Solver) snapshotPropagation() []int8 {
	snap := make([]int8, len(s.assigned))
	copy(snap, s.assigned)
	return snap
}

func (s *Solver) restorePropagation(snap []int8) {
	copy(s.assigned, snap)
}

// propagate applies unit propagation over every constraint until a
// fixpoint or a conflict is found. Returns false on conflict.
func (s *Solver) propagate() bool {
	changed := true
	for changed {
		changed = false
		for _, c := range s.weighted {
			if !s.propagateWeighted(c, &changed) {
				return false
			}
		}
		for _, c := range s.constraints {
			ones, zeros, unassigned := 0, 0, 0
			var lastUnassigned int = -1
			for _, v := range c.vars {
				switch s.assigned[v] {
				case 1:
					ones++
				case 0:
					zeros++
				default:
					unassigned++
					lastUnassigned = v
				}
			}

			if c.eq {
				if ones > c.limit {
					return false
				}
				if ones+unassigned < c.limit {
					return false
				}
				if ones == c.limit && unassigned > 0 {
					for _, v := range c.vars {
						if s.assigned[v] == -1 {
							s.assigned[v] = 0
							changed = true
						}
					}
				} else if ones+unassigned == c.limit && unassigned > 0 {
					for _, v := range c.vars {
						if s.assigned[v] == -1 {
							s.assigned[v] = 1
							changed = true
						}
					}
				} else if unassigned == 1 && ones == c.limit-1 {
					s.assigned[lastUnassigned] = 1
					changed = true
				}
			} else {
				if ones > c.limit {
					return false
				}
				if ones == c.limit && unassigned > 0 {
					for _, v := range c.vars {
						if s.assigned[v] == -1 {
							s.assigned[v] = 0
							changed = true
						}
					}
				}
			}
		}
	}
	return true
}

// propagateWeighted bounds-checks and forces a single signed constraint,
// Σ coeff_i * x_i <= limit. Sets *changed if it forced any variable.
// Returns false on a proven conflict.
func (s *Solver) propagateWeighted(c weightedConstraint, changed *bool) bool {
	sum := 0
	maxPossible := 0
	type pending struct {
		v     int
		coeff int
	}
	var unassigned []pending
	for i, v := range c.vars {
		coeff := c.coeffs[i]
		switch s.assigned[v] {
		case 1:
			sum += coeff
			maxPossible += coeff
		case 0:
			// contributes 0
		default:
			unassigned = append(unassigned, pending{v, coeff})
			if coeff > 0 {
				maxPossible += coeff
			}
		}
	}

	minPossible := sum
	for _, p := range unassigned {
		if p.coeff < 0 {
			minPossible += p.coeff
		}
	}
	if minPossible > c.limit {
		return false
	}
	if maxPossible <= c.limit {
		return true // already satisfied regardless of remaining assignment
	}

	for _, p := range unassigned {
		high := p.coeff
		if high < 0 {
			high = 0
		}
		low := p.coeff
		if low > 0 {
			low = 0
		}
		// otherMin: the best-case (lowest) contribution from every OTHER
		// unassigned variable, excluding p, plus the already-assigned sum.
		otherMin := minPossible - low
		if otherMin+high > c.limit {
			// p taking its high value can't be rescued by any assignment of
			// the rest, so it must take its low value.
			forced := int8(0)
			if p.coeff < 0 {
				forced = 1
			}
			s.assigned[p.v] = forced
			*changed = true
		}
	}
	return true
}
