package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/admission-seat-allocation/internal/model"
)

// Move records one candidate being placed into a seat. FromBranch and
// FromSeatType are empty when the candidate was unassigned before the move.
// Mutating operations return the full list of moves they caused so callers
// can publish change events or persist the new state.
type Move struct {
	CandidateID  string `json:"candidate_id"`
	FromBranch   string `json:"from_branch,omitempty"`
	FromSeatType string `json:"from_seat_type,omitempty"`
	ToBranch     string `json:"to_branch"`
	ToSeatType   string `json:"to_seat_type"`
	PrefIndex    int    `json:"pref_index"`
}

// Assignment is the read-only projection of one candidate's current seat.
// Branch and SeatType are nil for unassigned candidates.
type Assignment struct {
	CandidateID string  `json:"candidate_id"`
	Branch      *string `json:"branch"`
	SeatType    *string `json:"seat_type"`
}

// Engine owns the seat pool and the candidate table and is the only
// component that mutates them. Every public operation runs to completion
// under the instance mutex: cascading reallocation reads and writes global
// state repeatedly mid-operation and must never interleave with another
// mutating call. Snapshots take the read side of the same lock.
type Engine struct {
	mu         sync.RWMutex
	seats      map[string]map[string]int // branch -> seat type -> remaining
	candidates []*model.Candidate
	byID       map[string]*model.Candidate
	allocated  bool
}

// New builds an engine from the initial capacity table and candidate list.
// Both inputs are copied; the engine never shares state with its caller.
func New(capacities map[string]map[string]int, candidates []model.Candidate) *Engine {
	e := &Engine{
		seats: make(map[string]map[string]int, len(capacities)),
		byID:  make(map[string]*model.Candidate, len(candidates)),
	}
	for branch, byType := range capacities {
		row := make(map[string]int, len(byType))
		for seatType, n := range byType {
			row[seatType] = n
		}
		e.seats[branch] = row
	}
	for i := range candidates {
		c := candidates[i] // copy
		c.ClearAssignment()
		e.candidates = append(e.candidates, &c)
		e.byID[c.ID] = &c
	}
	return e
}

// InitialAllocate performs the one-pass batch allocation: candidates are
// processed in priority order and each takes the first preferred branch with
// an open seat, falling back to their own category's reserved seat at the
// same branch. Open seats are tried before reserved ones even for reserved
// category candidates (merit first, reservation as fallback). Calling it a
// second time returns ErrAlreadyAllocated without touching state.
func (e *Engine) InitialAllocate() ([]Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.allocated {
		return nil, ErrAlreadyAllocated
	}
	e.allocated = true

	sort.Slice(e.candidates, func(i, j int) bool {
		return e.candidates[i].Before(e.candidates[j])
	})

	var moves []Move
	for _, c := range e.candidates {
		for _, branch := range c.Preferences {
			if e.seats[branch][model.SeatTypeOpen] > 0 {
				e.place(c, branch, model.SeatTypeOpen)
				moves = append(moves, moveInto(c))
				break
			}
			if model.ReservedCategories[c.Category] && e.seats[branch][c.Category] > 0 {
				e.place(c, branch, c.Category)
				moves = append(moves, moveInto(c))
				break
			}
		}
	}
	return moves, nil
}

// Withdraw removes the candidate from active consideration permanently.
// If they held a seat it is freed and the upgrade-and-fill cascade runs
// seeded with the freed (branch, seat type) pair. Withdrawing an already
// withdrawn or unassigned candidate is a no-op; an unknown id returns
// ErrCandidateNotFound.
func (e *Engine) Withdraw(candidateID string) ([]Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.byID[candidateID]
	if !ok {
		return nil, ErrCandidateNotFound
	}
	c.Withdrawn = true
	if !c.Assigned() {
		return nil, nil
	}
	branch, seatType := c.AssignedBranch, c.AssignedSeatType
	e.seats[branch][seatType]++
	c.ClearAssignment()
	return e.upgradeAndFill(vacancy{branch, seatType}), nil
}

// AddCapacity grows the seat pool for (branch, seatType) by delta, creating
// the entry when absent, then runs the cascade so the new seats are offered
// to the best wanting candidates. Delta must be positive and seatType must
// name the open pool or a reserved category; invalid input is rejected
// before any state change.
func (e *Engine) AddCapacity(branch, seatType string, delta int) ([]Move, error) {
	if delta <= 0 {
		return nil, ErrInvalidCapacityDelta
	}
	if !model.ValidSeatType(seatType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeatType, seatType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seats[branch] == nil {
		e.seats[branch] = make(map[string]int)
	}
	e.seats[branch][seatType] += delta
	return e.upgradeAndFill(vacancy{branch, seatType}), nil
}

// Snapshot returns every candidate's current assignment ordered by the
// priority key. The order is a strict total order, so repeated snapshots of
// the same state are byte-identical.
func (e *Engine) Snapshot() []Assignment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sorted := make([]*model.Candidate, len(e.candidates))
	copy(sorted, e.candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := make([]Assignment, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, assignmentOf(c))
	}
	return out
}

// Candidate returns the current assignment of one candidate.
func (e *Engine) Candidate(candidateID string) (Assignment, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.byID[candidateID]
	if !ok {
		return Assignment{}, ErrCandidateNotFound
	}
	return assignmentOf(c), nil
}

// Remaining returns a copy of the remaining-capacity table.
func (e *Engine) Remaining() map[string]map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]map[string]int, len(e.seats))
	for branch, byType := range e.seats {
		row := make(map[string]int, len(byType))
		for seatType, n := range byType {
			row[seatType] = n
		}
		out[branch] = row
	}
	return out
}

// vacancy identifies a (branch, seat type) pair with freed capacity queued
// for refill.
type vacancy struct {
	branch   string
	seatType string
}

// upgradeAndFill drains a FIFO queue of vacancies. For each pair it keeps
// moving the best eligible candidate who wants that branch into a seat until
// either capacity runs out or nobody wants it; a candidate moved out of a
// previous seat frees that seat, which is pushed back onto the queue. Every
// move strictly improves the moved candidate's preference index, so the
// cascade reaches a fixed point in at most candidates x preferences moves.
// A vacancy nobody wants simply stays empty. Callers must hold the write
// lock.
func (e *Engine) upgradeAndFill(seeds ...vacancy) []Move {
	var moves []Move
	queue := seeds
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for e.seats[v.branch][v.seatType] > 0 {
			c := e.bestCandidateFor(v.branch, v.seatType)
			if c == nil {
				break
			}
			prevBranch, prevSeatType := c.AssignedBranch, c.AssignedSeatType
			m := Move{
				CandidateID:  c.ID,
				FromBranch:   prevBranch,
				FromSeatType: prevSeatType,
			}
			e.place(c, v.branch, v.seatType)
			m.ToBranch, m.ToSeatType, m.PrefIndex = v.branch, v.seatType, c.AssignedPrefIndex
			moves = append(moves, m)

			if prevBranch != "" {
				e.seats[prevBranch][prevSeatType]++
				queue = append(queue, vacancy{prevBranch, prevSeatType})
			}
		}
	}
	return moves
}

// bestCandidateFor scans all candidates for the lowest priority key among
// those eligible for the seat type and wanting the branch. Returns nil when
// nobody qualifies. Linear scan per fill; correctness only, see the package
// notes on the per-pair priority queue alternative.
func (e *Engine) bestCandidateFor(branch, seatType string) *model.Candidate {
	var best *model.Candidate
	for _, c := range e.candidates {
		if !c.EligibleFor(seatType) || !c.WantsBranch(branch) {
			continue
		}
		if best == nil || c.Before(best) {
			best = c
		}
	}
	return best
}

// place seats the candidate, consuming one unit of capacity. Allocating from
// an empty pool is unreachable through the public API; hitting it means the
// engine's own bookkeeping is broken, so it panics rather than let a count
// go negative.
func (e *Engine) place(c *model.Candidate, branch, seatType string) {
	if e.seats[branch][seatType] <= 0 {
		panic(fmt.Sprintf("engine: no remaining capacity at %s/%s for candidate %s", branch, seatType, c.ID))
	}
	e.seats[branch][seatType]--
	c.AssignedBranch = branch
	c.AssignedSeatType = seatType
	c.AssignedPrefIndex = c.PrefIndex(branch)
}

func moveInto(c *model.Candidate) Move {
	return Move{
		CandidateID: c.ID,
		ToBranch:    c.AssignedBranch,
		ToSeatType:  c.AssignedSeatType,
		PrefIndex:   c.AssignedPrefIndex,
	}
}

func assignmentOf(c *model.Candidate) Assignment {
	a := Assignment{CandidateID: c.ID}
	if c.Assigned() {
		branch, seatType := c.AssignedBranch, c.AssignedSeatType
		a.Branch = &branch
		a.SeatType = &seatType
	}
	return a
}
