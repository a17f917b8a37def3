package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/admission-seat-allocation/internal/model"
)

// referenceCapacities mirrors the canonical three-branch configuration used
// throughout the admission scenario tests.
func referenceCapacities() map[string]map[string]int {
	return map[string]map[string]int{
		"CSE": {"OPEN": 2, "OBC": 1, "SC": 1, "ST": 0, "EWS": 0},
		"ECE": {"OPEN": 2, "OBC": 1, "SC": 1, "ST": 0, "EWS": 0},
		"ME":  {"OPEN": 1, "OBC": 1, "SC": 0, "ST": 0, "EWS": 0},
	}
}

func referenceCandidates() []model.Candidate {
	return []model.Candidate{
		{ID: "S1", Rank: 1, Category: "GEN", Preferences: []string{"CSE", "ECE", "ME"}, TotalMarks: 480, SubjectMarks: 95, DOB: "2004-02-01"},
		{ID: "S2", Rank: 2, Category: "OBC", Preferences: []string{"CSE", "ECE", "ME"}, TotalMarks: 475, SubjectMarks: 94, DOB: "2004-05-10"},
		{ID: "S3", Rank: 3, Category: "SC", Preferences: []string{"CSE", "ME"}, TotalMarks: 470, SubjectMarks: 90, DOB: "2004-03-20"},
		{ID: "S4", Rank: 4, Category: "GEN", Preferences: []string{"CSE", "ECE"}, TotalMarks: 468, SubjectMarks: 91, DOB: "2004-01-05"},
		{ID: "S5", Rank: 5, Category: "OBC", Preferences: []string{"ECE", "CSE", "ME"}, TotalMarks: 465, SubjectMarks: 89, DOB: "2004-07-11"},
		{ID: "S6", Rank: 6, Category: "GEN", Preferences: []string{"ME", "CSE"}, TotalMarks: 460, SubjectMarks: 88, DOB: "2004-09-30"},
		{ID: "S7", Rank: 7, Category: "SC", Preferences: []string{"CSE", "ECE"}, TotalMarks: 455, SubjectMarks: 85, DOB: "2004-04-01"},
		{ID: "S8", Rank: 8, Category: "GEN", Preferences: []string{"ECE"}, TotalMarks: 450, SubjectMarks: 84, DOB: "2004-12-12"},
	}
}

func newReferenceEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(referenceCapacities(), referenceCandidates())
	_, err := e.InitialAllocate()
	require.NoError(t, err)
	return e
}

// seatsByID flattens a snapshot into candidate -> "branch/seatType" with ""
// for unassigned candidates.
func seatsByID(snap []Assignment) map[string]string {
	out := make(map[string]string, len(snap))
	for _, a := range snap {
		if a.Branch == nil {
			out[a.CandidateID] = ""
			continue
		}
		out[a.CandidateID] = *a.Branch + "/" + *a.SeatType
	}
	return out
}

func TestInitialAllocateReferenceScenario(t *testing.T) {
	e := newReferenceEngine(t)

	got := seatsByID(e.Snapshot())
	want := map[string]string{
		"S1": "CSE/OPEN", // rank 1, first preference, merit seat
		"S2": "CSE/OPEN", // OBC candidate still takes the open seat first
		"S3": "CSE/SC",   // open pool exhausted, falls back to own category
		"S4": "ECE/OPEN",
		"S5": "ECE/OPEN",
		"S6": "ME/OPEN",
		"S7": "ECE/SC",
		"S8": "", // only preference ECE is full and GEN has no reserved fallback
	}
	assert.Equal(t, want, got)
}

func TestInitialAllocateTwiceFails(t *testing.T) {
	e := newReferenceEngine(t)
	before := e.Snapshot()

	_, err := e.InitialAllocate()
	assert.ErrorIs(t, err, ErrAlreadyAllocated)
	assert.Equal(t, before, e.Snapshot(), "failed second run must not touch state")
}

func TestInitialAllocateDeterministic(t *testing.T) {
	a := newReferenceEngine(t).Snapshot()
	b := newReferenceEngine(t).Snapshot()
	assert.Equal(t, a, b)
}

func TestWithdrawCascades(t *testing.T) {
	e := newReferenceEngine(t)

	moves, err := e.Withdraw("S1")
	require.NoError(t, err)

	// S4 is the best eligible candidate wanting CSE and upgrades from ECE;
	// the freed ECE open seat is then taken by the previously unassigned S8.
	require.Len(t, moves, 2)
	assert.Equal(t, Move{CandidateID: "S4", FromBranch: "ECE", FromSeatType: "OPEN", ToBranch: "CSE", ToSeatType: "OPEN", PrefIndex: 0}, moves[0])
	assert.Equal(t, Move{CandidateID: "S8", ToBranch: "ECE", ToSeatType: "OPEN", PrefIndex: 0}, moves[1])

	got := seatsByID(e.Snapshot())
	assert.Equal(t, "", got["S1"])
	assert.Equal(t, "CSE/OPEN", got["S4"])
	assert.Equal(t, "ECE/OPEN", got["S8"])
}

func TestWithdrawIdempotent(t *testing.T) {
	e := newReferenceEngine(t)

	_, err := e.Withdraw("S1")
	require.NoError(t, err)
	after := e.Snapshot()

	moves, err := e.Withdraw("S1")
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Equal(t, after, e.Snapshot())
}

func TestWithdrawUnknownCandidate(t *testing.T) {
	e := newReferenceEngine(t)
	before := e.Snapshot()

	_, err := e.Withdraw("nobody")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
	assert.Equal(t, before, e.Snapshot())
}

func TestWithdrawnCandidateNeverReenters(t *testing.T) {
	e := newReferenceEngine(t)

	_, err := e.Withdraw("S8") // unassigned but still a seeker
	require.NoError(t, err)

	// A new ECE open seat must skip the withdrawn S8 entirely.
	moves, err := e.AddCapacity("ECE", "OPEN", 1)
	require.NoError(t, err)
	for _, m := range moves {
		assert.NotEqual(t, "S8", m.CandidateID)
	}
	assert.Equal(t, "", seatsByID(e.Snapshot())["S8"])
}

func TestAddCapacityUpgrades(t *testing.T) {
	e := newReferenceEngine(t)
	_, err := e.Withdraw("S1")
	require.NoError(t, err)

	moves, err := e.AddCapacity("CSE", "OPEN", 1)
	require.NoError(t, err)

	// S7 is the only remaining candidate wanting CSE; the ECE reserved seat
	// they leave behind has no eligible taker and stays open.
	require.Len(t, moves, 1)
	assert.Equal(t, Move{CandidateID: "S7", FromBranch: "ECE", FromSeatType: "SC", ToBranch: "CSE", ToSeatType: "OPEN", PrefIndex: 0}, moves[0])
	assert.Equal(t, "CSE/OPEN", seatsByID(e.Snapshot())["S7"])
	assert.Equal(t, 1, e.Remaining()["ECE"]["SC"])
}

func TestAddCapacityRejectsInvalidDelta(t *testing.T) {
	e := newReferenceEngine(t)
	before := e.Snapshot()

	for _, delta := range []int{0, -1, -100} {
		_, err := e.AddCapacity("CSE", "OPEN", delta)
		assert.ErrorIs(t, err, ErrInvalidCapacityDelta)
	}
	_, err := e.AddCapacity("CSE", "VIP", 1)
	assert.ErrorIs(t, err, ErrUnknownSeatType)
	assert.Equal(t, before, e.Snapshot())
}

func TestAddCapacityCreatesBranchEntry(t *testing.T) {
	e := newReferenceEngine(t)

	// A brand new branch nobody listed: the seat must simply stay open.
	moves, err := e.AddCapacity("CIVIL", "OPEN", 2)
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Equal(t, 2, e.Remaining()["CIVIL"]["OPEN"])
}

func TestVacancyWithoutTakersStaysOpen(t *testing.T) {
	e := newReferenceEngine(t)

	// No ST candidate exists, so an ST seat anywhere is a legitimate
	// terminal vacancy, not an error.
	moves, err := e.AddCapacity("CSE", "ST", 1)
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Equal(t, 1, e.Remaining()["CSE"]["ST"])
}

// TestCapacityConservation checks that for every (branch, seat type) pair,
// remaining capacity plus occupied seats equals everything ever configured,
// at every step of a withdrawal/capacity event sequence.
func TestCapacityConservation(t *testing.T) {
	e := newReferenceEngine(t)

	totals := referenceCapacities()
	check := func() {
		t.Helper()
		held := map[string]map[string]int{}
		for _, seat := range seatsByID(e.Snapshot()) {
			if seat == "" {
				continue
			}
			branch, seatType, _ := strings.Cut(seat, "/")
			if held[branch] == nil {
				held[branch] = map[string]int{}
			}
			held[branch][seatType]++
		}
		remaining := e.Remaining()
		for branch, byType := range totals {
			for seatType, total := range byType {
				assert.Equal(t, total, remaining[branch][seatType]+held[branch][seatType],
					"conservation broken at %s/%s", branch, seatType)
			}
		}
	}

	check()
	_, err := e.Withdraw("S1")
	require.NoError(t, err)
	check()
	_, err = e.AddCapacity("CSE", "OPEN", 1)
	require.NoError(t, err)
	totals["CSE"]["OPEN"]++
	check()
	_, err = e.Withdraw("S5")
	require.NoError(t, err)
	check()
	_, err = e.AddCapacity("ME", "OBC", 2)
	require.NoError(t, err)
	totals["ME"]["OBC"] += 2
	check()
}

// TestMonotonicImprovement asserts that across any event sequence a
// candidate's assigned preference index never gets worse, and that every
// assignment satisfies the eligibility rule.
func TestMonotonicImprovement(t *testing.T) {
	e := newReferenceEngine(t)

	prefs := map[string][]string{}
	category := map[string]string{}
	for _, c := range referenceCandidates() {
		prefs[c.ID] = c.Preferences
		category[c.ID] = c.Category
	}
	prefIndex := func(id, branch string) int {
		for i, b := range prefs[id] {
			if b == branch {
				return i
			}
		}
		return -1
	}

	last := map[string]int{}
	observe := func() {
		t.Helper()
		for id, seat := range seatsByID(e.Snapshot()) {
			if seat == "" {
				continue
			}
			branch, seatType, _ := strings.Cut(seat, "/")
			if seatType != model.SeatTypeOpen {
				assert.Equal(t, category[id], seatType, "candidate %s holds a reserved seat of another category", id)
			}
			idx := prefIndex(id, branch)
			require.GreaterOrEqual(t, idx, 0, "candidate %s assigned outside preferences", id)
			if prev, ok := last[id]; ok {
				assert.LessOrEqual(t, idx, prev, "candidate %s moved to a worse preference", id)
			}
			last[id] = idx
		}
	}

	observe()
	_, err := e.Withdraw("S1")
	require.NoError(t, err)
	observe()
	_, err = e.AddCapacity("CSE", "OPEN", 1)
	require.NoError(t, err)
	observe()
	_, err = e.Withdraw("S2")
	require.NoError(t, err)
	observe()
	_, err = e.AddCapacity("ECE", "OPEN", 1)
	require.NoError(t, err)
	observe()
}

// TestFixedPoint verifies the no-blocking invariant: after a mutating call
// returns, no active candidate both wants and is eligible for a pair that
// still has remaining capacity.
func TestFixedPoint(t *testing.T) {
	e := newReferenceEngine(t)
	_, err := e.Withdraw("S1")
	require.NoError(t, err)
	_, err = e.AddCapacity("CSE", "OPEN", 1)
	require.NoError(t, err)

	assigned := seatsByID(e.Snapshot())
	remaining := e.Remaining()
	for _, c := range referenceCandidates() {
		if c.ID == "S1" {
			continue // withdrawn
		}
		heldIdx := len(c.Preferences) // unassigned wants everything listed
		if seat := assigned[c.ID]; seat != "" {
			branch, _, _ := strings.Cut(seat, "/")
			for j, b := range c.Preferences {
				if b == branch {
					heldIdx = j
				}
			}
		}
		for idx, branch := range c.Preferences {
			if idx >= heldIdx {
				break
			}
			assert.Zero(t, remaining[branch][model.SeatTypeOpen],
				"candidate %s blocked from open seat at %s", c.ID, branch)
			if model.ReservedCategories[c.Category] {
				assert.Zero(t, remaining[branch][c.Category],
					"candidate %s blocked from reserved seat at %s", c.ID, branch)
			}
		}
	}
}
