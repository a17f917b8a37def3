package model

// Candidate describes one applicant in the admission pool together with the
// mutable assignment state the allocation engine maintains for them.
//
// Fields:
//
//	ID           – stable unique identifier, never reused.
//	Rank         – exam rank; lower rank means higher priority.
//	Category     – GEN or one of the reserved categories (OBC/SC/ST/EWS).
//	Preferences  – branch codes ordered most-wanted first; immutable.
//	TotalMarks   – aggregate score, first tie-break (higher wins).
//	SubjectMarks – subject score, second tie-break (higher wins).
//	DOB          – ISO date (YYYY-MM-DD); earlier date wins the third tie-break.
//
// AssignedBranch, AssignedSeatType and AssignedPrefIndex are either all set
// or all cleared. Withdrawn candidates keep their record but never re-enter
// seat contention.
type Candidate struct {
	ID           string
	Rank         int
	Category     string
	Preferences  []string
	TotalMarks   int
	SubjectMarks int
	DOB          string

	AssignedBranch    string
	AssignedSeatType  string
	AssignedPrefIndex int
	Withdrawn         bool
}

// Assigned reports whether the candidate currently holds a seat.
func (c *Candidate) Assigned() bool { return c.AssignedBranch != "" }

// ClearAssignment resets the assignment triple to the unassigned state.
func (c *Candidate) ClearAssignment() {
	c.AssignedBranch = ""
	c.AssignedSeatType = ""
	c.AssignedPrefIndex = -1
}

// PrefIndex returns the position of branch in the preference list, or -1
// when the branch is not listed.
func (c *Candidate) PrefIndex(branch string) int {
	for i, b := range c.Preferences {
		if b == branch {
			return i
		}
	}
	return -1
}

// WantsBranch reports whether the candidate would accept a seat at branch:
// the branch must be on their preference list and, when they already hold a
// seat, rank strictly above the branch they currently have. Withdrawn
// candidates want nothing.
func (c *Candidate) WantsBranch(branch string) bool {
	if c.Withdrawn {
		return false
	}
	idx := c.PrefIndex(branch)
	if idx < 0 {
		return false
	}
	if !c.Assigned() {
		return true
	}
	return idx < c.AssignedPrefIndex
}

// EligibleFor reports whether the candidate may occupy a seat of the given
// type. Open seats accept everyone; a reserved seat accepts only candidates
// of the matching category.
func (c *Candidate) EligibleFor(seatType string) bool {
	if seatType == SeatTypeOpen {
		return true
	}
	return c.Category == seatType
}

// Before reports whether c outranks o under the priority key
// (rank, -totalMarks, -subjectMarks, dob, id). ISO dates compare
// lexicographically, and the trailing ID comparison makes the order strict:
// no two candidates ever tie.
func (c *Candidate) Before(o *Candidate) bool {
	if c.Rank != o.Rank {
		return c.Rank < o.Rank
	}
	if c.TotalMarks != o.TotalMarks {
		return c.TotalMarks > o.TotalMarks
	}
	if c.SubjectMarks != o.SubjectMarks {
		return c.SubjectMarks > o.SubjectMarks
	}
	if c.DOB != o.DOB {
		return c.DOB < o.DOB
	}
	return c.ID < o.ID
}
