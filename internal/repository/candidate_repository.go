package repository // repository defines data access for the admission payload

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"

	"github.com/iliyamo/admission-seat-allocation/internal/model"
)

// CandidateRepo loads the registered candidate list the engine is built
// from. Candidates and their ranked preferences live in two tables;
// preferences are ordered by their stored position so the engine sees them
// most-wanted first.
type CandidateRepo struct {
	db *sql.DB
}

// NewCandidateRepo constructs a CandidateRepo with the given DB handle.
func NewCandidateRepo(db *sql.DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// LoadAll returns every registered candidate with preferences attached,
// ordered by candidate id for reproducible engine construction.
func (r *CandidateRepo) LoadAll(ctx context.Context) ([]model.Candidate, error) {
	const q = `SELECT id, exam_rank, category, total_marks, subject_marks, dob
	           FROM candidates
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var result []model.Candidate
	index := make(map[string]int)
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Rank, &c.Category, &c.TotalMarks, &c.SubjectMarks, &c.DOB); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if !model.ValidCategory(c.Category) {
			return nil, fmt.Errorf("candidate %s has unknown category %q", c.ID, c.Category)
		}
		index[c.ID] = len(result)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const pq = `SELECT candidate_id, branch
	            FROM candidate_preferences
	            ORDER BY candidate_id, position`
	prefRows, err := r.db.QueryContext(ctx, pq)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var id, branch string
		if err := prefRows.Scan(&id, &branch); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("preference references unknown candidate %s", id)
		}
		result[i].Preferences = append(result[i].Preferences, branch)
	}
	if err := prefRows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
