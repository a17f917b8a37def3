package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/admission-seat-allocation/internal/engine"
)

// AssignmentRepo persists the current allocation snapshot. The engine is the
// source of truth; this table is a durable projection rewritten after every
// mutating operation so reports and restarts can read the latest state.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo constructs an AssignmentRepo with the given DB handle.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// ReplaceAll atomically swaps the stored snapshot for the given one.
// Unassigned candidates are simply absent from the table. Assigned rows are
// written with a single bulk insert.
func (r *AssignmentRepo) ReplaceAll(ctx context.Context, snapshot []engine.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}

	query := `INSERT INTO assignments (candidate_id, branch, seat_type) VALUES `
	args := make([]interface{}, 0, len(snapshot)*3)
	n := 0
	for _, a := range snapshot {
		if a.Branch == nil {
			continue
		}
		if n > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, a.CandidateID, *a.Branch, *a.SeatType)
		n++
	}
	if n > 0 {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	committed = true
	return nil
}
