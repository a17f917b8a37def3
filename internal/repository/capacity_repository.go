package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/admission-seat-allocation/internal/model"
)

// CapacityRepo loads the initial per-branch, per-seat-type capacity table.
type CapacityRepo struct {
	db *sql.DB
}

// NewCapacityRepo constructs a CapacityRepo with the given DB handle.
func NewCapacityRepo(db *sql.DB) *CapacityRepo {
	return &CapacityRepo{db: db}
}

// LoadAll returns the capacity table as branch -> seat type -> count.
// Counts must be non-negative and seat types must belong to the closed set;
// a bad row aborts the load so the engine never starts from invalid state.
func (r *CapacityRepo) LoadAll(ctx context.Context) (map[string]map[string]int, error) {
	const q = `SELECT branch, seat_type, capacity FROM branch_capacities`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load capacities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var branch, seatType string
		var capacity int
		if err := rows.Scan(&branch, &seatType, &capacity); err != nil {
			return nil, fmt.Errorf("scan capacity: %w", err)
		}
		if !model.ValidSeatType(seatType) {
			return nil, fmt.Errorf("branch %s has unknown seat type %q", branch, seatType)
		}
		if capacity < 0 {
			return nil, fmt.Errorf("branch %s/%s has negative capacity %d", branch, seatType, capacity)
		}
		if out[branch] == nil {
			out[branch] = make(map[string]int)
		}
		out[branch][seatType] = capacity
	}
	return out, rows.Err()
}
