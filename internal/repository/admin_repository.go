package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/admission-seat-allocation/internal/utils"
)

// Admin represents an operator account allowed to run the allocation and
// apply withdrawal/capacity events over HTTP.
type Admin struct {
	ID           uint64 // primary key
	Email        string // unique login
	PasswordHash string // bcrypt hash
	Role         string // ADMIN
}

// ErrAdminNotFound is returned when an admin lookup yields no rows.
var ErrAdminNotFound = errors.New("admin not found")

// ErrEmailExists is returned when creating an admin with a taken email.
var ErrEmailExists = errors.New("email already exists")

// AdminRepo provides access to admin accounts.
type AdminRepo struct {
	db *sql.DB
}

// NewAdminRepo constructs an AdminRepo with the given DB handle.
func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// GetByEmail retrieves an admin by email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	const q = `SELECT id, email, password_hash, role FROM admins WHERE email = ?`
	var a Admin
	err := r.db.QueryRowContext(ctx, q, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a new admin with a bcrypt-hashed password and returns its
// id. Used by the bootstrap path that seeds the first operator account.
func (r *AdminRepo) Create(ctx context.Context, email, password, role string, bcryptCost int) (uint64, error) {
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO admins (email, password_hash, role) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, email, hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// isDuplicate detects MySQL duplicate-key errors (1062) by error code.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
