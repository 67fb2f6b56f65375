package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taller-ot/productos-api/internal/model"
	"github.com/taller-ot/productos-api/internal/utils"
)

const userCols = "id, username, email, password_hash, first_name, last_name, is_active, created_at, updated_at"

// UserRepo provides access to the users table.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with a bcrypt-hashed password and returns the new id.
// Username and, when provided, email must be free; conflicts surface as
// ErrUsernameExists / ErrEmailExists. The pre-checks keep the error messages
// field-specific; the unique index on username still backs them up (a 1062
// duplicate from a concurrent insert maps to ErrUsernameExists).
func (r *UserRepo) Create(ctx context.Context, username, email, password, firstName, lastName string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrUsernameExists
	}
	if email != "" {
		if err := r.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email).Scan(&exists); err != nil {
			return 0, err
		}
		if exists {
			return 0, ErrEmailExists
		}
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, first_name, last_name) VALUES (?,?,?,?,?)",
		username, email, hash, firstName, lastName)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username. sql.ErrNoRows passes
// through so the login path can treat unknown users and bad passwords
// identically.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username = ? LIMIT 1",
		strings.TrimSpace(username)).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id = ? LIMIT 1", id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
