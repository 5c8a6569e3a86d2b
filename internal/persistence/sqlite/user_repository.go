package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	db  *DB
	now func() time.Time
}

// NewUserRepository creates a SQLite user repository.
func NewUserRepository(db *DB, now func() time.Time) *UserRepository {
	if now == nil {
		now = time.Now
	}
	return &UserRepository{db: db, now: now}
}

const userColumns = `id, name, email, pin, phone, department, designation, role, status, password_hash, created_at, updated_at`

// CreateUser inserts a new user profile. Email and PIN uniqueness are
// enforced by the schema and surface as ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PIN,
		user.Phone,
		nullString(user.Department),
		nullString(user.Designation),
		user.Role,
		user.Status,
		user.PasswordHash,
		user.CreatedAt.Format(timestampLayout),
		user.UpdatedAt.Format(timestampLayout),
	)
	return mapError(err)
}

// UpdateUser rewrites an existing profile.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	result, err := r.db.db.ExecContext(ctx, `UPDATE users
		SET name = ?, email = ?, pin = ?, phone = ?, department = ?, designation = ?, role = ?, status = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		user.Name,
		user.Email,
		user.PIN,
		user.Phone,
		nullString(user.Department),
		nullString(user.Designation),
		user.Role,
		user.Status,
		user.PasswordHash,
		r.now().UTC().Format(timestampLayout),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// ListUsers enumerates user profiles ordered by name.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user profile.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user        persistence.User
		department  sql.NullString
		designation sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PIN,
		&user.Phone,
		&department,
		&designation,
		&user.Role,
		&user.Status,
		&user.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, err
	}

	user.Department = stringPtr(department)
	user.Designation = stringPtr(designation)
	if user.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
