package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixtrack/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleStaff // Default role
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(name, username, password_hash, role)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		u.Name, u.Username, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, username, password_hash, role, created_at, updated_at
         FROM users WHERE id=$1`, id)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// GetByUsername looks a user up case-insensitively
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, username, password_hash, role, created_at, updated_at
         FROM users WHERE LOWER(username)=LOWER($1)`, username)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// List returns all users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, username, role, created_at, updated_at
         FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.Role,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// firstUserLock is the advisory lock key held while the first account is created
const firstUserLock = 7310001

// CreateFirst inserts u only while the users table is empty and returns
// ErrNotEmpty otherwise. Concurrent callers serialise on an advisory lock,
// so at most one of them succeeds.
func (r *UserRepository) CreateFirst(ctx context.Context, u *models.User) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, firstUserLock); err != nil {
		return err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrNotEmpty
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users(name, username, password_hash, role)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		u.Name, u.Username, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return tx.Commit(ctx)
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
