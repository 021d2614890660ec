package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         Role   `json:"role"`
	ManagerID    string `json:"managerId,omitempty"`
	PasswordHash string `json:"-"`
	Active       bool   `json:"active"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.DB.QueryRow(ctx, `
    SELECT id, email, first_name, last_name, role, COALESCE(manager_id::text, ''), password_hash, active
    FROM users
    WHERE lower(email) = lower($1)
  `, email))
}

func (s *Store) FindByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.DB.QueryRow(ctx, `
    SELECT id, email, first_name, last_name, role, COALESCE(manager_id::text, ''), password_hash, active
    FROM users
    WHERE id = $1
  `, userID))
}

func (s *Store) ListAll(ctx context.Context) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email, first_name, last_name, role, COALESCE(manager_id::text, ''), password_hash, active
    FROM users
    ORDER BY last_name, first_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collect(rows)
}

func (s *Store) ListReports(ctx context.Context, managerID string) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email, first_name, last_name, role, COALESCE(manager_id::text, ''), password_hash, active
    FROM users
    WHERE manager_id = $1 AND id <> $1
    ORDER BY last_name, first_name
  `, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collect(rows)
}

func (s *Store) scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.ManagerID, &u.PasswordHash, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		// Fail closed: a user row with an unrecognized role never authenticates.
		return User{}, ErrUserNotFound
	}
	u.Role = parsed
	return u, nil
}

func (s *Store) collect(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.ManagerID, &u.PasswordHash, &u.Active); err != nil {
			return nil, err
		}
		parsed, err := ParseRole(role)
		if err != nil {
			continue
		}
		u.Role = parsed
		users = append(users, u)
	}
	return users, rows.Err()
}
