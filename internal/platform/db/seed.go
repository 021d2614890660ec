package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/auth"
	"perftrack/internal/platform/config"
)

// Seed guarantees an admin account exists and, when demo data is requested,
// a manager with one report so the app is usable straight after first boot.
// Every step is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if _, err := ensureUser(ctx, pool, userSeed{
		Email:     cfg.SeedAdminEmail,
		Password:  cfg.SeedAdminPassword,
		FirstName: "System",
		LastName:  "Admin",
		Role:      auth.RoleAdmin,
	}); err != nil {
		return err
	}

	if !cfg.SeedDemoData {
		return nil
	}

	managerID, err := ensureUser(ctx, pool, userSeed{
		Email:     "manager@demo.local",
		Password:  "manager-demo",
		FirstName: "Morgan",
		LastName:  "Reyes",
		Role:      auth.RoleManager,
	})
	if err != nil {
		return err
	}

	_, err = ensureUser(ctx, pool, userSeed{
		Email:     "employee@demo.local",
		Password:  "employee-demo",
		FirstName: "Evan",
		LastName:  "Okafor",
		Role:      auth.RoleEmployee,
		ManagerID: managerID,
	})
	return err
}

type userSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      auth.Role
	ManagerID string
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, seed userSeed) (string, error) {
	if strings.TrimSpace(seed.Email) == "" || strings.TrimSpace(seed.Password) == "" {
		return "", nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", seed.Email).Scan(&id)
	if err == nil {
		return id, nil
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return "", err
	}

	var managerID any
	if seed.ManagerID != "" {
		managerID = seed.ManagerID
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, first_name, last_name, role, manager_id)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id
  `, seed.Email, hash, seed.FirstName, seed.LastName, string(seed.Role), managerID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
