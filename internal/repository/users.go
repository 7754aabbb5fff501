package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/models"
)

type userRepository struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewUserRepository returns the MySQL-backed user repository.
func NewUserRepository(database *db.DB, m *metrics.AppMetrics) UserRepository {
	return &userRepository{db: database, metrics: m}
}

// Upsert inserts or refreshes an account keyed by lowercased email. Role and
// password are only written on insert; profile fields update in place.
func (r *userRepository) Upsert(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	start := time.Now()
	query := `INSERT INTO users (id, email, name, role, town, password_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), town = VALUES(town)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, u.Role, u.Town, u.PasswordHash)
	r.metrics.RecordDBQuery(ctx, "INSERT", "users", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	query := `SELECT id, email, name, role, town, password_hash, created_at FROM users WHERE email = ?`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.Town, &u.PasswordHash, &u.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	query := `SELECT id, email, name, role, town, password_hash, created_at FROM users WHERE id = ?`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.Town, &u.PasswordHash, &u.CreatedAt)
	r.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
