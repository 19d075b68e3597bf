package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// AdminEmailRepository handles persistence for admin notification recipients.
type AdminEmailRepository struct {
	db *pgxpool.Pool
}

// NewAdminEmailRepository constructs an AdminEmailRepository.
func NewAdminEmailRepository(db *pgxpool.Pool) *AdminEmailRepository {
	return &AdminEmailRepository{db: db}
}

// ListActive returns active recipients ordered by creation time.
func (r *AdminEmailRepository) ListActive(ctx context.Context) ([]model.AdminEmail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+adminEmailColumns+` FROM admin_emails WHERE is_active ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admin emails: %w", err)
	}
	defer rows.Close()

	var out []model.AdminEmail
	for rows.Next() {
		a, err := scanAdminEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin email: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Create adds a recipient. Re-adding a removed address reactivates it; adding
// an active one fails with model.ErrAlreadyExists.
func (r *AdminEmailRepository) Create(ctx context.Context, email string) (*model.AdminEmail, error) {
	a, err := scanAdminEmail(r.db.QueryRow(ctx,
		`INSERT INTO admin_emails (id, email, is_active, created_at)
		 VALUES ($1, $2, TRUE, $3)
		 ON CONFLICT ((lower(email))) DO UPDATE SET is_active = TRUE
		 WHERE admin_emails.is_active = FALSE
		 RETURNING `+adminEmailColumns,
		uuid.New().String(), email, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, fmt.Errorf("admin email %s: %w", email, model.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert admin email: %w", err)
	}
	return a, nil
}

// Deactivate soft-deletes a recipient.
func (r *AdminEmailRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE admin_emails SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate admin email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("admin email %s: %w", id, model.ErrNotFound)
	}
	return nil
}
