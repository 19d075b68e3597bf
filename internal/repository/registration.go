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

// RegistrationRepository handles persistence for registrations and their participants.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create stores a pending registration and its participant in one transaction.
// The order number comes from a database sequence, so it is unique and
// increasing even under concurrent submissions. No seat is taken.
func (r *RegistrationRepository) Create(ctx context.Context, tourID string, preference model.DateOption, p model.Participant) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var active bool
	err = tx.QueryRow(ctx, `SELECT is_active FROM tours WHERE id = $1`, tourID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tour %s: %w", tourID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if !active {
		return nil, fmt.Errorf("%w: tour %s is closed for registration", model.ErrInvalidState, tourID)
	}

	now := time.Now().UTC()
	reg, err := scanRegistration(tx.QueryRow(ctx,
		`INSERT INTO registrations (id, tour_id, status, date_preference, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+registrationColumns,
		uuid.New().String(), tourID, string(model.StatusPending), nullableDate(preference), now,
	))
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	p.ID = uuid.New().String()
	p.RegistrationID = reg.ID
	p.CreatedAt = now
	_, err = tx.Exec(ctx,
		`INSERT INTO participants (`+participantColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.RegistrationID, p.FirstName, p.LastName, p.PassportFirstName, p.PassportLastName,
		p.Phone, p.Email, p.BirthDate, p.PassportConfirmed, p.InsuranceAcknowledged, p.AdditionalLuggage,
		p.SingleRoomUpgrade, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	reg.Participant = &p
	return reg, nil
}

// GetByID returns a registration with its participant, or model.ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Participant, err = participantOf(ctx, r.db, id); err != nil {
		return nil, err
	}
	return reg, nil
}

// List returns all registrations, newest first, with participants attached.
func (r *RegistrationRepository) List(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at DESC, order_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	participants, err := r.participantsByRegistration(ctx)
	if err != nil {
		return nil, err
	}
	for i := range regs {
		regs[i].Participant = participants[regs[i].ID]
	}
	return regs, nil
}

func (r *RegistrationRepository) participantsByRegistration(ctx context.Context) (map[string]*model.Participant, error) {
	rows, err := r.db.Query(ctx, `SELECT `+participantColumns+` FROM participants`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.Participant)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[p.RegistrationID] = p
	}
	return out, rows.Err()
}

// CountByTour tallies registrations by status for every tour that has any.
func (r *RegistrationRepository) CountByTour(ctx context.Context) (map[string]model.StatusCounts, error) {
	rows, err := r.db.Query(ctx,
		`SELECT tour_id, status, COUNT(*) FROM registrations GROUP BY tour_id, status`)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.StatusCounts)
	for rows.Next() {
		var (
			tourID, status string
			n              int
		)
		if err := rows.Scan(&tourID, &status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		c := out[tourID]
		switch model.Status(status) {
		case model.StatusPending:
			c.Pending = n
		case model.StatusApproved:
			c.Approved = n
		case model.StatusRejected:
			c.Rejected = n
		}
		out[tourID] = c
	}
	return out, rows.Err()
}

// Transition applies an admin action to a registration and moves the tour's
// seat counter by the delta the transition table prescribes, atomically.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY NOT READ-THEN-WRITE
// ─────────────────────────────────────────────────────────────────────────────
//
//	admin A: SELECT available_spots → 1      admin B: SELECT available_spots → 1
//	admin A: approve R1, write 0             admin B: approve R2, write 0
//	Result: two approved registrations, one seat taken. Inventory drifted.
//
// Two locks close the gap:
//
//  1. SELECT … FOR UPDATE on the registration row serialises actions on the
//     same registration, so two admins cannot both compute a delta from the
//     same starting status.
//  2. The seat change is a single conditional UPDATE on the tour row:
//     UPDATE … SET available_spots = available_spots + delta
//     WHERE available_spots + delta BETWEEN 0 AND capacity.
//     A competing transaction blocks on the row lock, then re-evaluates the
//     WHERE clause against the committed value. Zero rows means the seat is
//     gone and the caller gets model.ErrCapacity.
//
// ─────────────────────────────────────────────────────────────────────────────
func (r *RegistrationRepository) Transition(ctx context.Context, id string, action model.Action, date model.DateOption) (*model.TransitionResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// ── Step 1: lock the registration row. ─────────────────────────────────
	reg, err := scanRegistration(tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("lock registration row: %w", err)
	}

	// ── Step 2: look the change up once. ──────────────────────────────────
	change, err := model.Transition(reg.Status, action)
	if err != nil {
		return nil, err
	}
	result := &model.TransitionResult{From: reg.Status, SeatDelta: change.SeatDelta}

	// ── Step 3: move the seat counter with a guarded update. ──────────────
	if change.SeatDelta != 0 {
		result.Tour, err = scanTour(tx.QueryRow(ctx,
			`UPDATE tours
			 SET available_spots = available_spots + $2, updated_at = NOW()
			 WHERE id = $1 AND available_spots + $2 BETWEEN 0 AND capacity
			 RETURNING `+tourColumns,
			reg.TourID, change.SeatDelta,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tour %s cannot move by %+d", model.ErrCapacity, reg.TourID, change.SeatDelta)
		}
	} else {
		result.Tour, err = scanTour(tx.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1`, reg.TourID))
	}
	if err != nil {
		return nil, fmt.Errorf("update tour seats: %w", err)
	}

	// ── Step 4: write status and assigned date. ───────────────────────────
	assigned := reg.AssignedDate
	if action == model.ActionAssignDate {
		assigned = date
	}
	result.Noop = change.Noop() && assigned == reg.AssignedDate

	if !result.Noop {
		reg, err = scanRegistration(tx.QueryRow(ctx,
			`UPDATE registrations SET status = $2, assigned_date = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+registrationColumns,
			id, string(change.To), nullableDate(assigned),
		))
		if err != nil {
			return nil, fmt.Errorf("update registration: %w", err)
		}
	}

	if reg.Participant, err = participantOf(ctx, tx, id); err != nil {
		return nil, err
	}

	// ── Step 5: commit both writes together. ──────────────────────────────
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	result.Registration = reg
	return result, nil
}

// querier is the subset of pgxpool.Pool and pgx.Tx used for reads.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func participantOf(ctx context.Context, q querier, registrationID string) (*model.Participant, error) {
	p, err := scanParticipant(q.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE registration_id = $1`, registrationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}
