// Package repository implements persistence for tours, registrations and
// admin notification recipients. It uses pgx directly (no ORM) and ships an
// in-memory backend with the same semantics for development and tests.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const tourColumns = `id, title, description, start_date, end_date, flight_details, luggage_details,
	hotel_details, itinerary, price, capacity, available_spots, is_active, created_at, updated_at`

func scanTour(row rowScanner) (*model.Tour, error) {
	var t model.Tour
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.StartDate, &t.EndDate, &t.FlightDetails, &t.LuggageDetails,
		&t.HotelDetails, &t.Itinerary, &t.Price, &t.Capacity, &t.AvailableSpots, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const registrationColumns = `id, tour_id, order_number, status, date_preference, assigned_date, created_at, updated_at`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg        model.Registration
		status     string
		preference *string
		assigned   *string
	)
	err := row.Scan(&reg.ID, &reg.TourID, &reg.OrderNumber, &status, &preference, &assigned, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Status = model.Status(status)
	if !reg.Status.Valid() {
		return nil, fmt.Errorf("registration %s has unknown status %q", reg.ID, status)
	}
	if preference != nil {
		reg.DatePreference = model.DateOption(*preference)
	}
	if assigned != nil {
		reg.AssignedDate = model.DateOption(*assigned)
	}
	return &reg, nil
}

const participantColumns = `id, registration_id, first_name, last_name, passport_first_name, passport_last_name,
	phone, email, birth_date, passport_confirmed, insurance_acknowledged, additional_luggage, single_room_upgrade, created_at`

func scanParticipant(row rowScanner) (*model.Participant, error) {
	var p model.Participant
	err := row.Scan(
		&p.ID, &p.RegistrationID, &p.FirstName, &p.LastName, &p.PassportFirstName, &p.PassportLastName,
		&p.Phone, &p.Email, &p.BirthDate, &p.PassportConfirmed, &p.InsuranceAcknowledged, &p.AdditionalLuggage,
		&p.SingleRoomUpgrade, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const adminEmailColumns = `id, email, is_active, created_at`

func scanAdminEmail(row rowScanner) (*model.AdminEmail, error) {
	var a model.AdminEmail
	if err := row.Scan(&a.ID, &a.Email, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// nullableDate maps the empty option to SQL NULL.
func nullableDate(d model.DateOption) *string {
	if d == "" {
		return nil
	}
	s := string(d)
	return &s
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
