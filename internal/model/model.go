// Package model defines the core domain types for the tour registration system.
package model

import "time"

// Status is the lifecycle state of a registration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// DateOption is a travel window a registrant can ask for or be assigned to.
type DateOption string

const (
	DateMay4to6   DateOption = "may_4_6"
	DateMay25to27 DateOption = "may_25_27"
	NoPreference  DateOption = "no_preference"
)

// ValidPreference reports whether d may be submitted as a date preference.
func (d DateOption) ValidPreference() bool {
	return d == DateMay4to6 || d == DateMay25to27 || d == NoPreference
}

// Assignable reports whether an admin may confirm d as the travel window.
func (d DateOption) Assignable() bool {
	return d == DateMay4to6 || d == DateMay25to27
}

// Label returns a human readable form used in emails.
func (d DateOption) Label() string {
	switch d {
	case DateMay4to6:
		return "May 4-6, 2026"
	case DateMay25to27:
		return "May 25-27, 2026"
	case NoPreference:
		return "No preference"
	}
	return "To be announced"
}

// Tour is a scheduled trip with a fixed seat capacity.
type Tour struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	FlightDetails  string    `json:"flight_details"`
	LuggageDetails string    `json:"luggage_details"`
	HotelDetails   string    `json:"hotel_details"`
	Itinerary      string    `json:"itinerary"`
	Price          string    `json:"price"`
	Capacity       int       `json:"capacity"`
	AvailableSpots int       `json:"available_spots"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Booked returns the number of seats held by approved registrations.
func (t Tour) Booked() int {
	return t.Capacity - t.AvailableSpots
}

// IsFull returns true when no seats remain.
func (t Tour) IsFull() bool {
	return t.AvailableSpots <= 0
}

// Registration is one booking request tied to a tour.
type Registration struct {
	ID             string       `json:"id"`
	TourID         string       `json:"tour_id"`
	OrderNumber    int          `json:"order_number"`
	Status         Status       `json:"status"`
	DatePreference DateOption   `json:"date_preference,omitempty"`
	AssignedDate   DateOption   `json:"assigned_date,omitempty"`
	Participant    *Participant `json:"participant,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TravelDate is the confirmed window if one was assigned, else the preference.
func (r *Registration) TravelDate() DateOption {
	if r.AssignedDate != "" {
		return r.AssignedDate
	}
	return r.DatePreference
}

// Participant holds the passenger and passport details of a registration.
type Participant struct {
	ID                    string    `json:"id"`
	RegistrationID        string    `json:"registration_id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	PassportFirstName     string    `json:"passport_first_name"`
	PassportLastName      string    `json:"passport_last_name"`
	Phone                 string    `json:"phone"`
	Email                 string    `json:"email"`
	BirthDate             time.Time `json:"birth_date"`
	PassportConfirmed     bool      `json:"passport_confirmed"`
	InsuranceAcknowledged bool      `json:"insurance_acknowledged"`
	AdditionalLuggage     bool      `json:"additional_luggage"`
	SingleRoomUpgrade     bool      `json:"single_room_upgrade"`
	CreatedAt             time.Time `json:"created_at"`
}

// FullName joins the local-script first and last name.
func (p *Participant) FullName() string {
	return p.FirstName + " " + p.LastName
}

// AdminEmail is a recipient of admin notifications.
type AdminEmail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// RegistrationDetails is a registration with its tour, as shown on the dashboard.
type RegistrationDetails struct {
	Registration
	Tour *Tour `json:"tour,omitempty"`
}

// StatusCounts tallies registrations of one tour by status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Add increments the counter for s.
func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusPending:
		c.Pending++
	case StatusApproved:
		c.Approved++
	case StatusRejected:
		c.Rejected++
	}
}

// TourStats is one row of the inventory overview.
type TourStats struct {
	Tour Tour `json:"tour"`
	StatusCounts
	AvailableSpots int `json:"available_spots"`
	Capacity       int `json:"capacity"`
}

// TransitionResult describes a status change applied by a store.
type TransitionResult struct {
	Registration *Registration `json:"registration"`
	Tour         *Tour         `json:"tour"`
	From         Status        `json:"from"`
	SeatDelta    int           `json:"seat_delta"`
	Noop         bool          `json:"noop"`
}

// ─── Requests ─────────────────────────────────────────────────────────────────

// CreateTourRequest is the payload for creating a tour.
type CreateTourRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"required,datetime=2006-01-02"`
	FlightDetails  string `json:"flight_details"`
	LuggageDetails string `json:"luggage_details"`
	HotelDetails   string `json:"hotel_details"`
	Itinerary      string `json:"itinerary"`
	Price          string `json:"price"`
	Capacity       int    `json:"capacity" validate:"gte=0,lte=100000"`
}

// UpdateTourRequest is a partial tour update; nil fields are left unchanged.
type UpdateTourRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string `json:"description"`
	StartDate      *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	FlightDetails  *string `json:"flight_details"`
	LuggageDetails *string `json:"luggage_details"`
	HotelDetails   *string `json:"hotel_details"`
	Itinerary      *string `json:"itinerary"`
	Price          *string `json:"price"`
	Capacity       *int    `json:"capacity" validate:"omitempty,gte=1,lte=100000"`
	IsActive       *bool   `json:"is_active"`
}

// TourPatch is an UpdateTourRequest with dates already parsed.
type TourPatch struct {
	Title          *string
	Description    *string
	StartDate      *time.Time
	EndDate        *time.Time
	FlightDetails  *string
	LuggageDetails *string
	HotelDetails   *string
	Itinerary      *string
	Price          *string
	Capacity       *int
	IsActive       *bool
}

// ParticipantRequest carries the passenger form.
type ParticipantRequest struct {
	FirstName             string `json:"first_name" validate:"required,max=100"`
	LastName              string `json:"last_name" validate:"required,max=100"`
	PassportFirstName     string `json:"passport_first_name" validate:"required,max=100"`
	PassportLastName      string `json:"passport_last_name" validate:"required,max=100"`
	Phone                 string `json:"phone" validate:"required,max=20"`
	Email                 string `json:"email" validate:"required,email,max=320"`
	BirthDate             string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	PassportConfirmed     bool   `json:"passport_confirmed"`
	InsuranceAcknowledged bool   `json:"insurance_acknowledged"`
	AdditionalLuggage     bool   `json:"additional_luggage"`
	SingleRoomUpgrade     bool   `json:"single_room_upgrade"`
}

// CreateRegistrationRequest is the public booking payload.
type CreateRegistrationRequest struct {
	TourID         string             `json:"tour_id" validate:"required"`
	DatePreference DateOption         `json:"date_preference,omitempty"`
	Participant    ParticipantRequest `json:"participant"`
}

// CreateRegistrationResponse is returned to the registrant.
type CreateRegistrationResponse struct {
	Success      bool          `json:"success"`
	OrderNumber  int           `json:"order_number"`
	Registration *Registration `json:"registration"`
}

// AssignDateRequest is the payload of assign-date-and-approve.
type AssignDateRequest struct {
	AssignedDate DateOption `json:"assigned_date"`
}

// AdminEmailRequest adds a notification recipient.
type AdminEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued admin token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
