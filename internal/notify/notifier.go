package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names, also used as Message.Kind.
const (
	KindCustomerConfirmation = "customer_confirmation"
	KindCustomerApproved     = "customer_approved"
	KindCustomerRejected     = "customer_rejected"
	KindAdminNewRegistration = "admin_new_registration"
	KindAdminStatusChanged   = "admin_status_changed"
	KindAdminDailySummary    = "admin_daily_summary"
)

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message)
}

// Notifier turns registration events into emails and hands them to an Enqueuer.
// None of its methods block on delivery or report delivery errors.
type Notifier struct {
	out          Enqueuer
	tmpl         *template.Template
	contactEmail string
	log          *zap.Logger
}

// NewNotifier parses the embedded templates.
func NewNotifier(out Enqueuer, contactEmail string, log *zap.Logger) (*Notifier, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Notifier{out: out, tmpl: tmpl, contactEmail: contactEmail, log: log}, nil
}

type registrationView struct {
	OrderNumber       int
	TourTitle         string
	DateLabel         string
	CustomerName      string
	PassportName      string
	Email             string
	Phone             string
	BirthDate         string
	PassportConfirmed bool
	AdditionalLuggage bool
	SingleRoomUpgrade bool
	ContactEmail      string
	Outcome           string
	AvailableSpots    int
	Capacity          int
}

func (n *Notifier) view(reg *model.Registration, tour *model.Tour) registrationView {
	v := registrationView{
		OrderNumber:    reg.OrderNumber,
		TourTitle:      tour.Title,
		DateLabel:      reg.TravelDate().Label(),
		ContactEmail:   n.contactEmail,
		AvailableSpots: tour.AvailableSpots,
		Capacity:       tour.Capacity,
	}
	if p := reg.Participant; p != nil {
		v.CustomerName = p.FullName()
		v.PassportName = p.PassportFirstName + " " + p.PassportLastName
		v.Email = p.Email
		v.Phone = p.Phone
		v.BirthDate = p.BirthDate.Format("2006-01-02")
		v.PassportConfirmed = p.PassportConfirmed
		v.AdditionalLuggage = p.AdditionalLuggage
		v.SingleRoomUpgrade = p.SingleRoomUpgrade
	}
	return v
}

// RegistrationCreated notifies admins and sends the registrant a confirmation.
func (n *Notifier) RegistrationCreated(reg *model.Registration, tour *model.Tour, admins []model.AdminEmail) {
	v := n.view(reg, tour)
	n.toAdmins(admins, KindAdminNewRegistration, fmt.Sprintf("New registration #%d - %s", reg.OrderNumber, tour.Title), v)
	if v.Email != "" {
		n.send(v.Email, KindCustomerConfirmation, fmt.Sprintf("Registration received #%d - %s", reg.OrderNumber, tour.Title), v)
	}
}

// StatusChanged notifies admins of an applied transition and, for approvals
// and rejections, the registrant. No-op transitions send nothing.
func (n *Notifier) StatusChanged(action model.Action, res *model.TransitionResult, admins []model.AdminEmail) {
	if res == nil || res.Noop {
		return
	}
	reg, tour := res.Registration, res.Tour
	v := n.view(reg, tour)

	var customerKind, customerSubject string
	switch action {
	case model.ActionApprove, model.ActionAssignDate:
		v.Outcome = "approved"
		customerKind = KindCustomerApproved
		customerSubject = fmt.Sprintf("Registration approved #%d - %s", reg.OrderNumber, tour.Title)
	case model.ActionReject:
		v.Outcome = "rejected"
		customerKind = KindCustomerRejected
		customerSubject = fmt.Sprintf("Registration update #%d - %s", reg.OrderNumber, tour.Title)
	case model.ActionCancel:
		v.Outcome = "cancelled"
	default:
		return
	}

	n.toAdmins(admins, KindAdminStatusChanged, fmt.Sprintf("Registration #%d %s", reg.OrderNumber, v.Outcome), v)
	if customerKind != "" && v.Email != "" {
		n.send(v.Email, customerKind, customerSubject, v)
	}
}

type summaryView struct {
	PendingCount int
	Tours        []model.TourStats
}

// DailySummary mails per-tour statistics to every admin.
func (n *Notifier) DailySummary(pending int, stats []model.TourStats, admins []model.AdminEmail) {
	n.toAdmins(admins, KindAdminDailySummary,
		fmt.Sprintf("Daily summary: %d pending registration(s)", pending),
		summaryView{PendingCount: pending, Tours: stats})
}

func (n *Notifier) toAdmins(admins []model.AdminEmail, kind, subject string, data any) {
	for _, a := range admins {
		if a.IsActive {
			n.send(a.Email, kind, subject, data)
		}
	}
}

func (n *Notifier) send(to, kind, subject string, data any) {
	var buf bytes.Buffer
	if err := n.tmpl.ExecuteTemplate(&buf, kind+".html", data); err != nil {
		n.log.Error("render email", zap.String("kind", kind), zap.Error(err))
		return
	}
	n.out.Enqueue(Message{Kind: kind, To: to, Subject: subject, HTML: buf.String()})
}
