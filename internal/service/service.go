// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

var tracer = otel.Tracer("github.com/Shivanand-hulikatti/tour-registration/internal/service")

// TourStore persists tours.
type TourStore interface {
	Create(ctx context.Context, tour model.Tour) (*model.Tour, error)
	List(ctx context.Context, activeOnly bool) ([]model.Tour, error)
	GetByID(ctx context.Context, id string) (*model.Tour, error)
	Update(ctx context.Context, id string, patch model.TourPatch) (*model.Tour, error)
}

// RegistrationStore persists registrations and applies status transitions atomically.
type RegistrationStore interface {
	Create(ctx context.Context, tourID string, preference model.DateOption, p model.Participant) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	List(ctx context.Context) ([]model.Registration, error)
	CountByTour(ctx context.Context) (map[string]model.StatusCounts, error)
	Transition(ctx context.Context, id string, action model.Action, date model.DateOption) (*model.TransitionResult, error)
}

// AdminEmailStore persists admin notification recipients.
type AdminEmailStore interface {
	ListActive(ctx context.Context) ([]model.AdminEmail, error)
	Create(ctx context.Context, email string) (*model.AdminEmail, error)
	Deactivate(ctx context.Context, id string) error
}

// Notifier emits best-effort emails. Implementations must not block.
type Notifier interface {
	RegistrationCreated(reg *model.Registration, tour *model.Tour, admins []model.AdminEmail)
	StatusChanged(action model.Action, res *model.TransitionResult, admins []model.AdminEmail)
	DailySummary(pending int, stats []model.TourStats, admins []model.AdminEmail)
}

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and folds failures into model.ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	case "datetime":
		return field + " must be a date formatted " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	}
	return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a date formatted %s", model.ErrInvalidInput, field, dateLayout)
	}
	return t, nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", model.ErrInvalidInput, kind)
	}
	return nil
}
