package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/risk"
	"github.com/arterycheck/arterycheck/server/internal/store"
)

// ValidationError reports input that was rejected before anything was stored.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Evaluator receives every recorded assessment. *alerts.Engine satisfies it.
type Evaluator interface {
	Evaluate(types.Assessment)
}

// Service records user input into a store.
type Service struct {
	store     store.Store
	evaluator Evaluator
	now       func() time.Time
	loc       *time.Location
	newID     func() string
}

// New creates a Service writing to st. ev may be nil.
func New(st store.Store, ev Evaluator) *Service {
	return &Service{
		store:     st,
		evaluator: ev,
		now:       time.Now,
		loc:       time.Local,
		newID:     func() string { return uuid.NewString() },
	}
}

// CreatePatient validates p, assigns an ID and creation time, and stores it.
// Risk level and last assessment are cleared; they come from assessments.
func (s *Service) CreatePatient(ctx context.Context, p types.Patient) (types.Patient, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)

	if p.Name == "" {
		return types.Patient{}, invalid("name is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return types.Patient{}, invalid("age %d is out of range [0, 150]", p.Age)
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return types.Patient{}, invalid("email %q is not a valid address", p.Email)
		}
	}
	switch p.Sex {
	case "", types.SexMale, types.SexFemale:
	default:
		return types.Patient{}, invalid("sex %q unknown: want male|female", p.Sex)
	}
	if p.HeightCM < 0 || p.WeightKG < 0 {
		return types.Patient{}, invalid("height and weight must not be negative")
	}

	p.ID = s.newID()
	p.RiskLevel = ""
	p.LastAssessment = time.Time{}
	p.NextAppointment = ""
	p.CreatedAt = s.now().UTC()

	if err := s.store.PutPatient(ctx, p); err != nil {
		return types.Patient{}, fmt.Errorf("intake: create patient: %w", err)
	}
	slog.Debug("intake: patient created", "id", p.ID)
	return p, nil
}

// Preview runs the calculator without storing anything.
func (s *Service) Preview(in types.AssessmentInput) (risk.Output, error) {
	if err := risk.Validate(in); err != nil {
		return risk.Output{}, &ValidationError{Msg: err.Error()}
	}
	return risk.Assess(in), nil
}

// RecordAssessment scores in, stores the result and, when patientID names a
// known patient, updates that patient's risk level and last assessment time.
// An unknown patientID is stored as given and is not an error. When the
// patient's sex is known and in.Sex is empty, the patient's value is used.
func (s *Service) RecordAssessment(ctx context.Context, patientID string, in types.AssessmentInput) (types.Assessment, error) {
	patientID = strings.TrimSpace(patientID)

	var (
		p     types.Patient
		found bool
	)
	if patientID != "" {
		var err error
		p, err = s.store.GetPatient(ctx, patientID)
		switch {
		case err == nil:
			found = true
			if in.Sex == "" {
				in.Sex = p.Sex
			}
		case errors.Is(err, store.ErrNotFound):
			slog.Debug("intake: assessment for unknown patient", "patient_id", patientID)
		default:
			return types.Assessment{}, fmt.Errorf("intake: load patient: %w", err)
		}
	}

	out, err := s.Preview(in)
	if err != nil {
		return types.Assessment{}, err
	}

	a := types.Assessment{
		ID:              s.newID(),
		PatientID:       patientID,
		Date:            s.now().UTC(),
		Input:           in,
		BMI:             out.BMI,
		BMICategory:     out.BMICategory,
		RiskScore:       out.Score,
		RiskLevel:       out.Level,
		Recommendations: out.Recommendations,
	}
	if err := s.store.AddAssessment(ctx, a); err != nil {
		return types.Assessment{}, fmt.Errorf("intake: add assessment: %w", err)
	}

	if found {
		p.RiskLevel = a.RiskLevel
		p.LastAssessment = a.Date
		if in.HeightCM > 0 {
			p.HeightCM = in.HeightCM
		}
		if in.WeightKG > 0 {
			p.WeightKG = in.WeightKG
		}
		if err := s.store.PutPatient(ctx, p); err != nil {
			return types.Assessment{}, fmt.Errorf("intake: update patient: %w", err)
		}
	}

	slog.Debug("intake: assessment recorded",
		"id", a.ID,
		"patient_id", patientID,
		"score", a.RiskScore,
		"level", a.RiskLevel,
	)

	if s.evaluator != nil {
		s.evaluator.Evaluate(a)
	}
	return a, nil
}

// ScheduleAppointment validates a, fills defaults and stores it. When the
// appointment is scheduled for a known patient and is earlier than the
// patient's current next appointment (or the current one is past), the
// patient's NextAppointment is updated.
func (s *Service) ScheduleAppointment(ctx context.Context, a types.Appointment) (types.Appointment, error) {
	a.PatientName = strings.TrimSpace(a.PatientName)
	a.PatientID = strings.TrimSpace(a.PatientID)
	a.Notes = strings.TrimSpace(a.Notes)

	if a.Type == "" {
		a.Type = types.AppointmentConsultation
	}
	if a.Status == "" {
		a.Status = types.StatusScheduled
	}

	var (
		p     types.Patient
		found bool
	)
	if a.PatientID != "" {
		var err error
		p, err = s.store.GetPatient(ctx, a.PatientID)
		switch {
		case err == nil:
			found = true
			if a.PatientName == "" {
				a.PatientName = p.Name
			}
		case errors.Is(err, store.ErrNotFound):
		default:
			return types.Appointment{}, fmt.Errorf("intake: load patient: %w", err)
		}
	}

	if a.PatientName == "" {
		return types.Appointment{}, invalid("patient_name is required")
	}
	switch a.Type {
	case types.AppointmentConsultation, types.AppointmentFollowUp, types.AppointmentAssessment, types.AppointmentUrgent:
	default:
		return types.Appointment{}, invalid("type %q unknown: want consultation|follow-up|assessment|urgent", a.Type)
	}
	switch a.Status {
	case types.StatusScheduled, types.StatusCompleted, types.StatusCancelled:
	default:
		return types.Appointment{}, invalid("status %q unknown: want scheduled|completed|cancelled", a.Status)
	}
	at, ok := a.At(s.loc)
	if !ok {
		return types.Appointment{}, invalid("date %q and time %q must be YYYY-MM-DD and HH:MM", a.Date, a.Time)
	}

	a.ID = s.newID()
	a.CreatedAt = s.now().UTC()
	if err := s.store.AddAppointment(ctx, a); err != nil {
		return types.Appointment{}, fmt.Errorf("intake: add appointment: %w", err)
	}

	if found && a.Status == types.StatusScheduled && at.After(s.now()) && s.earlier(at, p.NextAppointment) {
		p.NextAppointment = at.Format(types.AppointmentLayout)
		if err := s.store.PutPatient(ctx, p); err != nil {
			return types.Appointment{}, fmt.Errorf("intake: update patient: %w", err)
		}
	}

	slog.Debug("intake: appointment scheduled", "id", a.ID, "date", a.Date, "time", a.Time)
	return a, nil
}

// earlier reports whether at should replace current as the next appointment.
func (s *Service) earlier(at time.Time, current string) bool {
	if current == "" {
		return true
	}
	cur, err := time.ParseInLocation(types.AppointmentLayout, current, s.loc)
	if err != nil || !cur.After(s.now()) {
		return true
	}
	return at.Before(cur)
}
