package api

import (
	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/analytics"
	"github.com/arterycheck/arterycheck/server/internal/education"
)

// DashboardResponse is the payload for GET /api/v1/dashboard and the data of
// every WebSocket "dashboard" event.
type DashboardResponse struct {
	analytics.Summary
	RecentAssessments []types.Assessment  `json:"recent_assessments"`
	NextAppointments  []types.Appointment `json:"next_appointments"`
	ActiveAlerts      int                 `json:"active_alerts"`
	GeneratedAt       string              `json:"generated_at"` // RFC3339
}

// PatientDetailResponse is the payload for GET /api/v1/patients/{id}.
type PatientDetailResponse struct {
	Patient      types.Patient       `json:"patient"`
	Assessments  []types.Assessment  `json:"assessments"`
	Appointments []types.Appointment `json:"appointments"`
}

// AssessmentRequest is the body of POST /api/v1/assessments and
// POST /api/v1/assessments/preview. PatientID is ignored by preview.
type AssessmentRequest struct {
	PatientID string                `json:"patient_id"`
	Data      types.AssessmentInput `json:"data"`
}

// UpcomingResponse is the payload for GET /api/v1/appointments/upcoming.
type UpcomingResponse struct {
	Upcoming []types.Appointment `json:"upcoming"`
	Today    []types.Appointment `json:"today"`
}

// EducationResponse is the payload for GET /api/v1/education.
type EducationResponse struct {
	Categories []string           `json:"categories"`
	Modules    []education.Module `json:"modules"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
