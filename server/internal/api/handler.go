package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/alerts"
	"github.com/arterycheck/arterycheck/server/internal/analytics"
	"github.com/arterycheck/arterycheck/server/internal/education"
	"github.com/arterycheck/arterycheck/server/internal/intake"
	"github.com/arterycheck/arterycheck/server/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// dashboardListLen is how many recent assessments and next appointments the
// dashboard carries.
const dashboardListLen = 5

// AlertSource exposes alert state. *alerts.Engine satisfies it.
type AlertSource interface {
	Active() []*alerts.Alert
	FiringCount() int
}

// Options wires a Handler.
type Options struct {
	Store   store.Store
	Intake  *intake.Service
	Catalog *education.Catalog

	// Alerts is optional; without it /api/v1/alerts returns an empty list.
	Alerts AlertSource

	// RecentAssessments is how many assessments the patient detail shows.
	// Zero means all of them.
	RecentAssessments int

	// Location is the zone appointment dates and times are read in.
	// Defaults to time.Local.
	Location *time.Location

	// OnChange, if set, is called after every successful write.
	OnChange func()
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store   store.Store
	intake  *intake.Service
	catalog *education.Catalog
	alerts  AlertSource
	recent  int
	loc     *time.Location
	changed func()
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		store:   opts.Store,
		intake:  opts.Intake,
		catalog: opts.Catalog,
		alerts:  opts.Alerts,
		recent:  opts.RecentAssessments,
		loc:     opts.Location,
		changed: opts.OnChange,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.changed == nil {
		h.changed = func() {}
	}

	h.mux.HandleFunc("/api/v1/dashboard", h.dashboard)
	h.mux.HandleFunc("/api/v1/patients", h.patients)
	h.mux.HandleFunc("/api/v1/patients/", h.getPatient) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/assessments", h.assessments)
	h.mux.HandleFunc("/api/v1/assessments/preview", h.previewAssessment)
	h.mux.HandleFunc("/api/v1/appointments", h.appointments)
	h.mux.HandleFunc("/api/v1/appointments/upcoming", h.upcoming)
	h.mux.HandleFunc("/api/v1/analytics", h.report)
	h.mux.HandleFunc("/api/v1/education", h.listEducation)
	h.mux.HandleFunc("/api/v1/education/", h.getEducation)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Dashboard builds the dashboard payload. The WebSocket hub pushes the same
// value.
func (h *Handler) Dashboard(ctx context.Context) (DashboardResponse, error) {
	patients, err := h.store.ListPatients(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("list patients: %w", err)
	}
	assessments, err := h.store.ListAssessments(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("list assessments: %w", err)
	}
	appts, err := h.store.ListAppointments(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("list appointments: %w", err)
	}

	now := h.now().In(h.loc)
	next := analytics.Upcoming(appts, now)
	resp := DashboardResponse{
		Summary:           analytics.Dashboard(patients, assessments, appts, now),
		RecentAssessments: limit(newestAssessments(assessments), dashboardListLen),
		NextAppointments:  limit(next, dashboardListLen),
		GeneratedAt:       now.UTC().Format(time.RFC3339),
	}
	if h.alerts != nil {
		resp.ActiveAlerts = h.alerts.FiringCount()
	}
	return resp, nil
}

// --- route handlers ---------------------------------------------------------

// dashboard returns GET /api/v1/dashboard.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp, err := h.Dashboard(r.Context())
	if err != nil {
		storeErr(w, "dashboard", err)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// patients serves GET and POST /api/v1/patients.
func (h *Handler) patients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.store.ListPatients(r.Context())
		if err != nil {
			storeErr(w, "list patients", err)
			return
		}
		q := r.URL.Query()
		jsonResp(w, http.StatusOK, analytics.PatientSearch(list, q.Get("q"), q.Get("risk")))

	case http.MethodPost:
		var p types.Patient
		if !decodeBody(w, r, &p) {
			return
		}
		created, err := h.intake.CreatePatient(r.Context(), p)
		if err != nil {
			intakeErr(w, "create patient", err)
			return
		}
		h.changed()
		jsonResp(w, http.StatusCreated, created)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// getPatient returns GET /api/v1/patients/{id}.
func (h *Handler) getPatient(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/patients/")
	if id == "" {
		// Bare /api/v1/patients/ behaves like the list route.
		h.patients(w, r)
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	p, err := h.store.GetPatient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		storeErr(w, "get patient", err)
		return
	}

	all, err := h.store.ListAssessments(ctx)
	if err != nil {
		storeErr(w, "list assessments", err)
		return
	}
	mine := make([]types.Assessment, 0)
	for _, a := range all {
		if a.PatientID == id {
			mine = append(mine, a)
		}
	}

	appts, err := h.store.ListAppointments(ctx)
	if err != nil {
		storeErr(w, "list appointments", err)
		return
	}
	upcoming := make([]types.Appointment, 0)
	for _, a := range analytics.Upcoming(appts, h.now().In(h.loc)) {
		if a.PatientID == id {
			upcoming = append(upcoming, a)
		}
	}

	jsonResp(w, http.StatusOK, PatientDetailResponse{
		Patient:      p,
		Assessments:  limit(newestAssessments(mine), h.recent),
		Appointments: upcoming,
	})
}

// assessments serves GET and POST /api/v1/assessments.
func (h *Handler) assessments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.store.ListAssessments(r.Context())
		if err != nil {
			storeErr(w, "list assessments", err)
			return
		}
		jsonResp(w, http.StatusOK, newestAssessments(list))

	case http.MethodPost:
		var req AssessmentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		a, err := h.intake.RecordAssessment(r.Context(), req.PatientID, req.Data)
		if err != nil {
			intakeErr(w, "record assessment", err)
			return
		}
		h.changed()
		jsonResp(w, http.StatusCreated, a)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// previewAssessment returns POST /api/v1/assessments/preview.
func (h *Handler) previewAssessment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req AssessmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.intake.Preview(req.Data)
	if err != nil {
		intakeErr(w, "preview assessment", err)
		return
	}
	jsonResp(w, http.StatusOK, out)
}

// appointments serves GET and POST /api/v1/appointments.
func (h *Handler) appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.store.ListAppointments(r.Context())
		if err != nil {
			storeErr(w, "list appointments", err)
			return
		}
		out := make([]types.Appointment, len(list))
		for i, a := range list {
			out[len(list)-1-i] = a
		}
		jsonResp(w, http.StatusOK, out)

	case http.MethodPost:
		var a types.Appointment
		if !decodeBody(w, r, &a) {
			return
		}
		created, err := h.intake.ScheduleAppointment(r.Context(), a)
		if err != nil {
			intakeErr(w, "schedule appointment", err)
			return
		}
		h.changed()
		jsonResp(w, http.StatusCreated, created)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// upcoming returns GET /api/v1/appointments/upcoming.
func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list, err := h.store.ListAppointments(r.Context())
	if err != nil {
		storeErr(w, "list appointments", err)
		return
	}
	now := h.now().In(h.loc)
	jsonResp(w, http.StatusOK, UpcomingResponse{
		Upcoming: analytics.Upcoming(list, now),
		Today:    analytics.Today(list, now),
	})
}

// report returns GET /api/v1/analytics.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	patients, err := h.store.ListPatients(ctx)
	if err != nil {
		storeErr(w, "list patients", err)
		return
	}
	assessments, err := h.store.ListAssessments(ctx)
	if err != nil {
		storeErr(w, "list assessments", err)
		return
	}
	appts, err := h.store.ListAppointments(ctx)
	if err != nil {
		storeErr(w, "list appointments", err)
		return
	}
	jsonResp(w, http.StatusOK, analytics.Build(patients, assessments, appts, h.now().In(h.loc)))
}

// listEducation returns GET /api/v1/education.
func (h *Handler) listEducation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, EducationResponse{
		Categories: h.catalog.Categories(),
		Modules:    h.catalog.List(r.URL.Query().Get("category")),
	})
}

// getEducation returns GET /api/v1/education/{id}.
func (h *Handler) getEducation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/education/")
	if id == "" {
		h.listEducation(w, r)
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, ok := h.catalog.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "module not found")
		return
	}
	jsonResp(w, http.StatusOK, m)
}

// listAlerts returns GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// decodeBody reads a JSON body into v, writing a 400 and returning false on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// intakeErr maps validation failures to 400 and everything else to 500.
func intakeErr(w http.ResponseWriter, op string, err error) {
	if intake.IsValidation(err) {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	storeErr(w, op, err)
}

func storeErr(w http.ResponseWriter, op string, err error) {
	slog.Error("api: "+op+" failed", "err", err)
	jsonErr(w, http.StatusInternalServerError, "internal error")
}

// newestAssessments returns a copy of list ordered by date, newest first.
// Assessments with equal dates keep reverse insertion order.
func newestAssessments(list []types.Assessment) []types.Assessment {
	out := make([]types.Assessment, len(list))
	for i, a := range list {
		out[len(list)-1-i] = a
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// limit truncates s to n elements. n <= 0 means no limit.
func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
