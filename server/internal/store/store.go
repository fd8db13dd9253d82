package store

import (
	"context"
	"errors"
	"sync"

	"github.com/arterycheck/arterycheck/pkg/types"
)

// ErrNotFound is returned when a record lookup has no match.
var ErrNotFound = errors.New("store: not found")

// Store holds the three record lists. Lists come back in insertion order.
type Store interface {
	PutPatient(ctx context.Context, p types.Patient) error
	GetPatient(ctx context.Context, id string) (types.Patient, error)
	ListPatients(ctx context.Context) ([]types.Patient, error)

	AddAssessment(ctx context.Context, a types.Assessment) error
	ListAssessments(ctx context.Context) ([]types.Assessment, error)

	AddAppointment(ctx context.Context, a types.Appointment) error
	ListAppointments(ctx context.Context) ([]types.Appointment, error)

	Close() error
}

// Memory is a thread-safe in-memory Store. Nothing survives a restart.
type Memory struct {
	mu           sync.RWMutex
	patients     []types.Patient
	byID         map[string]int // patient ID → index in patients
	assessments  []types.Assessment
	appointments []types.Appointment
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

// PutPatient appends p, or replaces the existing patient with the same ID in
// place so list order is kept.
func (m *Memory) PutPatient(_ context.Context, p types.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[p.ID]; ok {
		m.patients[i] = clonePatient(p)
		return nil
	}
	m.byID[p.ID] = len(m.patients)
	m.patients = append(m.patients, clonePatient(p))
	return nil
}

// GetPatient returns the patient with id or ErrNotFound.
func (m *Memory) GetPatient(_ context.Context, id string) (types.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return types.Patient{}, ErrNotFound
	}
	return clonePatient(m.patients[i]), nil
}

// ListPatients returns a copy of all patients.
func (m *Memory) ListPatients(_ context.Context) ([]types.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Patient, len(m.patients))
	for i, p := range m.patients {
		out[i] = clonePatient(p)
	}
	return out, nil
}

// AddAssessment appends a.
func (m *Memory) AddAssessment(_ context.Context, a types.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Recommendations = append([]string(nil), a.Recommendations...)
	m.assessments = append(m.assessments, a)
	return nil
}

// ListAssessments returns a copy of all assessments.
func (m *Memory) ListAssessments(_ context.Context) ([]types.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Assessment, len(m.assessments))
	for i, a := range m.assessments {
		a.Recommendations = append([]string(nil), a.Recommendations...)
		out[i] = a
	}
	return out, nil
}

// AddAppointment appends a.
func (m *Memory) AddAppointment(_ context.Context, a types.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments = append(m.appointments, a)
	return nil
}

// ListAppointments returns a copy of all appointments.
func (m *Memory) ListAppointments(_ context.Context) ([]types.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Appointment, len(m.appointments))
	copy(out, m.appointments)
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func clonePatient(p types.Patient) types.Patient {
	if p.Medications != nil {
		p.Medications = append([]string(nil), p.Medications...)
	}
	return p
}
