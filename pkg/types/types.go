package types

import "time"

// Risk levels assigned by the calculator.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// Exercise levels accepted by the assessment form.
const (
	ExerciseNone     = "none"
	ExerciseLight    = "light"
	ExerciseModerate = "moderate"
	ExerciseIntense  = "intense"
)

// Sex values. An empty Sex is scored with the male thresholds.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Appointment types.
const (
	AppointmentConsultation = "consultation"
	AppointmentFollowUp     = "follow-up"
	AppointmentAssessment   = "assessment"
	AppointmentUrgent       = "urgent"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Patient is one entry in the patient list.
type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Sex   string `json:"sex,omitempty"`

	// RiskLevel is empty until the first assessment linked to this patient.
	RiskLevel      string    `json:"risk_level,omitempty"`
	LastAssessment time.Time `json:"last_assessment,omitzero"`

	// NextAppointment is "YYYY-MM-DD HH:MM" of the earliest scheduled visit.
	NextAppointment string   `json:"next_appointment,omitempty"`
	MedicalHistory  string   `json:"medical_history,omitempty"`
	Medications     []string `json:"medications,omitempty"`
	HeightCM        float64  `json:"height_cm,omitempty"`
	WeightKG        float64  `json:"weight_kg,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AssessmentInput holds the metrics entered on the risk calculator form.
// Optional metrics left at zero are ignored by the scoring rules.
type AssessmentInput struct {
	Age                int     `json:"age"`
	SystolicBP         float64 `json:"systolic_bp"`
	DiastolicBP        float64 `json:"diastolic_bp"`
	TotalCholesterol   float64 `json:"total_cholesterol"`
	HDLCholesterol     float64 `json:"hdl_cholesterol"`
	LDLCholesterol     float64 `json:"ldl_cholesterol,omitempty"`
	Triglycerides      float64 `json:"triglycerides,omitempty"`
	HeightCM           float64 `json:"height_cm"`
	WeightKG           float64 `json:"weight_kg"`
	RestingHeartRate   float64 `json:"resting_heart_rate,omitempty"`
	BloodGlucose       float64 `json:"blood_glucose,omitempty"`
	WaistCircumference float64 `json:"waist_circumference,omitempty"`
	OxygenSaturation   float64 `json:"oxygen_saturation,omitempty"`
	Sex                string  `json:"sex,omitempty"`
	Smoking            bool    `json:"smoking"`
	Diabetes           bool    `json:"diabetes"`
	FamilyHistory      bool    `json:"family_history"`
	Exercise           string  `json:"exercise"`
}

// Assessment is a stored calculator run.
type Assessment struct {
	ID string `json:"id"`

	// PatientID optionally links the run to a patient. It is not validated.
	PatientID string    `json:"patient_id,omitempty"`
	Date      time.Time `json:"date"`

	Input           AssessmentInput `json:"data"`
	BMI             float64         `json:"bmi"`
	BMICategory     string          `json:"bmi_category"`
	RiskScore       int             `json:"risk_score"`
	RiskLevel       string          `json:"risk_level"`
	Recommendations []string        `json:"recommendations"`
}

// Appointment is one booked visit.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id,omitempty"`
	PatientName string    `json:"patient_name"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AppointmentLayout is the layout of Date and Time joined by a space.
const AppointmentLayout = "2006-01-02 15:04"

// At returns the appointment's start in loc. ok is false unless Date is
// exactly YYYY-MM-DD and Time exactly HH:MM.
func (a Appointment) At(loc *time.Location) (t time.Time, ok bool) {
	s := a.Date + " " + a.Time
	t, err := time.ParseInLocation(AppointmentLayout, s, loc)
	// The layout also accepts a one-digit hour, so require a round trip.
	if err != nil || t.Format(AppointmentLayout) != s {
		return time.Time{}, false
	}
	return t, true
}
