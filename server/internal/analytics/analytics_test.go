package analytics

import (
	"testing"
	"time"

	"github.com/arterycheck/arterycheck/pkg/types"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func patient(name, email string, age int, level string) types.Patient {
	return types.Patient{ID: name, Name: name, Email: email, Age: age, RiskLevel: level}
}

func assessment(date time.Time, age, score int, level string, h, w float64) types.Assessment {
	return types.Assessment{
		Date:      date,
		Input:     types.AssessmentInput{Age: age, HeightCM: h, WeightKG: w},
		RiskScore: score,
		RiskLevel: level,
	}
}

func appt(date, tm, status string) types.Appointment {
	return types.Appointment{ID: date + " " + tm, Date: date, Time: tm, Status: status}
}

func counts(b []Bucket) map[string]int {
	m := make(map[string]int, len(b))
	for _, x := range b {
		m[x.Label] = x.Count
	}
	return m
}

func TestDashboard(t *testing.T) {
	patients := []types.Patient{
		patient("a", "", 40, types.RiskHigh),
		patient("b", "", 50, types.RiskHigh),
		patient("c", "", 60, types.RiskLow),
		patient("d", "", 70, ""),
	}
	assessments := []types.Assessment{
		assessment(now, 40, 10, types.RiskLow, 0, 0),
		assessment(now, 50, 25, types.RiskModerate, 0, 0),
	}
	appts := []types.Appointment{
		appt("2026-06-15", "13:00", types.StatusScheduled),
		appt("2026-06-14", "13:00", types.StatusScheduled), // past
		appt("2026-07-01", "09:00", types.StatusCancelled),
	}

	s := Dashboard(patients, assessments, appts, now)
	if s.TotalPatients != 4 || s.TotalAssessments != 2 {
		t.Errorf("totals: got %d/%d, want 4/2", s.TotalPatients, s.TotalAssessments)
	}
	if s.HighRiskPatients != 2 {
		t.Errorf("HighRiskPatients: got %d, want 2", s.HighRiskPatients)
	}
	if s.UpcomingAppointments != 1 {
		t.Errorf("UpcomingAppointments: got %d, want 1", s.UpcomingAppointments)
	}
	if s.AverageRiskScore != 18 { // 17.5 rounds up
		t.Errorf("AverageRiskScore: got %d, want 18", s.AverageRiskScore)
	}
	c := counts(s.RiskDistribution)
	if c[types.RiskHigh] != 2 || c[types.RiskLow] != 1 || c[types.RiskModerate] != 0 {
		t.Errorf("RiskDistribution: got %v", c)
	}
}

func TestDashboard_Empty(t *testing.T) {
	s := Dashboard(nil, nil, nil, now)
	if s.AverageRiskScore != 0 || s.TotalPatients != 0 {
		t.Errorf("empty dashboard: got %+v", s)
	}
	if len(s.RiskDistribution) != 3 {
		t.Errorf("RiskDistribution: got %d buckets, want 3", len(s.RiskDistribution))
	}
}

func TestAgeDistribution(t *testing.T) {
	var patients []types.Patient
	for _, age := range []int{17, 18, 30, 31, 45, 46, 60, 61, 75, 76, 99} {
		patients = append(patients, patient("p", "", age, ""))
	}
	got := AgeDistribution(patients)
	want := []Bucket{{"18-30", 2}, {"31-45", 2}, {"46-60", 2}, {"61-75", 2}, {"76+", 2}}
	if len(got) != len(want) {
		t.Fatalf("buckets: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBMIDistribution(t *testing.T) {
	assessments := []types.Assessment{
		assessment(now, 40, 0, "", 180, 55),  // 17.0
		assessment(now, 40, 0, "", 180, 70),  // 21.6
		assessment(now, 40, 0, "", 180, 90),  // 27.8
		assessment(now, 40, 0, "", 180, 110), // 34.0
		assessment(now, 40, 0, "", 180, 0),   // skipped
		assessment(now, 40, 0, "", 0, 80),    // skipped
	}
	c := counts(BMIDistribution(assessments))
	for _, label := range []string{"Underweight", "Normal", "Overweight", "Obese"} {
		if c[label] != 1 {
			t.Errorf("%s: got %d, want 1", label, c[label])
		}
	}
}

func TestMonthlyTrends(t *testing.T) {
	assessments := []types.Assessment{
		assessment(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 40, 55, types.RiskHigh, 0, 0),
		assessment(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 40, 10, types.RiskLow, 0, 0),
		assessment(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC), 40, 10, types.RiskLow, 0, 0),
		assessment(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 40, 10, types.RiskLow, 0, 0), // too old
	}
	got := MonthlyTrends(assessments, now)
	if len(got) != 6 {
		t.Fatalf("months: got %d, want 6", len(got))
	}
	if got[0].Month != "2026-01" || got[0].Label != "Jan" || got[0].Assessments != 1 {
		t.Errorf("first month: got %+v", got[0])
	}
	last := got[5]
	if last.Month != "2026-06" || last.Assessments != 2 || last.HighRisk != 1 {
		t.Errorf("last month: got %+v", last)
	}
	for _, m := range got[1:5] {
		if m.Assessments != 0 {
			t.Errorf("month %s: got %d assessments, want 0", m.Month, m.Assessments)
		}
	}
}

func TestMonthlyTrends_YearBoundary(t *testing.T) {
	got := MonthlyTrends(nil, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	want := []string{"2025-09", "2025-10", "2025-11", "2025-12", "2026-01", "2026-02"}
	for i, m := range got {
		if m.Month != want[i] {
			t.Errorf("month %d: got %s, want %s", i, m.Month, want[i])
		}
	}
}

func TestRiskByAge(t *testing.T) {
	assessments := []types.Assessment{
		assessment(now, 50, 10, "", 0, 0),
		assessment(now, 55, 21, "", 0, 0),
		assessment(now, 58, 14, "", 0, 0),
		assessment(now, 80, 30, "", 0, 0),
	}
	got := RiskByAge(assessments)
	g := got[2] // 46-60
	if g.Range != "46-60" || g.Count != 3 || g.Min != 10 || g.Max != 21 || g.Average != 15 {
		t.Errorf("46-60: got %+v", g)
	}
	if got[4].Count != 1 || got[4].Average != 30 {
		t.Errorf("76+: got %+v", got[4])
	}
	if got[0].Count != 0 || got[0].Average != 0 || got[0].Min != 0 {
		t.Errorf("18-30: got %+v, want zeros", got[0])
	}
}

func TestUpcomingAndToday(t *testing.T) {
	appts := []types.Appointment{
		appt("2026-06-20", "09:00", types.StatusScheduled),
		appt("2026-06-15", "18:30", types.StatusScheduled),
		appt("2026-06-15", "11:59", types.StatusScheduled), // already started
		appt("2026-06-15", "12:00", types.StatusScheduled), // exactly now
		appt("2026-06-15", "14:00", types.StatusCompleted),
		appt("2026-06-16", "08:00", types.StatusScheduled),
		appt("bad", "date", types.StatusScheduled),
	}

	up := Upcoming(appts, now)
	want := []string{"2026-06-15 18:30", "2026-06-16 08:00", "2026-06-20 09:00"}
	if len(up) != len(want) {
		t.Fatalf("Upcoming: got %d, want %d", len(up), len(want))
	}
	for i, a := range up {
		if a.ID != want[i] {
			t.Errorf("Upcoming[%d]: got %s, want %s", i, a.ID, want[i])
		}
	}

	today := Today(appts, now)
	if len(today) != 1 || today[0].ID != "2026-06-15 18:30" {
		t.Errorf("Today: got %+v", today)
	}
}

func TestUpcoming_EmptyIsNotNil(t *testing.T) {
	if got := Upcoming(nil, now); got == nil {
		t.Error("Upcoming(nil): got nil, want empty slice")
	}
	if got := Today(nil, now); got == nil {
		t.Error("Today(nil): got nil, want empty slice")
	}
}

func TestPatientSearch(t *testing.T) {
	patients := []types.Patient{
		patient("Ana Silva", "ana@example.com", 40, types.RiskLow),
		patient("Bruno Costa", "bruno@clinic.org", 50, types.RiskHigh),
		patient("STRASSE Müller", "sm@example.com", 60, types.RiskModerate),
	}

	tests := []struct {
		query, level string
		want         []string
	}{
		{"", "", []string{"Ana Silva", "Bruno Costa", "STRASSE Müller"}},
		{"", "all", []string{"Ana Silva", "Bruno Costa", "STRASSE Müller"}},
		{"ana", "", []string{"Ana Silva"}},
		{"CLINIC", "", []string{"Bruno Costa"}},
		{"example", "moderate", []string{"STRASSE Müller"}},
		{"müller", "", []string{"STRASSE Müller"}},
		{"", "high", []string{"Bruno Costa"}},
		{"ana", "high", nil},
	}
	for _, tc := range tests {
		got := PatientSearch(patients, tc.query, tc.level)
		if len(got) != len(tc.want) {
			t.Errorf("PatientSearch(%q, %q): got %d results, want %d", tc.query, tc.level, len(got), len(tc.want))
			continue
		}
		for i := range got {
			if got[i].Name != tc.want[i] {
				t.Errorf("PatientSearch(%q, %q)[%d]: got %s, want %s", tc.query, tc.level, i, got[i].Name, tc.want[i])
			}
		}
	}
}

func TestBuild(t *testing.T) {
	r := Build(nil, nil, nil, now)
	if len(r.AgeDistribution) != 5 || len(r.BMIDistribution) != 4 || len(r.MonthlyTrends) != 6 || len(r.RiskByAge) != 5 {
		t.Errorf("Build(empty): got %+v", r)
	}
}
