package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/arterycheck/arterycheck/pkg/types"
	"github.com/arterycheck/arterycheck/server/internal/risk"
)

// trendMonths is how many calendar months MonthlyTrends covers, current included.
const trendMonths = 6

// Bucket is one labelled count in a distribution.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is the headline block shown on the dashboard.
type Summary struct {
	TotalPatients        int      `json:"total_patients"`
	TotalAssessments     int      `json:"total_assessments"`
	HighRiskPatients     int      `json:"high_risk_patients"`
	UpcomingAppointments int      `json:"upcoming_appointments"`
	AverageRiskScore     int      `json:"average_risk_score"`
	RiskDistribution     []Bucket `json:"risk_distribution"`
}

// MonthPoint is one month of assessment activity.
type MonthPoint struct {
	Month       string `json:"month"` // YYYY-MM
	Label       string `json:"label"` // Jan, Feb, ...
	Assessments int    `json:"assessments"`
	HighRisk    int    `json:"high_risk"`
}

// AgeRisk summarises risk scores for one age group.
type AgeRisk struct {
	Range   string  `json:"range"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// Report is the full analytics page.
type Report struct {
	Summary         Summary      `json:"summary"`
	AgeDistribution []Bucket     `json:"age_distribution"`
	BMIDistribution []Bucket     `json:"bmi_distribution"`
	MonthlyTrends   []MonthPoint `json:"monthly_trends"`
	RiskByAge       []AgeRisk    `json:"risk_by_age"`
}

type ageGroup struct {
	label    string
	min, max int // inclusive; max < 0 means open-ended
}

var ageGroups = []ageGroup{
	{"18-30", 18, 30},
	{"31-45", 31, 45},
	{"46-60", 46, 60},
	{"61-75", 61, 75},
	{"76+", 76, -1},
}

func (g ageGroup) contains(age int) bool {
	return age >= g.min && (g.max < 0 || age <= g.max)
}

// Build assembles the analytics Report at now.
func Build(patients []types.Patient, assessments []types.Assessment, appts []types.Appointment, now time.Time) Report {
	return Report{
		Summary:         Dashboard(patients, assessments, appts, now),
		AgeDistribution: AgeDistribution(patients),
		BMIDistribution: BMIDistribution(assessments),
		MonthlyTrends:   MonthlyTrends(assessments, now),
		RiskByAge:       RiskByAge(assessments),
	}
}

// Dashboard computes the headline counts. Upcoming appointments are those
// Upcoming returns at now.
func Dashboard(patients []types.Patient, assessments []types.Assessment, appts []types.Appointment, now time.Time) Summary {
	s := Summary{
		TotalPatients:        len(patients),
		TotalAssessments:     len(assessments),
		UpcomingAppointments: len(Upcoming(appts, now)),
		RiskDistribution:     RiskDistribution(patients),
	}
	for _, p := range patients {
		if p.RiskLevel == types.RiskHigh {
			s.HighRiskPatients++
		}
	}
	if len(assessments) > 0 {
		total := 0
		for _, a := range assessments {
			total += a.RiskScore
		}
		s.AverageRiskScore = int(math.Round(float64(total) / float64(len(assessments))))
	}
	return s
}

// AgeDistribution counts patients per age group. Patients under 18 are not
// counted.
func AgeDistribution(patients []types.Patient) []Bucket {
	out := make([]Bucket, len(ageGroups))
	for i, g := range ageGroups {
		out[i].Label = g.label
	}
	for _, p := range patients {
		for i, g := range ageGroups {
			if g.contains(p.Age) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// RiskDistribution counts patients per risk level. Patients never assessed
// are not counted.
func RiskDistribution(patients []types.Patient) []Bucket {
	out := []Bucket{
		{Label: types.RiskLow},
		{Label: types.RiskModerate},
		{Label: types.RiskHigh},
	}
	for _, p := range patients {
		for i := range out {
			if out[i].Label == p.RiskLevel {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// BMIDistribution counts assessments per BMI category. Assessments without
// both height and weight are skipped.
func BMIDistribution(assessments []types.Assessment) []Bucket {
	out := []Bucket{
		{Label: risk.BMIUnderweight},
		{Label: risk.BMINormal},
		{Label: risk.BMIOverweight},
		{Label: risk.BMIObese},
	}
	for _, a := range assessments {
		if a.Input.HeightCM <= 0 || a.Input.WeightKG <= 0 {
			continue
		}
		cat := risk.BMICategory(risk.BMI(a.Input.HeightCM, a.Input.WeightKG))
		for i := range out {
			if out[i].Label == cat {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// MonthlyTrends counts assessments and high-risk assessments for each of the
// last six calendar months in now's location, oldest first.
func MonthlyTrends(assessments []types.Assessment, now time.Time) []MonthPoint {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(trendMonths - 1), 0)

	out := make([]MonthPoint, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := range out {
		m := first.AddDate(0, i, 0)
		out[i] = MonthPoint{Month: m.Format("2006-01"), Label: m.Format("Jan")}
		index[out[i].Month] = i
	}

	for _, a := range assessments {
		i, ok := index[a.Date.In(loc).Format("2006-01")]
		if !ok {
			continue
		}
		out[i].Assessments++
		if a.RiskLevel == types.RiskHigh {
			out[i].HighRisk++
		}
	}
	return out
}

// RiskByAge reports the average, lowest and highest risk score per age group,
// using the age entered on each assessment. Empty groups report zeros.
func RiskByAge(assessments []types.Assessment) []AgeRisk {
	out := make([]AgeRisk, len(ageGroups))
	sums := make([]int, len(ageGroups))
	for i, g := range ageGroups {
		out[i].Range = g.label
	}

	for _, a := range assessments {
		for i, g := range ageGroups {
			if !g.contains(a.Input.Age) {
				continue
			}
			r := &out[i]
			if r.Count == 0 || a.RiskScore < r.Min {
				r.Min = a.RiskScore
			}
			if r.Count == 0 || a.RiskScore > r.Max {
				r.Max = a.RiskScore
			}
			r.Count++
			sums[i] += a.RiskScore
			break
		}
	}

	for i := range out {
		if out[i].Count > 0 {
			avg := float64(sums[i]) / float64(out[i].Count)
			out[i].Average = math.Round(avg*10) / 10
		}
	}
	return out
}

// Upcoming returns the scheduled appointments that start strictly after now,
// earliest first. Date and time are read in now's location; unparseable
// appointments are skipped.
func Upcoming(appts []types.Appointment, now time.Time) []types.Appointment {
	type timed struct {
		at time.Time
		a  types.Appointment
	}
	var list []timed
	for _, a := range appts {
		if a.Status != types.StatusScheduled {
			continue
		}
		at, ok := a.At(now.Location())
		if !ok || !at.After(now) {
			continue
		}
		list = append(list, timed{at, a})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].at.Before(list[j].at) })

	out := make([]types.Appointment, len(list))
	for i, t := range list {
		out[i] = t.a
	}
	return out
}

// Today returns the upcoming appointments that fall on now's calendar date.
func Today(appts []types.Appointment, now time.Time) []types.Appointment {
	day := now.Format("2006-01-02")
	out := []types.Appointment{}
	for _, a := range Upcoming(appts, now) {
		if a.Date == day {
			out = append(out, a)
		}
	}
	return out
}

// PatientSearch returns the patients whose name or email contains query,
// compared case-insensitively, and whose risk level equals level. An empty
// query matches everyone; an empty level or "all" disables the level filter.
func PatientSearch(patients []types.Patient, query, level string) []types.Patient {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	level = strings.ToLower(strings.TrimSpace(level))

	out := []types.Patient{}
	for _, p := range patients {
		if level != "" && level != "all" && p.RiskLevel != level {
			continue
		}
		if q != "" && !strings.Contains(fold.String(p.Name), q) && !strings.Contains(fold.String(p.Email), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}
