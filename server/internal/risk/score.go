package risk

import (
	"math"

	"github.com/arterycheck/arterycheck/pkg/types"
)

// Thresholds that map a score to a risk level.
const (
	ThresholdModerate = 20
	ThresholdHigh     = 50
)

// Waist circumference above which central obesity adds to the score.
const (
	WaistThresholdMale   = 102.0
	WaistThresholdFemale = 88.0
)

// BMI category names.
const (
	BMIUnderweight = "Underweight"
	BMINormal      = "Normal"
	BMIOverweight  = "Overweight"
	BMIObese       = "Obese"
)

// Factor is one scoring rule's contribution to the total.
type Factor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Output is the result of a full assessment.
type Output struct {
	BMI             float64  `json:"bmi"`
	BMICategory     string   `json:"bmi_category"`
	Score           int      `json:"risk_score"`
	Level           string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`

	// Factors lists every rule that contributed a non-zero amount, in
	// evaluation order. Their sum equals Score unless clamping applied.
	Factors []Factor `json:"factors"`
}

// Assess runs the calculator over in.
func Assess(in types.AssessmentInput) Output {
	factors := factorsFor(in)
	score := sum(factors)
	level := Level(score)
	bmi := BMI(in.HeightCM, in.WeightKG)
	return Output{
		BMI:             bmi,
		BMICategory:     BMICategory(bmi),
		Score:           score,
		Level:           level,
		Recommendations: Recommendations(in, level),
		Factors:         factors,
	}
}

// Score returns the cardiovascular risk score for in, clamped to [0, 100].
func Score(in types.AssessmentInput) int {
	return sum(factorsFor(in))
}

// Level maps a score to low, moderate or high.
func Level(score int) string {
	switch {
	case score < ThresholdModerate:
		return types.RiskLow
	case score < ThresholdHigh:
		return types.RiskModerate
	default:
		return types.RiskHigh
	}
}

// BMI returns weight / height² with height in metres, rounded to one decimal.
// It returns 0 when either input is not positive.
func BMI(heightCM, weightKG float64) float64 {
	if heightCM <= 0 || weightKG <= 0 {
		return 0
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*10) / 10
}

// BMICategory names the WHO band for bmi.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// WaistThreshold returns the central-obesity cutoff in cm for sex.
func WaistThreshold(sex string) float64 {
	if sex == types.SexFemale {
		return WaistThresholdFemale
	}
	return WaistThresholdMale
}

// CholesterolRatio returns total / HDL. An HDL of zero divides by one.
func CholesterolRatio(total, hdl float64) float64 {
	if hdl == 0 {
		hdl = 1
	}
	return total / hdl
}

// factorsFor evaluates every rule independently and returns the non-zero ones.
func factorsFor(in types.AssessmentInput) []Factor {
	var out []Factor
	add := func(name string, points int) {
		if points != 0 {
			out = append(out, Factor{Name: name, Points: points})
		}
	}

	add("age", tiered(float64(in.Age), 65, 8, 55, 6, 45, 4, 35, 2))
	add("systolic_bp", tiered(in.SystolicBP, 160, 7, 140, 5, 130, 3, 120, 1))
	add("cholesterol_ratio", tiered(CholesterolRatio(in.TotalCholesterol, in.HDLCholesterol), 6, 6, 5, 4, 4, 2))

	bmi := BMI(in.HeightCM, in.WeightKG)
	add("bmi", tiered(bmi, 30, 4, 25, 2))

	switch {
	case in.RestingHeartRate > 100:
		add("resting_heart_rate", 2)
	case in.RestingHeartRate > 80:
		add("resting_heart_rate", 1)
	}

	add("blood_glucose", tiered(in.BloodGlucose, 126, 3, 100, 1))

	if in.WaistCircumference > WaistThreshold(in.Sex) {
		add("waist_circumference", 2)
	}

	add("triglycerides", tiered(in.Triglycerides, 200, 2, 150, 1))

	if in.Smoking {
		add("smoking", 4)
	}
	if in.Diabetes {
		add("diabetes", 5)
	}
	if in.FamilyHistory {
		add("family_history", 2)
	}

	switch in.Exercise {
	case types.ExerciseIntense:
		add("exercise", -2)
	case types.ExerciseModerate:
		add("exercise", -1)
	}
	return out
}

// tiered returns the points of the first (min, points) pair whose min v
// reaches. Pairs must be ordered from the highest min down.
func tiered(v float64, pairs ...float64) int {
	for i := 0; i+1 < len(pairs); i += 2 {
		if v >= pairs[i] {
			return int(pairs[i+1])
		}
	}
	return 0
}

func sum(factors []Factor) int {
	total := 0
	for _, f := range factors {
		total += f.Points
	}
	return clamp(total, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
