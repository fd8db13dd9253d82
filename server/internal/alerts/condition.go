package alerts

import (
	"strconv"
	"strings"

	"github.com/arterycheck/arterycheck/pkg/types"
)

// evalCondition evaluates a rule condition string against an assessment.
//
// Supported expressions (field operator value):
//
//	risk_score >= 40
//	risk_level == high
//	systolic_bp > 180
//	diastolic_bp > 110
//	bmi >= 35
//	blood_glucose >= 200
//	resting_heart_rate > 120
//	oxygen_saturation < 92
//	triglycerides >= 500
//	waist > 120
//
// Numeric fields left at zero on the form are treated as missing and never
// fire, so "oxygen_saturation < 92" does not trip on an empty SpO2 field.
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, a types.Assessment) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "risk_level" {
		switch op {
		case "==":
			return a.RiskLevel == rhs, float64(a.RiskScore)
		case "!=":
			return a.RiskLevel != rhs, float64(a.RiskScore)
		}
		return false, 0
	}

	v, ok := numericField(field, a)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the assessment. ok is false
// for unknown fields and for optional metrics that were not entered.
func numericField(field string, a types.Assessment) (float64, bool) {
	in := a.Input
	var v float64
	switch field {
	case "risk_score":
		return float64(a.RiskScore), true
	case "bmi":
		v = a.BMI
	case "systolic_bp":
		v = in.SystolicBP
	case "diastolic_bp":
		v = in.DiastolicBP
	case "blood_glucose":
		v = in.BloodGlucose
	case "resting_heart_rate":
		v = in.RestingHeartRate
	case "oxygen_saturation":
		v = in.OxygenSaturation
	case "triglycerides":
		v = in.Triglycerides
	case "waist":
		v = in.WaistCircumference
	default:
		return 0, false
	}
	return v, v != 0
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
