package risk

import "github.com/arterycheck/arterycheck/pkg/types"

// Recommendation texts shown under an assessment result.
const (
	RecWeightCritical     = "Weight management is critical - aim for 5-10% weight loss to reduce cardiovascular risk"
	RecWeightLoss         = "Consider weight loss through diet and exercise to achieve BMI < 25"
	RecWeightMaintain     = "Maintain healthy weight through balanced nutrition"
	RecBloodPressure      = "Consider lifestyle changes to lower blood pressure (reduce sodium, increase exercise)"
	RecCholesterol        = "Adopt a heart-healthy diet (Mediterranean diet, reduce saturated fats)"
	RecSmoking            = "Quit smoking immediately - seek support programs"
	RecDiabetes           = "Maintain strict blood glucose control"
	RecActivity           = "Increase physical activity to 30-45 minutes daily"
	RecHeartRateHigh      = "Elevated resting heart rate detected - consult with healthcare provider"
	RecHeartRateElevated  = "Consider cardiovascular fitness training to lower resting heart rate"
	RecGlucoseDiabetic    = "Blood glucose in diabetic range - immediate medical consultation needed"
	RecGlucosePrediabetic = "Pre-diabetic range detected - focus on diet and exercise to prevent progression"
	RecWaist              = "Elevated waist circumference indicates central obesity - prioritize weight loss"
	RecTriglyceridesHigh  = "High triglycerides detected - reduce refined carbs and sugars, increase omega-3 intake"
	RecTriglyceridesBord  = "Borderline high triglycerides - monitor diet and consider lifestyle changes"
	RecCardiologist       = "Consult with a cardiologist for comprehensive evaluation"
	RecMedication         = "Consider medication therapy (statins, antihypertensives)"
	RecMonitor            = "Monitor risk factors every 6 months"
	RecMaintainHabits     = "Maintain healthy lifestyle habits"
	RecContinue           = "Continue current healthy lifestyle"
	RecAnnualReassess     = "Annual cardiovascular risk reassessment recommended"
)

// Recommendations returns the advice lines for in at the given risk level.
// Metric-driven lines come first, in a fixed order; the last two lines always
// depend on level.
func Recommendations(in types.AssessmentInput, level string) []string {
	var recs []string

	// A missing height or weight gives BMI 0, which falls in the underweight
	// branch like any other low value.
	switch bmi := BMI(in.HeightCM, in.WeightKG); {
	case bmi >= 30:
		recs = append(recs, RecWeightCritical)
	case bmi >= 25:
		recs = append(recs, RecWeightLoss)
	case bmi < 18.5:
		recs = append(recs, RecWeightMaintain)
	}

	if in.SystolicBP >= 130 {
		recs = append(recs, RecBloodPressure)
	}
	if in.TotalCholesterol > 200 {
		recs = append(recs, RecCholesterol)
	}
	if in.Smoking {
		recs = append(recs, RecSmoking)
	}
	if in.Diabetes {
		recs = append(recs, RecDiabetes)
	}
	if in.Exercise == types.ExerciseNone || in.Exercise == types.ExerciseLight || in.Exercise == "" {
		recs = append(recs, RecActivity)
	}

	switch {
	case in.RestingHeartRate > 100:
		recs = append(recs, RecHeartRateHigh)
	case in.RestingHeartRate > 80:
		recs = append(recs, RecHeartRateElevated)
	}

	switch {
	case in.BloodGlucose >= 126:
		recs = append(recs, RecGlucoseDiabetic)
	case in.BloodGlucose >= 100:
		recs = append(recs, RecGlucosePrediabetic)
	}

	if in.WaistCircumference > WaistThreshold(in.Sex) {
		recs = append(recs, RecWaist)
	}

	switch {
	case in.Triglycerides >= 200:
		recs = append(recs, RecTriglyceridesHigh)
	case in.Triglycerides >= 150:
		recs = append(recs, RecTriglyceridesBord)
	}

	switch level {
	case types.RiskHigh:
		recs = append(recs, RecCardiologist, RecMedication)
	case types.RiskModerate:
		recs = append(recs, RecMonitor, RecMaintainHabits)
	default:
		recs = append(recs, RecContinue, RecAnnualReassess)
	}
	return recs
}
