package risk

import (
	"fmt"

	"github.com/arterycheck/arterycheck/pkg/types"
)

// Bounds mirror the min/max attributes of the calculator form.
var bounds = []struct {
	name     string
	get      func(types.AssessmentInput) float64
	min, max float64
}{
	{"age", func(in types.AssessmentInput) float64 { return float64(in.Age) }, 18, 100},
	{"systolic_bp", func(in types.AssessmentInput) float64 { return in.SystolicBP }, 80, 250},
	{"diastolic_bp", func(in types.AssessmentInput) float64 { return in.DiastolicBP }, 50, 150},
	{"total_cholesterol", func(in types.AssessmentInput) float64 { return in.TotalCholesterol }, 100, 500},
	{"hdl_cholesterol", func(in types.AssessmentInput) float64 { return in.HDLCholesterol }, 20, 100},
	{"ldl_cholesterol", func(in types.AssessmentInput) float64 { return in.LDLCholesterol }, 50, 300},
	{"triglycerides", func(in types.AssessmentInput) float64 { return in.Triglycerides }, 50, 500},
	{"height_cm", func(in types.AssessmentInput) float64 { return in.HeightCM }, 100, 250},
	{"weight_kg", func(in types.AssessmentInput) float64 { return in.WeightKG }, 30, 300},
	{"resting_heart_rate", func(in types.AssessmentInput) float64 { return in.RestingHeartRate }, 40, 120},
	{"blood_glucose", func(in types.AssessmentInput) float64 { return in.BloodGlucose }, 70, 300},
	{"waist_circumference", func(in types.AssessmentInput) float64 { return in.WaistCircumference }, 50, 200},
	{"oxygen_saturation", func(in types.AssessmentInput) float64 { return in.OxygenSaturation }, 85, 100},
}

// Validate reports the first field of in outside the calculator's accepted
// range, or an unknown exercise or sex value. Zero means the field was left
// empty and is always accepted.
func Validate(in types.AssessmentInput) error {
	for _, b := range bounds {
		v := b.get(in)
		if v != 0 && (v < b.min || v > b.max) {
			return fmt.Errorf("%s %g is out of range [%g, %g]", b.name, v, b.min, b.max)
		}
	}
	switch in.Exercise {
	case "", types.ExerciseNone, types.ExerciseLight, types.ExerciseModerate, types.ExerciseIntense:
	default:
		return fmt.Errorf("exercise %q unknown: want none|light|moderate|intense", in.Exercise)
	}
	switch in.Sex {
	case "", types.SexMale, types.SexFemale:
	default:
		return fmt.Errorf("sex %q unknown: want male|female", in.Sex)
	}
	return nil
}
