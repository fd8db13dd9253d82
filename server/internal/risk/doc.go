// Package risk is the cardiovascular risk calculator.
//
// score.go provides the pure Assess(input) function. The score is a sum of
// independent threshold rules clamped to 0–100:
//
//	age                ≥65 +8   ≥55 +6   ≥45 +4   ≥35 +2
//	systolic BP        ≥160 +7  ≥140 +5  ≥130 +3  ≥120 +1
//	total/HDL ratio    ≥6 +6    ≥5 +4    ≥4 +2
//	BMI                ≥30 +4   ≥25 +2
//	resting HR         >100 +2  >80 +1
//	glucose            ≥126 +3  ≥100 +1
//	waist              >102 cm (>88 cm female) +2
//	triglycerides      ≥200 +2  ≥150 +1
//	smoking +4, diabetes +5, family history +2
//	exercise           intense −2, moderate −1
//
// Levels: Low <20, Moderate 20–49, High ≥50.
//
// recommend.go derives the advice text; validate.go checks form bounds.
package risk
