// Package metrics exposes record counts in the Prometheus text format.
//
// Families are built directly as client_model messages on each scrape, so
// the values always reflect the store and need no background updater:
//
//	arterycheck_patients                        gauge
//	arterycheck_patients_by_risk{level}         gauge
//	arterycheck_assessments_total               counter
//	arterycheck_assessment_risk_score_average   gauge
//	arterycheck_appointments_upcoming           gauge
//	arterycheck_alerts_firing                   gauge
package metrics
