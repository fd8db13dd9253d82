// Package api implements the HTTP REST API for arterycheck-server.
//
// New(opts) returns an http.Handler that serves:
//
//	GET  /api/v1/dashboard              headline counts, recent assessments, next appointments
//	GET  /api/v1/patients               all patients; ?q= name/email search, ?risk= level filter
//	POST /api/v1/patients               create a patient
//	GET  /api/v1/patients/{id}          one patient with its recent assessments; 404 if unknown
//	GET  /api/v1/assessments            all assessments, newest first
//	POST /api/v1/assessments            score and store an assessment
//	POST /api/v1/assessments/preview    score without storing
//	GET  /api/v1/appointments           all appointments, newest first
//	POST /api/v1/appointments           book an appointment
//	GET  /api/v1/appointments/upcoming  scheduled appointments still ahead, plus today's
//	GET  /api/v1/analytics              distributions, trends and risk by age
//	GET  /api/v1/education              education modules; ?category= filter
//	GET  /api/v1/education/{id}         one module; 404 if unknown
//	GET  /api/v1/alerts                 firing and recently resolved alerts
//
// All endpoints respond with Content-Type: application/json and return 405 for
// unsupported methods. Rejected input is a 400 with {"error": "..."}.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
