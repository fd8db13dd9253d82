// Package intake validates form input and records it: patients, risk
// assessments and appointments. It is the only writer to the store, so the
// derived patient fields (risk level, last assessment, next appointment) are
// kept current here.
package intake
