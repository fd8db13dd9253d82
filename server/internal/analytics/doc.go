// Package analytics derives the dashboard and analytics read models from the
// stored patient, assessment and appointment lists.
//
// Every function is pure: it takes the lists and a reference time and returns
// plain values ready for JSON encoding. Charts are left to the client.
package analytics
