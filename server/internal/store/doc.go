// Package store keeps the patient, assessment and appointment lists.
// Memory is the default, thread-safe in-memory store; SQLite persists the same
// lists to a single local database file. Both return lists in insertion order
// and enforce no cross-record integrity.
package store
