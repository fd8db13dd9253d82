// Package types defines the record shapes shared by the store, the risk
// calculator and the HTTP API. These are plain values with no lifecycle beyond
// create and read; nothing here enforces uniqueness or cross-references.
package types
