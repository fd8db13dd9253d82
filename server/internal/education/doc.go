// Package education serves the static health education catalog.
// Modules are embedded as YAML and parsed once at startup.
package education
