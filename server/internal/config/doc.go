// Package config loads the server configuration from the `server:` section of
// config.yaml.
//
// Config fields:
//   - HTTPPort           port for the REST API, WebSocket hub and /metrics (default 8080)
//   - UIDir              optional directory with a pre-built dashboard bundle
//   - Storage.Backend    "memory" (default) or "sqlite"
//   - Storage.Path       SQLite database file
//   - Broadcast.Interval dashboard push interval (default 5s)
//   - Log.Level/Format   slog level and handler (default info/json)
//   - Alerts             assessment alert rules and webhook targets
//
// Load(path) applies defaults, unmarshals the YAML, applies ARTERYCHECK_*
// environment overrides (e.g. ARTERYCHECK_HTTP_PORT, ARTERYCHECK_STORAGE_PATH),
// then validates. Watch(path) reloads the file on change.
package config
