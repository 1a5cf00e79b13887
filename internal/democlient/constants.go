package democlient

import "time"

// Defaults applied by Run for unset fields.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultSessions = 1
	DefaultTimeout  = 30 * time.Second
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
	logFilePermission   = 0o600
)

// tolerance for comparing server results with the local aggregation.
const tolerance = 1e-9
