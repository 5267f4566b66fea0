package leadgen

import "errors"

// Fatal errors returned from JobManager.Start, never reached in-flight.
var (
	ErrJobAlreadyRunning = errors.New("leadgen: job already running for tenant")
	ErrNoQueries         = errors.New("leadgen: analyzer produced no queries for config")
	ErrUnknownUseCase    = errors.New("leadgen: unknown analyzer use case")
)
