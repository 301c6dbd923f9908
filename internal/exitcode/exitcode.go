// Package exitcode defines exit codes for the server process.
package exitcode

const (
	// Success indicates a clean shutdown.
	Success = 0

	// ConfigError indicates bad flags or configuration.
	ConfigError = 1

	// CredentialsError indicates a missing or invalid credential file.
	CredentialsError = 2

	// BackendError indicates the store could not be reached or the server failed.
	BackendError = 3
)
