package csv2hyper

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Conversion/publish completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or parameters
	ExitConnectionError  = 11 // Engine could not be started or reached
	ExitApprovalDenied   = 12 // User denied replacing an existing extract
	ExitLoadFailed       = 13 // COPY rejected by the engine
	ExitUnsupportedDType = 14 // Column dtype has no Hyper type
	ExitPublishFailed    = 15 // Sign-in, project lookup or upload failed
)

const (
	// DefaultTableName is the table name Tableau expects inside a single-table extract.
	DefaultTableName = "Extract"

	// DefaultDTypeVersion selects the dtype system with nullable string/boolean dtypes.
	DefaultDTypeVersion = "1.0.0"

	// DefaultInferRows is the number of data rows sampled for dtype inference.
	DefaultInferRows = 10000

	// DefaultTimeout bounds a whole convert or publish run.
	DefaultTimeout = 30 * time.Minute

	// DefaultEngineStartTimeout bounds the wait for a spawned hyperd to accept connections.
	DefaultEngineStartTimeout = 30 * time.Second

	// DefaultEngineShutdownTimeout is how long hyperd gets to exit after an interrupt.
	DefaultEngineShutdownTimeout = 10 * time.Second

	// DefaultRetryInitialDelay is the first delay while waiting for the engine to listen.
	DefaultRetryInitialDelay = 50 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between engine readiness checks.
	DefaultRetryMaxDelay = 2 * time.Second

	// DefaultRetryMaxAttempts is the number of readiness checks after the first attempt.
	DefaultRetryMaxAttempts = 20

	// DefaultForceApprovalCountdown is the countdown before a forced extract replacement.
	DefaultForceApprovalCountdown = 3 * time.Second

	// EngineUser is the user hyperd is initialized with and clients must connect as.
	EngineUser = "tableau_internal_user"

	// DefaultAPIVersion is used to query serverinfo when no REST API version is configured.
	DefaultAPIVersion = "2.4"

	// UploadChunkSize is both the single-request upload limit and the chunk size
	// for chunked datasource uploads.
	UploadChunkSize = 64 * 1024 * 1024

	// ProjectPageSize is the page size used while searching projects by name.
	ProjectPageSize = 100
)

// DefaultEngineParameters limits hyperd log growth.
func DefaultEngineParameters() map[string]string {
	return map[string]string{
		"log_file_max_count":  "2",
		"log_file_size_limit": "100M",
	}
}
