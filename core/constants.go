package core

const (
	// RequestBufSize bounds request accumulation; a request that fills it
	// without a terminator is rejected as oversized.
	RequestBufSize = 4096

	// ResponseBufSize is the per-slot response buffer, reused for headers
	// and file chunks. It bounds per-connection memory independent of the
	// served-file size.
	ResponseBufSize = 32768

	// ListenBacklog matches a typical somaxconn.
	ListenBacklog = 10000

	// PollTimeoutMs bounds every readiness wait so the loop can observe
	// the stop flag and run the optional idle sweep.
	PollTimeoutMs = 50

	// DefaultMaxConnections is the reactor pool capacity.
	DefaultMaxConnections = 50000
)
