package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidMarketInfo    ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeInvalidVersion       ErrorCode = 104

	// Strategy errors (400-499)
	ErrCodeStrategyValidation     ErrorCode = 400
	ErrCodeStrategyNotInitialized ErrorCode = 401
	ErrCodeStrategyConfigError    ErrorCode = 402
	ErrCodeUnsupportedStrategy    ErrorCode = 403
	ErrCodeVersionMismatch        ErrorCode = 404
	ErrCodeStateImport            ErrorCode = 405
	ErrCodeStrategyAlreadyExists  ErrorCode = 406

	// Storage errors (500-599)
	ErrCodeStateNotFound    ErrorCode = 500
	ErrCodeStorageFailed    ErrorCode = 501
	ErrCodeStateEncoding    ErrorCode = 502
	ErrCodeUnsupportedStore ErrorCode = 503

	// Simulation errors (600-699)
	ErrCodeSimulationFailed ErrorCode = 600
	ErrCodeNoMarketData     ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeMarketDataParseFailed ErrorCode = 700
)
