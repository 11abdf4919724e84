package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrUnauthorized           = "Unauthorized"

	// Dialog errors
	ErrDialogNotFound = "Dialog not found or already closed"
	ErrDialogBusy     = "A page is already being created"

	// Page errors
	ErrPageNotFound    = "Page not found"
	ErrInvalidJSONBody = "Invalid JSON body"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"
)
