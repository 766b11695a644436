package smtp

import "errors"

// Sentinel errors for SMTP transport operations.
var (
	// ErrConnectFailed indicates the session could not be established.
	ErrConnectFailed = errors.New("smtp: connection failed")

	// ErrTLSUnsupported indicates STARTTLS was requested but the server
	// does not advertise it.
	ErrTLSUnsupported = errors.New("smtp: server does not support STARTTLS")

	// ErrAuthFailed indicates the server rejected the credentials.
	ErrAuthFailed = errors.New("smtp: authentication failed")

	// ErrComposeFailed indicates the MIME message could not be built.
	ErrComposeFailed = errors.New("smtp: failed to compose message")

	// ErrSendFailed indicates a failure during the mail transaction.
	ErrSendFailed = errors.New("smtp: send failed")
)
