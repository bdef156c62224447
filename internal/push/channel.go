package push

import "errors"

var (
	// ErrNotConfigured indicates the channel is missing credentials
	ErrNotConfigured = errors.New("push channel not configured")
	// ErrSendFailed indicates the provider rejected the message
	ErrSendFailed = errors.New("push send failed")
	// ErrInvalidNumber indicates the destination number is unusable
	ErrInvalidNumber = errors.New("invalid phone number")
)

// Channel delivers out-of-band notifications to the user
type Channel interface {
	// IsConfigured reports whether credentials are present
	IsConfigured() bool
	// Send delivers a message; the bool mirrors whether the provider
	// accepted it
	Send(to, body string) (bool, error)
}
