package mail

import (
	"errors"
	"time"
)

var (
	// ErrNotConfigured indicates the mailbox is missing connection settings
	ErrNotConfigured = errors.New("mailbox not configured")
	// ErrConnectionFailed indicates the IMAP connection failed
	ErrConnectionFailed = errors.New("IMAP connection failed")
	// ErrSendFailed indicates the SMTP send failed
	ErrSendFailed = errors.New("SMTP send failed")
	// ErrMessageNotFound indicates the referenced message was not found
	ErrMessageNotFound = errors.New("message not found")
)

// RawMessage is one inbound message as fetched from the mail source,
// before it becomes a stored record
type RawMessage struct {
	ExternalID  string
	Subject     string
	Body        string
	SenderEmail string
	SenderName  string
	ReceivedAt  time.Time
}

// ReplyRequest carries everything needed to send a threaded reply
type ReplyRequest struct {
	// InReplyTo is the Message-Id of the original message
	InReplyTo string
	To        string
	Subject   string
	Body      string
}

// Mailbox is the inbound-mail source the assistant polls and replies
// through
type Mailbox interface {
	// IsReady reports whether the source is configured and usable
	IsReady() bool
	// FetchAfter returns messages received after the given time, capped
	// at limit
	FetchAfter(since time.Time, limit int) ([]RawMessage, error)
	// MarkRead flags a message as seen on the source
	MarkRead(externalID string) error
	// Reply sends a reply threaded onto the original message; the bool
	// mirrors whether the send was accepted
	Reply(req ReplyRequest) (bool, error)
}
