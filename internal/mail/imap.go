package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

// AuthType selects how the mailbox authenticates
type AuthType string

const (
	// AuthPassword uses traditional LOGIN authentication
	AuthPassword AuthType = "password"
	// AuthOAuth2 uses SASL XOAUTH2 with a refreshed access token
	AuthOAuth2 AuthType = "oauth2"
)

// Options configures an IMAPMailbox
type Options struct {
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	UseSSL   bool
	AuthType AuthType

	// OAuth2 settings, used when AuthType is AuthOAuth2
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
}

// IMAPMailbox implements Mailbox over IMAP for fetching and SMTP for
// replies
type IMAPMailbox struct {
	opts   Options
	tokens *googleTokenSource // nil for password auth
}

// NewIMAPMailbox creates a mailbox from the given options
func NewIMAPMailbox(opts Options) *IMAPMailbox {
	m := &IMAPMailbox{opts: opts}
	if opts.AuthType == AuthOAuth2 {
		m.tokens = newGoogleTokenSource(opts.GoogleClientID, opts.GoogleClientSecret, opts.GoogleRefreshToken)
	}
	return m
}

// IsReady reports whether connection settings are present
func (m *IMAPMailbox) IsReady() bool {
	if m.opts.IMAPHost == "" || m.opts.Username == "" {
		return false
	}
	if m.opts.AuthType == AuthOAuth2 {
		return m.tokens != nil && m.tokens.configured()
	}
	return m.opts.Password != ""
}

// FetchAfter returns messages received after the given time, newest
// capped at limit
func (m *IMAPMailbox) FetchAfter(since time.Time, limit int) ([]RawMessage, error) {
	if !m.IsReady() {
		return nil, ErrNotConfigured
	}

	c, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select INBOX: %v", ErrConnectionFailed, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	// IMAP SINCE has day granularity; receivedAt is filtered precisely below
	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrConnectionFailed, err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	if limit > 0 && len(seqNums) > limit {
		seqNums = seqNums[len(seqNums)-limit:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var fetched []RawMessage
	for msg := range messages {
		raw, err := parseIMAPMessage(msg, section)
		if err != nil {
			log.Printf("[Mailbox] Failed to parse message uid=%d: %v", msg.Uid, err)
			continue
		}
		if raw.ReceivedAt.After(since) {
			fetched = append(fetched, raw)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", ErrConnectionFailed, err)
	}

	return fetched, nil
}

// MarkRead flags a message as seen by its Message-Id header
func (m *IMAPMailbox) MarkRead(externalID string) error {
	if !m.IsReady() {
		return ErrNotConfigured
	}

	c, err := m.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return fmt.Errorf("%w: failed to select INBOX: %v", ErrConnectionFailed, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("Message-Id", externalID)
	seqNums, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("%w: search failed: %v", ErrConnectionFailed, err)
	}
	if len(seqNums) == 0 {
		return ErrMessageNotFound
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return c.Store(seqSet, item, []interface{}{imap.SeenFlag}, nil)
}

// connect dials the IMAP server and authenticates
func (m *IMAPMailbox) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", m.opts.IMAPHost, m.opts.IMAPPort)
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var c *client.Client
	if m.opts.UseSSL {
		tlsConfig := &tls.Config{ServerName: m.opts.IMAPHost}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}

	c.Timeout = 2 * time.Minute

	if m.opts.AuthType == AuthOAuth2 {
		token, err := m.tokens.accessToken()
		if err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: failed to refresh OAuth token: %v", ErrConnectionFailed, err)
		}
		if err := c.Authenticate(newXOAuth2Client(m.opts.Username, token)); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: XOAUTH2 authentication failed: %v", ErrConnectionFailed, err)
		}
	} else {
		if err := c.Login(m.opts.Username, m.opts.Password); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: login failed: %v", ErrConnectionFailed, err)
		}
	}

	return c, nil
}

// parseIMAPMessage converts a fetched IMAP message into a RawMessage
func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (RawMessage, error) {
	raw := RawMessage{}

	if msg.Envelope != nil {
		raw.ExternalID = msg.Envelope.MessageId
		raw.Subject = msg.Envelope.Subject
		raw.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			raw.SenderEmail = from.MailboxName + "@" + from.HostName
			raw.SenderName = from.PersonalName
		}
	}

	if raw.ExternalID == "" {
		raw.ExternalID = fmt.Sprintf("uid:%d", msg.Uid)
	}

	if body := msg.GetBody(section); body != nil {
		content, err := io.ReadAll(body)
		if err != nil {
			return raw, err
		}
		entity, err := message.Read(bytes.NewReader(content))
		if err == nil {
			raw.Body = extractTextBody(entity)
		}
	}

	return raw, nil
}

// extractTextBody walks a message entity and returns the first text/plain
// part, falling back to text/html
func extractTextBody(entity *message.Entity) string {
	var plain, html string
	collectTextParts(entity, &plain, &html)
	if plain != "" {
		return plain
	}
	return html
}

func collectTextParts(entity *message.Entity, plain, html *string) {
	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			collectTextParts(part, plain, html)
		}
		return
	}

	if mediaType == "text/plain" && *plain == "" {
		body, _ := io.ReadAll(entity.Body)
		*plain = string(body)
	} else if mediaType == "text/html" && *html == "" {
		body, _ := io.ReadAll(entity.Body)
		*html = string(body)
	}
}

// xoauth2Client implements the SASL XOAUTH2 mechanism
type xoauth2Client struct {
	username    string
	accessToken string
}

func newXOAuth2Client(username, accessToken string) *xoauth2Client {
	return &xoauth2Client{username: username, accessToken: accessToken}
}

// Start begins the XOAUTH2 authentication
func (c *xoauth2Client) Start() (mech string, ir []byte, err error) {
	// XOAUTH2 initial response: "user=" + user + "\x01auth=Bearer " + token + "\x01\x01"
	ir = []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.username, c.accessToken))
	return "XOAUTH2", ir, nil
}

// Next handles server challenges (XOAUTH2 has none)
func (c *xoauth2Client) Next(challenge []byte) (response []byte, err error) {
	return nil, nil
}
