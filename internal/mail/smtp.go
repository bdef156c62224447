package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// loginAuth implements smtp.Auth for LOGIN authentication, which some
// providers require instead of PLAIN
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte(a.username), nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch strings.TrimSpace(string(fromServer)) {
		case "Username:":
			return []byte(a.username), nil
		case "Password:":
			return []byte(a.password), nil
		default:
			return []byte(a.password), nil
		}
	}
	return nil, nil
}

// Reply sends a reply threaded onto the original message via SMTP
func (m *IMAPMailbox) Reply(req ReplyRequest) (bool, error) {
	if !m.IsReady() || m.opts.SMTPHost == "" {
		return false, ErrNotConfigured
	}
	if req.To == "" {
		return false, fmt.Errorf("%w: missing recipient", ErrSendFailed)
	}

	subject := req.Subject
	if subject != "" && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	content := buildReplyContent(m.opts.Username, req.To, subject, req.InReplyTo, req.Body)

	if err := m.sendViaSMTP(req.To, content); err != nil {
		return false, err
	}
	return true, nil
}

// buildReplyContent assembles the raw RFC 5322 message
func buildReplyContent(from, to, subject, inReplyTo, body string) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	if inReplyTo != "" {
		buf.WriteString(fmt.Sprintf("In-Reply-To: %s\r\n", inReplyTo))
		buf.WriteString(fmt.Sprintf("References: %s\r\n", inReplyTo))
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

// sendViaSMTP delivers the raw content to a single recipient
func (m *IMAPMailbox) sendViaSMTP(recipient, content string) error {
	addr := fmt.Sprintf("%s:%d", m.opts.SMTPHost, m.opts.SMTPPort)

	// QQ Mail, 163 Mail, and other Chinese providers require LOGIN auth
	useLoginAuth := strings.Contains(m.opts.SMTPHost, "qq.com") ||
		strings.Contains(m.opts.SMTPHost, "163.com") ||
		strings.Contains(m.opts.SMTPHost, "126.com") ||
		strings.Contains(m.opts.SMTPHost, "aliyun.com")

	var client *smtp.Client
	if m.opts.UseSSL {
		tlsConfig := &tls.Config{ServerName: m.opts.SMTPHost}
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		client, err = smtp.NewClient(conn, m.opts.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
	} else {
		var err error
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: m.opts.SMTPHost}
			if err := client.StartTLS(tlsConfig); err != nil {
				// Continue without TLS if STARTTLS fails
			}
		}
	}
	defer client.Close()

	if err := m.authenticateSMTP(client, useLoginAuth); err != nil {
		return err
	}

	if err := client.Mail(m.opts.Username); err != nil {
		return fmt.Errorf("%w: MAIL FROM failed: %v", ErrSendFailed, err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("%w: RCPT TO failed for %s: %v", ErrSendFailed, recipient, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA failed: %v", ErrSendFailed, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return fmt.Errorf("%w: write failed: %v", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close failed: %v", ErrSendFailed, err)
	}

	// 发送已成功，某些服务器关闭连接时返回异常响应，忽略 Quit 的错误
	client.Quit()
	return nil
}

// authenticateSMTP tries the preferred mechanism and falls back to the
// other one on failure
func (m *IMAPMailbox) authenticateSMTP(client *smtp.Client, useLoginAuth bool) error {
	var auth smtp.Auth
	if useLoginAuth {
		auth = newLoginAuth(m.opts.Username, m.opts.Password)
	} else {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.SMTPHost)
	}

	if err := client.Auth(auth); err != nil {
		if useLoginAuth {
			auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.SMTPHost)
		} else {
			auth = newLoginAuth(m.opts.Username, m.opts.Password)
		}
		if err2 := client.Auth(auth); err2 != nil {
			return fmt.Errorf("%w: authentication failed: %v", ErrSendFailed, errors.Join(err, err2))
		}
	}
	return nil
}
