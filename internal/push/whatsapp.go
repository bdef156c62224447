package push

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

var nonNumberChars = regexp.MustCompile(`[^\d+]`)

// WhatsAppChannel sends notifications through the Twilio WhatsApp API
type WhatsAppChannel struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewWhatsAppChannel creates a channel with the given Twilio credentials
func NewWhatsAppChannel(accountSID, authToken, fromNumber string) *WhatsAppChannel {
	return &WhatsAppChannel{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether all Twilio credentials are present
func (c *WhatsAppChannel) IsConfigured() bool {
	return strings.TrimSpace(c.accountSID) != "" &&
		strings.TrimSpace(c.authToken) != "" &&
		strings.TrimSpace(c.fromNumber) != ""
}

// Send delivers a WhatsApp message via the Twilio REST API
func (c *WhatsAppChannel) Send(to, body string) (bool, error) {
	if !c.IsConfigured() {
		return false, ErrNotConfigured
	}

	whatsappTo, err := FormatWhatsAppNumber(to)
	if err != nil {
		return false, err
	}
	whatsappFrom, err := FormatWhatsAppNumber(c.fromNumber)
	if err != nil {
		return false, err
	}

	form := url.Values{}
	form.Set("To", whatsappTo)
	form.Set("From", whatsappFrom)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, string(respBody))
	}

	var result struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &result); err == nil && result.SID != "" {
		log.Printf("[WhatsApp] Message sent, sid=%s", result.SID)
	}

	return true, nil
}

// FormatWhatsAppNumber normalizes a phone number into Twilio's
// whatsapp:+E164 form
func FormatWhatsAppNumber(phoneNumber string) (string, error) {
	trimmed := strings.TrimSpace(phoneNumber)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed, nil
	}

	cleaned := nonNumberChars.ReplaceAllString(trimmed, "")
	if cleaned == "" || cleaned == "+" {
		return "", ErrInvalidNumber
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	return "whatsapp:" + cleaned, nil
}
