// services/email_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"khatam-tracker/utils"
)

// EmailClient delivers pledge manage links through the Resend REST API.
// Delivery is best-effort: callers log failures and never fail the request.
type EmailClient struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

func NewEmailClient(apiKey, from string) *EmailClient {
	return &EmailClient{
		APIKey:  apiKey,
		From:    from,
		BaseURL: "https://api.resend.com",
		Client:  utils.HTTPClient,
	}
}

// SendManageLink emails the private manage URL to a pledger. No-op when the
// client has no API key or the recipient is empty, so local dev works
// without Resend credentials.
func (c *EmailClient) SendManageLink(to, manageURL, khatamTitle string) error {
	if c.APIKey == "" || to == "" {
		return nil
	}

	payload := map[string]interface{}{
		"from":    c.From,
		"to":      []string{to},
		"subject": fmt.Sprintf("Your pledge – %s", khatamTitle),
		"html": fmt.Sprintf(`<div style="font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial;">
  <h2>Your pledge</h2>
  <p>Use the private link below to update your pledge before the deadline.</p>
  <p><a href="%s" target="_blank" rel="noreferrer">%s</a></p>
  <hr/>
  <small>Keep this link private.</small>
</div>`, manageURL, manageURL),
	}
	jsonData, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", c.BaseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
