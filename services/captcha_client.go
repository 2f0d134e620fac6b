// services/captcha_client.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"khatam-tracker/utils"
)

// CaptchaClient verifies Cloudflare Turnstile tokens server-side before any
// mutation happens.
type CaptchaClient struct {
	Secret    string
	VerifyURL string
	Client    *http.Client
}

func NewCaptchaClient(secret, verifyURL string) *CaptchaClient {
	return &CaptchaClient{
		Secret:    secret,
		VerifyURL: verifyURL,
		Client:    utils.HTTPClient,
	}
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns true only when the verification service accepts the token.
// An empty token fails immediately without a network call.
func (c *CaptchaClient) Verify(token, remoteIP string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequest("POST", c.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile siteverify returned %d: %s", resp.StatusCode, string(body))
	}

	var out turnstileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}
