// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for outbound calls (Turnstile, Resend).
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
