// Package line implements the LINE platform boundary: webhook signature
// validation and reply delivery.
package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature reports whether the X-Line-Signature header matches the
// HMAC-SHA256 of the raw request body under the channel secret. The
// comparison is constant-time and malformed input is a plain reject, never
// an error.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}

	supplied, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)

	return hmac.Equal(supplied, mac.Sum(nil))
}
