// Package middleware provides HTTP middleware for the relay server.
package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/chatbridge-io/linerelay/internal/line"
)

// maxWebhookBody caps buffered webhook bodies at 1MB; LINE batches are small.
const maxWebhookBody = 1 << 20

// LineSignature validates the X-Line-Signature header against the raw request
// body before any parsing. On reject the whole batch is refused with 401 and
// no detail about which part mismatched.
func LineSignature(channelSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				http.Error(w, `{"error":"unreadable body"}`, http.StatusBadRequest)
				return
			}
			r.Body.Close()

			if !line.ValidateSignature(channelSecret, body, r.Header.Get("X-Line-Signature")) {
				http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
