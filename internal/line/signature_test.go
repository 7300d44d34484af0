package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature_Accepts(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	if !ValidateSignature(secret, body, sign(secret, body)) {
		t.Error("expected valid signature to be accepted")
	}
}

func TestValidateSignature_Deterministic(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[{"type":"message"}]}`)
	sig := sign(secret, body)

	for i := 0; i < 3; i++ {
		if !ValidateSignature(secret, body, sig) {
			t.Fatalf("expected accept on attempt %d", i)
		}
	}
}

func TestValidateSignature_TamperedBodyFlipsDecision(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[{"type":"message","message":{"text":"hello"}}]}`)
	sig := sign(secret, body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)/2] ^= 0x01

	if ValidateSignature(secret, tampered, sig) {
		t.Error("expected tampered body to be rejected")
	}
}

func TestValidateSignature_Rejects(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	tests := []struct {
		name      string
		secret    string
		signature string
	}{
		{"empty header", secret, ""},
		{"malformed base64", secret, "not-base64!!!"},
		{"wrong secret", "other-secret", sign(secret, body)},
		{"truncated signature", secret, sign(secret, body)[:10]},
		{"empty secret", "", sign(secret, body)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ValidateSignature(tt.secret, body, tt.signature) {
				t.Error("expected reject")
			}
		})
	}
}
