package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("payment: invalid webhook signature")

const signaturePrefix = "sha256="

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the raw, unparsed request body. The comparison is
// constant time and the error never includes the expected value.
func Verify(body []byte, signature string, secret []byte) error {
	if len(secret) == 0 {
		return ErrUnauthorized
	}
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, signaturePrefix)
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return ErrUnauthorized
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrUnauthorized
	}
	return nil
}
