package lipana

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
const SignatureHeader = "X-Lipana-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body under secret
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC of rawBody under
// secret. rawBody must be the exact bytes received, before any decoding.
// The comparison is constant time and byte exact.
func VerifySignature(rawBody []byte, signature string, secret []byte) bool {
	if signature == "" || len(secret) == 0 {
		return false
	}
	expected := Sign(rawBody, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
