// Package crypto provides HMAC request signing and encrypted secret storage
// for the parlayd API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Header names for HMAC-signed API requests.
const (
	HeaderTimestamp = "X-Parlayd-Timestamp"
	HeaderSignature = "X-Parlayd-Signature"
)

// MaxClockSkew is how far a signed request's timestamp may drift from server
// time before verification fails.
const MaxClockSkew = 5 * time.Minute

// HMACAuth signs and verifies API requests with a shared secret. The
// signature is HMAC-SHA256(secret, timestamp+method+path+body) encoded as
// base64.
type HMACAuth struct {
	Secret string
}

// Headers returns the HTTP headers for a signed request.
//
// Returned header keys:
//   - X-Parlayd-Timestamp
//   - X-Parlayd-Signature
func (h *HMACAuth) Headers(method, path, body string) map[string]string {
	return h.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (h *HMACAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(h.Secret), message)

	return map[string]string{
		HeaderTimestamp: ts,
		HeaderSignature: sig,
	}
}

// Verify checks the signature of an incoming request against the shared
// secret. The timestamp must parse as Unix seconds and fall within
// MaxClockSkew of now; the comparison itself is constant-time.
func (h *HMACAuth) Verify(method, path, body, timestamp, signature string, now time.Time) error {
	unixTS, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("crypto: malformed timestamp %q", timestamp)
	}

	skew := now.Sub(time.Unix(unixTS, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxClockSkew {
		return errors.New("crypto: timestamp outside allowed window")
	}

	message := timestamp + method + path + body
	want := hmacSHA256Base64([]byte(h.Secret), message)

	if subtle.ConstantTimeCompare([]byte(signature), []byte(want)) != 1 {
		return errors.New("crypto: signature mismatch")
	}
	return nil
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	s := h.Secret
	if len(s) <= 4 {
		return "HMACAuth{secret=****}"
	}
	return fmt.Sprintf("HMACAuth{secret=%s****}", s[:4])
}
