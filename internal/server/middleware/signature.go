package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/parlayd/parlayd/internal/crypto"
)

// maxSignedBody caps how much request body the verifier will buffer.
const maxSignedBody = 1 << 20

// Signature returns middleware that validates HMAC-signed requests using the
// X-Parlayd-Timestamp and X-Parlayd-Signature headers. If secret is empty,
// the middleware passes all requests through (disabled).
func Signature(secret string) func(http.Handler) http.Handler {
	auth := &crypto.HMACAuth{Secret: secret}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			ts := r.Header.Get(crypto.HeaderTimestamp)
			sig := r.Header.Get(crypto.HeaderSignature)
			if ts == "" || sig == "" {
				writeUnauthorized(w, "missing request signature")
				return
			}

			// The body participates in the signature, so buffer it and hand
			// the handler a fresh reader.
			var body []byte
			if r.Body != nil {
				b, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
				if err != nil {
					writeUnauthorized(w, "unreadable request body")
					return
				}
				if len(b) > maxSignedBody {
					writeUnauthorized(w, "request body too large to verify")
					return
				}
				body = b
				r.Body = io.NopCloser(bytes.NewReader(b))
			}

			if err := auth.Verify(r.Method, r.URL.Path, string(body), ts, sig, time.Now()); err != nil {
				writeUnauthorized(w, "invalid request signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
