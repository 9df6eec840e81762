package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	auth := &HMACAuth{Secret: "topsecret"}

	now := time.Unix(1_700_000_000, 0)
	headers := auth.HeadersAt("POST", "/api/bets", `{"stake":100}`, now.Unix())

	require.NotEmpty(t, headers[HeaderTimestamp])
	require.NotEmpty(t, headers[HeaderSignature])

	err := auth.Verify("POST", "/api/bets", `{"stake":100}`,
		headers[HeaderTimestamp], headers[HeaderSignature], now)
	require.NoError(t, err)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	auth := &HMACAuth{Secret: "topsecret"}

	now := time.Unix(1_700_000_000, 0)
	headers := auth.HeadersAt("POST", "/api/bets", `{"stake":100}`, now.Unix())

	err := auth.Verify("POST", "/api/bets", `{"stake":999}`,
		headers[HeaderTimestamp], headers[HeaderSignature], now)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := &HMACAuth{Secret: "topsecret"}
	verifier := &HMACAuth{Secret: "othersecret"}

	now := time.Unix(1_700_000_000, 0)
	headers := signer.HeadersAt("GET", "/api/rounds/1", "", now.Unix())

	err := verifier.Verify("GET", "/api/rounds/1", "",
		headers[HeaderTimestamp], headers[HeaderSignature], now)
	require.Error(t, err)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	auth := &HMACAuth{Secret: "topsecret"}

	signed := time.Unix(1_700_000_000, 0)
	headers := auth.HeadersAt("GET", "/api/rounds", "", signed.Unix())

	err := auth.Verify("GET", "/api/rounds", "",
		headers[HeaderTimestamp], headers[HeaderSignature], signed.Add(MaxClockSkew+time.Minute))
	require.Error(t, err)

	// Within the window is fine, in either direction.
	err = auth.Verify("GET", "/api/rounds", "",
		headers[HeaderTimestamp], headers[HeaderSignature], signed.Add(-MaxClockSkew/2))
	require.NoError(t, err)
}

func TestVerifyRejectsMalformedTimestamp(t *testing.T) {
	auth := &HMACAuth{Secret: "topsecret"}

	err := auth.Verify("GET", "/api/rounds", "", "not-a-number", "sig", time.Now())
	require.Error(t, err)
}

func TestStringRedactsSecret(t *testing.T) {
	auth := &HMACAuth{Secret: "supersecretvalue"}
	require.NotContains(t, auth.String(), "secretvalue")
}
