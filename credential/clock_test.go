package credential_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/credential"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return testNow }

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func timePtr(t time.Time) *time.Time { return &t }

func TestIsExpiredExplicitExpiry(t *testing.T) {
	clock := credential.NewClock(credential.WithNowFunc(nowFunc))

	tests := []struct {
		name      string
		expiresAt time.Time
		expired   bool
	}{
		{name: "inside the safety margin", expiresAt: testNow.Add(30 * time.Second), expired: true},
		{name: "outside the safety margin", expiresAt: testNow.Add(90 * time.Second), expired: false},
		{name: "already past", expiresAt: testNow.Add(-time.Minute), expired: true},
		{name: "exactly at margin boundary", expiresAt: testNow.Add(60 * time.Second), expired: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cred := credential.Credential{
				AccessToken: "opaque",
				ExpiresAt:   timePtr(tc.expiresAt),
			}
			require.Equal(t, tc.expired, clock.IsExpired(cred))
		})
	}
}

func TestIsExpiredDecodedClaim(t *testing.T) {
	clock := credential.NewClock(credential.WithNowFunc(nowFunc))

	valid := signedToken(t, jwt.MapClaims{"exp": testNow.Add(time.Hour).Unix()})
	require.False(t, clock.IsExpired(credential.Credential{AccessToken: valid}))

	stale := signedToken(t, jwt.MapClaims{"exp": testNow.Add(30 * time.Second).Unix()})
	require.True(t, clock.IsExpired(credential.Credential{AccessToken: stale}))
}

func TestExplicitExpiryWinsOverClaim(t *testing.T) {
	clock := credential.NewClock(credential.WithNowFunc(nowFunc))

	// Token claim says valid for an hour, explicit expiry says already gone.
	token := signedToken(t, jwt.MapClaims{"exp": testNow.Add(time.Hour).Unix()})
	cred := credential.Credential{
		AccessToken: token,
		ExpiresAt:   timePtr(testNow.Add(-time.Minute)),
	}
	require.True(t, clock.IsExpired(cred))
}

func TestIsExpiredFailsClosed(t *testing.T) {
	clock := credential.NewClock(credential.WithNowFunc(nowFunc))

	garbagePayload := "eyJhbGciOiJIUzI1NiJ9." +
		base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig"

	tests := []struct {
		name        string
		accessToken string
	}{
		{name: "empty credential", accessToken: ""},
		{name: "not a jwt", accessToken: "just-an-opaque-string"},
		{name: "two segments", accessToken: "abc.def"},
		{name: "payload not valid json", accessToken: garbagePayload},
		{name: "missing exp claim", accessToken: signedToken(t, jwt.MapClaims{"sub": "user-1"})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, clock.IsExpired(credential.Credential{AccessToken: tc.accessToken}))
		})
	}
}

func TestTimeUntilExpiry(t *testing.T) {
	clock := credential.NewClock(credential.WithNowFunc(nowFunc))

	cred := credential.Credential{
		AccessToken: "opaque",
		ExpiresAt:   timePtr(testNow.Add(time.Hour)),
	}
	remaining, ok := clock.TimeUntilExpiry(cred)
	require.True(t, ok)
	require.Equal(t, time.Hour, remaining)

	_, ok = clock.TimeUntilExpiry(credential.Credential{AccessToken: "opaque"})
	require.False(t, ok)
}

func TestClone(t *testing.T) {
	expiry := testNow.Add(time.Hour)
	cred := credential.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: &expiry}

	clone := cred.Clone()
	require.Equal(t, cred, clone)

	*clone.ExpiresAt = clone.ExpiresAt.Add(time.Hour)
	require.Equal(t, expiry, *cred.ExpiresAt)
}

func TestEmpty(t *testing.T) {
	require.True(t, credential.Credential{}.Empty())
	require.False(t, credential.Credential{AccessToken: "a"}.Empty())
	require.False(t, credential.Credential{RefreshToken: "r"}.Empty())
}
