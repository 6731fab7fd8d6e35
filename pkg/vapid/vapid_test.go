package vapid

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity_AddsMailtoScheme(t *testing.T) {
	id := NewIdentity("ops@example.com", "pub", "priv")
	assert.Equal(t, "mailto:ops@example.com", id.ContactURI)
	assert.Equal(t, "ops@example.com", id.Subscriber())

	id = NewIdentity("mailto:ops@example.com", "pub", "priv")
	assert.Equal(t, "mailto:ops@example.com", id.ContactURI)
}

func TestNewIdentity_NormalizesStandardBase64(t *testing.T) {
	generated, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)
	pub, err := DecodeKey(generated.PublicKey)
	require.NoError(t, err)
	priv, err := DecodeKey(generated.PrivateKey)
	require.NoError(t, err)

	id := NewIdentity("ops@example.com", base64.StdEncoding.EncodeToString(pub), base64.StdEncoding.EncodeToString(priv))
	assert.Equal(t, generated.PublicKey, id.PublicKey)
	assert.Equal(t, generated.PrivateKey, id.PrivateKey)
	assert.NotContains(t, id.PublicKey+id.PrivateKey, "=")
	require.NoError(t, id.Verify())

	// Undecodable keys stay untouched and still fail verification.
	broken := NewIdentity("ops@example.com", "not+base64!", generated.PrivateKey)
	assert.Equal(t, "not+base64!", broken.PublicKey)
	assert.Error(t, broken.Verify())
}

func TestComplete_ListsMissingValues(t *testing.T) {
	err := NewIdentity("", "pub", "").Complete()
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, CodeConfiguration, oopsErr.Code())
	assert.Contains(t, err.Error(), "WEB_PUSH_EMAIL")
	assert.Contains(t, err.Error(), "WEB_PUSH_PRIVATE_KEY")
	assert.NotContains(t, err.Error(), "WEB_PUSH_PUBLIC_KEY")
}

func TestVerify_GeneratedPair(t *testing.T) {
	id, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)
	require.NoError(t, id.Verify())

	key, err := id.ApplicationServerKey()
	require.NoError(t, err)
	assert.Len(t, key, 65)
}

func TestVerify_RejectsMismatchedPair(t *testing.T) {
	a, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)
	b, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)

	mixed := NewIdentity(a.ContactURI, a.PublicKey, b.PrivateKey)
	err = mixed.Verify()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, CodeConfiguration, oopsErr.Code())
}

func TestAssertion_RoundTrip(t *testing.T) {
	id, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)

	token, err := id.Assertion("https://push.example.net", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := id.ParseAssertion(token)
	require.NoError(t, err)
	assert.Equal(t, "mailto:ops@example.com", claims.Subject)
	assert.Contains(t, []string(claims.Audience), "https://push.example.net")
}

func TestAssertion_CapsLifetime(t *testing.T) {
	id, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)

	token, err := id.Assertion("https://push.example.net", time.Now().Add(72*time.Hour))
	require.NoError(t, err)

	claims, err := id.ParseAssertion(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(MaxAssertionLifetime), claims.ExpiresAt.Time, time.Minute)
}

func TestParseAssertion_OtherIdentityFails(t *testing.T) {
	a, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)
	b, err := GenerateKeys("ops@example.com")
	require.NoError(t, err)

	token, err := a.Assertion("https://push.example.net", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = b.ParseAssertion(token)
	assert.Error(t, err)
}

func TestAudience(t *testing.T) {
	aud, err := Audience("https://fcm.googleapis.com/fcm/send/abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://fcm.googleapis.com", aud)

	_, err = Audience("not a url")
	assert.Error(t, err)
}

func TestDecodeKey_AcceptsStandardPadded(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x01, 0x02, 0x03}
	got, err := DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodeKey(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
