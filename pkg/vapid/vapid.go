// Package vapid holds the application server identity used to authenticate
// Web Push deliveries (RFC 8292).
package vapid

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"math/big"
	"net/url"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// CodeConfiguration marks missing or inconsistent VAPID material.
const CodeConfiguration = "configuration_error"

// MaxAssertionLifetime is the longest expiry a push service accepts.
const MaxAssertionLifetime = 24 * time.Hour

// Identity is the VAPID identity of this deployment. It is loaded once at
// startup and shared read-only by every dispatch.
type Identity struct {
	ContactURI string
	PublicKey  string
	PrivateKey string
}

// NewIdentity builds an Identity, turning a bare e-mail address into a
// mailto: contact URI. Keys are re-encoded as unpadded url-safe base64,
// the only form webpush-go decodes.
func NewIdentity(contact, publicKey, privateKey string) Identity {
	contact = strings.TrimSpace(contact)
	if contact != "" && !strings.HasPrefix(contact, "mailto:") && !strings.HasPrefix(contact, "https:") {
		contact = "mailto:" + contact
	}
	return Identity{
		ContactURI: contact,
		PublicKey:  normalizeKey(publicKey),
		PrivateKey: normalizeKey(privateKey),
	}
}

// normalizeKey rewrites standard or padded base64. Undecodable input is
// left as is so Verify can report it.
func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "+/=") {
		return s
	}
	raw, err := DecodeKey(s)
	if err != nil {
		return s
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Complete reports a configuration error naming every missing value.
func (id Identity) Complete() error {
	var missing []string
	if id.PublicKey == "" {
		missing = append(missing, "WEB_PUSH_PUBLIC_KEY")
	}
	if id.ContactURI == "" {
		missing = append(missing, "WEB_PUSH_EMAIL")
	}
	if id.PrivateKey == "" {
		missing = append(missing, "WEB_PUSH_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return oops.Code(CodeConfiguration).
			With("missing", missing).
			Errorf("VAPID configuration incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Subscriber returns the contact in the form webpush-go expects: it adds
// the mailto: scheme itself.
func (id Identity) Subscriber() string {
	return strings.TrimPrefix(id.ContactURI, "mailto:")
}

// ApplicationServerKey returns the raw public key browsers must pass to
// pushManager.subscribe.
func (id Identity) ApplicationServerKey() ([]byte, error) {
	key, err := DecodeKey(id.PublicKey)
	if err != nil {
		return nil, oops.Code(CodeConfiguration).Wrapf(err, "decode VAPID public key")
	}
	if len(key) != 65 || key[0] != 0x04 {
		return nil, oops.Code(CodeConfiguration).
			With("length", len(key)).
			Errorf("VAPID public key is not an uncompressed P-256 point")
	}
	return key, nil
}

// Verify checks that the identity is complete and that the public key is
// the one derived from the private key. A probe assertion is then signed
// and verified so a mismatched pair fails at startup instead of at the
// push service.
func (id Identity) Verify() error {
	if err := id.Complete(); err != nil {
		return err
	}
	key, err := id.signingKey()
	if err != nil {
		return err
	}

	token, err := id.sign("https://vapid.invalid", time.Now().Add(time.Minute), key)
	if err != nil {
		return err
	}
	if _, err := id.ParseAssertion(token); err != nil {
		return oops.Code(CodeConfiguration).Wrapf(err, "VAPID probe assertion rejected")
	}
	return nil
}

// Assertion signs a VAPID JWT for the given audience.
func (id Identity) Assertion(audience string, expiresAt time.Time) (string, error) {
	key, err := id.signingKey()
	if err != nil {
		return "", err
	}
	return id.sign(audience, expiresAt, key)
}

// ParseAssertion verifies a VAPID JWT against this identity's public key.
func (id Identity) ParseAssertion(token string) (*jwt.RegisteredClaims, error) {
	pub, err := id.ApplicationServerKey()
	if err != nil {
		return nil, err
	}
	verifyKey := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(pub[1:33]),
		Y:     new(big.Int).SetBytes(pub[33:65]),
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return verifyKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (id Identity) sign(audience string, expiresAt time.Time, key *ecdsa.PrivateKey) (string, error) {
	if limit := time.Now().Add(MaxAssertionLifetime); expiresAt.After(limit) {
		expiresAt = limit
	}
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		Subject:   id.ContactURI,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		return "", oops.Code(CodeConfiguration).Wrapf(err, "sign VAPID assertion")
	}
	return token, nil
}

func (id Identity) signingKey() (*ecdsa.PrivateKey, error) {
	pub, err := id.ApplicationServerKey()
	if err != nil {
		return nil, err
	}
	raw, err := DecodeKey(id.PrivateKey)
	if err != nil {
		return nil, oops.Code(CodeConfiguration).Wrapf(err, "decode VAPID private key")
	}

	if len(raw) < 32 {
		raw = append(make([]byte, 32-len(raw)), raw...)
	}
	priv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, oops.Code(CodeConfiguration).Wrapf(err, "parse VAPID private key")
	}
	if !bytes.Equal(priv.PublicKey().Bytes(), pub) {
		return nil, oops.Code(CodeConfiguration).Errorf("VAPID public key does not belong to the private key")
	}

	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(pub[1:33]),
			Y:     new(big.Int).SetBytes(pub[33:65]),
		},
		D: new(big.Int).SetBytes(raw),
	}, nil
}

// Audience returns the origin of a push endpoint, which is the "aud"
// claim push services expect.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", oops.Errorf("endpoint %q has no origin", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

// DecodeKey decodes a key in any base64 flavour browsers and key
// generators emit (url-safe or standard, padded or not).
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

// GenerateKeys creates a fresh VAPID key pair for the given contact.
func GenerateKeys(contact string) (Identity, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return Identity{}, oops.Wrapf(err, "generate VAPID keys")
	}
	return NewIdentity(contact, publicKey, privateKey), nil
}
