package domain

import (
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ExpiryMargin is how early before its advertised expiration a
// subscription stops being used.
const ExpiryMargin = 5 * time.Minute

// Keys is the keying material the browser issues with a subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is the endpoint descriptor returned by the browser's
// pushManager.subscribe. ExpirationTime is epoch milliseconds, nil when
// the push service advertises none.
type PushSubscription struct {
	Endpoint       string `json:"endpoint"`
	Keys           Keys   `json:"keys"`
	ExpirationTime *int64 `json:"expirationTime"`
}

// ExpiresAt returns the advertised expiration and whether one is set.
func (s *PushSubscription) ExpiresAt() (time.Time, bool) {
	if s == nil || s.ExpirationTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.ExpirationTime), true
}

// Valid reports whether the subscription can still be used at now.
func (s *PushSubscription) Valid(now time.Time) bool {
	if s == nil || s.Endpoint == "" {
		return false
	}
	expiresAt, ok := s.ExpiresAt()
	if !ok {
		return true
	}
	return now.Before(expiresAt.Add(-ExpiryMargin))
}

// Complete reports whether endpoint and both keys are present.
func (s *PushSubscription) Complete() bool {
	return s != nil &&
		strings.TrimSpace(s.Endpoint) != "" &&
		s.Keys.P256dh != "" &&
		s.Keys.Auth != ""
}

// ToWebPush converts to the webpush-go wire type.
func (s *PushSubscription) ToWebPush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys: webpush.Keys{
			Auth:   s.Keys.Auth,
			P256dh: s.Keys.P256dh,
		},
	}
}

// NotificationRequest is one send: the target subscription and the text.
type NotificationRequest struct {
	Subscription *PushSubscription `json:"subscription"`
	Message      string            `json:"message"`
}

// NotificationPayload is what the service worker decrypts and displays.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// DefaultTitle is the notification title for every dispatch.
const DefaultTitle = "Push Message"
