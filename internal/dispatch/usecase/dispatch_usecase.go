package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"pushboard-backend/internal/dispatch/domain"
	"pushboard-backend/internal/dispatch/repository"
	pushdomain "pushboard-backend/internal/push/domain"
	"pushboard-backend/pkg/metrics"
	"pushboard-backend/pkg/vapid"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/samber/oops"
)

// maxReplyBody caps how much of a push service reply is passed through.
const maxReplyBody = 64 << 10

// Options tune every outgoing push message.
type Options struct {
	TTL     time.Duration
	Urgency string
	Topic   string
	Timeout time.Duration
	// HTTPClient reaches push services. Defaults to an http.Client with Timeout.
	HTTPClient webpush.HTTPClient
}

// DispatchUsecase defines the interface for push dispatch operations
type DispatchUsecase interface {
	Deliver(ctx context.Context, sub *pushdomain.PushSubscription, message string) (*domain.Ack, error)
	PublicKey() string
	RecentDeliveries(limit int) ([]domain.DeliveryRecord, error)
}

// dispatchUsecase implements DispatchUsecase
type dispatchUsecase struct {
	identity    vapid.Identity
	options     Options
	httpClient  webpush.HTTPClient
	deliveryLog repository.DeliveryLogRepository
	metrics     *metrics.Metrics
}

// NewDispatchUsecase creates a new instance of dispatchUsecase
func NewDispatchUsecase(identity vapid.Identity, options Options, deliveryLog repository.DeliveryLogRepository, m *metrics.Metrics) DispatchUsecase {
	if options.TTL <= 0 {
		options.TTL = 24 * time.Hour
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}
	if deliveryLog == nil {
		deliveryLog = repository.NewMemoryDeliveryLog(0)
	}
	return &dispatchUsecase{
		identity:    vapid.NewIdentity(identity.ContactURI, identity.PublicKey, identity.PrivateKey),
		options:     options,
		httpClient:  httpClient,
		deliveryLog: deliveryLog,
		metrics:     m,
	}
}

func (u *dispatchUsecase) PublicKey() string {
	return u.identity.PublicKey
}

func (u *dispatchUsecase) RecentDeliveries(limit int) ([]domain.DeliveryRecord, error) {
	return u.deliveryLog.Recent(limit)
}

// Deliver encrypts and sends one notification. A 2xx reply becomes an Ack,
// any other reply a *domain.PushServiceError, both carrying the push
// service's status, headers and body unchanged.
func (u *dispatchUsecase) Deliver(ctx context.Context, sub *pushdomain.PushSubscription, message string) (*domain.Ack, error) {
	if err := u.identity.Complete(); err != nil {
		return nil, err
	}
	if !sub.Complete() {
		return nil, oops.Code(domain.CodeInvalidRequest).Errorf("subscription must carry endpoint, p256dh and auth")
	}
	host := endpointHost(sub.Endpoint)

	payload, err := json.Marshal(pushdomain.NotificationPayload{
		Title:   pushdomain.DefaultTitle,
		Message: message,
	})
	if err != nil {
		return nil, oops.Code(domain.CodeInternal).Wrapf(err, "encode notification payload")
	}

	start := time.Now()
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub.ToWebPush(), &webpush.Options{
		HTTPClient:      u.httpClient,
		Subscriber:      u.identity.Subscriber(),
		VAPIDPublicKey:  u.identity.PublicKey,
		VAPIDPrivateKey: u.identity.PrivateKey,
		TTL:             int(u.options.TTL.Seconds()),
		Urgency:         webpush.Urgency(u.options.Urgency),
		Topic:           u.options.Topic,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("[Dispatch] Failed to deliver to %s: %v", host, err)
		u.record(host, 0, metrics.OutcomeError, elapsed)
		return nil, oops.Code(domain.CodeInternal).With("endpoint_host", host).Wrapf(err, "deliver push message")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil && !errors.Is(err, io.EOF) {
		log.Printf("[Dispatch] Failed to read reply from %s: %v", host, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("[Dispatch] Delivered to %s (status: %d)", host, resp.StatusCode)
		u.record(host, resp.StatusCode, metrics.OutcomeDelivered, elapsed)
		return &domain.Ack{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}, nil
	}

	pushErr := &domain.PushServiceError{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	outcome := metrics.OutcomeRejected
	if pushErr.Gone() {
		outcome = metrics.OutcomeGone
	}
	log.Printf("[Dispatch] Push service at %s answered %d", host, resp.StatusCode)
	u.record(host, resp.StatusCode, outcome, elapsed)
	return nil, pushErr
}

func (u *dispatchUsecase) record(host string, status int, outcome string, elapsed time.Duration) {
	u.metrics.ObserveDispatch(outcome, elapsed)
	err := u.deliveryLog.Save(&domain.DeliveryRecord{
		EndpointHost: host,
		StatusCode:   status,
		Outcome:      outcome,
		DurationMs:   elapsed.Milliseconds(),
	})
	if err != nil {
		log.Printf("[Dispatch] Failed to save delivery record: %v", err)
	}
}

// endpointHost keeps only the host so endpoint secrets never reach logs.
func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
