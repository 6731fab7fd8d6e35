package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pushboard-backend/internal/dispatch/domain"
	pushdomain "pushboard-backend/internal/push/domain"
	"pushboard-backend/pkg/vapid"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	ack       *domain.Ack
	err       error
	publicKey string
	records   []domain.DeliveryRecord

	gotSub     *pushdomain.PushSubscription
	gotMessage string
	calls      int
}

func (f *fakeUsecase) Deliver(_ context.Context, sub *pushdomain.PushSubscription, message string) (*domain.Ack, error) {
	f.calls++
	f.gotSub = sub
	f.gotMessage = message
	return f.ack, f.err
}

func (f *fakeUsecase) PublicKey() string { return f.publicKey }

func (f *fakeUsecase) RecentDeliveries(limit int) ([]domain.DeliveryRecord, error) {
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func newRouter(uc *fakeUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDispatchHandler(uc)
	r := gin.New()
	r.POST("/api/notification", h.SendNotification)
	r.POST("/notification", h.SendNotification)
	r.GET("/api/push/vapid-public-key", h.GetPublicKey)
	r.GET("/api/deliveries", h.GetDeliveries)
	return r
}

const validBody = `{"subscription":{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"BPk","auth":"x2"},"expirationTime":null},"message":"hi"}`

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestSendNotification_PassesAckThrough(t *testing.T) {
	uc := &fakeUsecase{ack: &domain.Ack{
		StatusCode: http.StatusCreated,
		Header: http.Header{
			"Location":       []string{"https://push.example.com/m/1"},
			"Content-Length": []string{"999"},
		},
		Body: []byte("created"),
	}}

	for _, path := range []string{"/api/notification", "/notification"} {
		rec := post(newRouter(uc), path, validBody)
		assert.Equal(t, http.StatusCreated, rec.Code, path)
		assert.Equal(t, "https://push.example.com/m/1", rec.Header().Get("Location"))
		assert.Equal(t, "created", rec.Body.String())
	}
	assert.Equal(t, "hi", uc.gotMessage)
	assert.Equal(t, "https://push.example.com/abc", uc.gotSub.Endpoint)
	assert.Nil(t, uc.gotSub.ExpirationTime)
}

func TestSendNotification_PassesRejectionThrough(t *testing.T) {
	uc := &fakeUsecase{err: &domain.PushServiceError{
		StatusCode: http.StatusGone,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"reason":"expired"}`),
	}}

	rec := post(newRouter(uc), "/api/notification", validBody)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"reason":"expired"}`, rec.Body.String())
}

func TestSendNotification_InternalErrorIsGeneric(t *testing.T) {
	uc := &fakeUsecase{err: oops.Code(domain.CodeInternal).Wrapf(errors.New("dial tcp: secret detail"), "deliver")}

	rec := post(newRouter(uc), "/api/notification", validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestSendNotification_ConfigurationErrorIsGeneric(t *testing.T) {
	uc := &fakeUsecase{err: vapid.NewIdentity("", "", "").Complete()}

	rec := post(newRouter(uc), "/api/notification", validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "WEB_PUSH")
}

func TestSendNotification_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"subscription":`},
		{"no subscription", `{"message":"hi"}`},
		{"empty message", `{"subscription":{"endpoint":"https://push.example.com/abc"},"message":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUsecase{}
			rec := post(newRouter(uc), "/api/notification", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, uc.calls)
		})
	}
}

func TestSendNotification_ForwardsWhitespaceMessage(t *testing.T) {
	uc := &fakeUsecase{ack: &domain.Ack{StatusCode: http.StatusCreated}}
	body := strings.Replace(validBody, `"message":"hi"`, `"message":"  "`, 1)

	rec := post(newRouter(uc), "/api/notification", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, uc.calls)
	assert.Equal(t, "  ", uc.gotMessage)
}

func TestSendNotification_InvalidSubscription(t *testing.T) {
	uc := &fakeUsecase{err: oops.Code(domain.CodeInvalidRequest).Errorf("subscription must carry endpoint, p256dh and auth")}

	rec := post(newRouter(uc), "/api/notification", validBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPublicKey(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeUsecase{publicKey: "BPubKey"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/push/vapid-public-key", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BPubKey", resp["publicKey"])

	rec = httptest.NewRecorder()
	newRouter(&fakeUsecase{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/push/vapid-public-key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetDeliveries(t *testing.T) {
	uc := &fakeUsecase{records: []domain.DeliveryRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	rec := httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deliveries?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Deliveries []domain.DeliveryRecord `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Deliveries, 2)
}
