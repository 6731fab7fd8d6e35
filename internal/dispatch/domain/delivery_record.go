package domain

import "time"

// DeliveryRecord is one dispatch attempt as seen by the server. Only the
// endpoint's host is kept: the full URL is a subscriber secret.
type DeliveryRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	EndpointHost string    `json:"endpoint_host" gorm:"index;not null"`
	StatusCode   int       `json:"status_code"`
	Outcome      string    `json:"outcome" gorm:"index"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}
