package repository

import (
	"sync"
	"time"

	"pushboard-backend/internal/dispatch/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryLogRepository defines the interface for delivery log operations
type DeliveryLogRepository interface {
	Save(record *domain.DeliveryRecord) error
	Recent(limit int) ([]domain.DeliveryRecord, error)
}

// deliveryLogRepository implements DeliveryLogRepository on top of gorm
type deliveryLogRepository struct {
	db *gorm.DB
}

// NewDeliveryLogRepository creates a new instance of deliveryLogRepository
func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &deliveryLogRepository{
		db: db,
	}
}

// Save inserts a record, filling in ID and CreatedAt when unset
func (r *deliveryLogRepository) Save(record *domain.DeliveryRecord) error {
	prepare(record)
	return r.db.Create(record).Error
}

// Recent returns the newest records first
func (r *deliveryLogRepository) Recent(limit int) ([]domain.DeliveryRecord, error) {
	var records []domain.DeliveryRecord
	err := r.db.Order("created_at desc").Limit(normalizeLimit(limit)).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// memoryDeliveryLog keeps the last N records when no database is configured
type memoryDeliveryLog struct {
	mu       sync.Mutex
	records  []domain.DeliveryRecord
	capacity int
}

// NewMemoryDeliveryLog creates a bounded in-process delivery log
func NewMemoryDeliveryLog(capacity int) DeliveryLogRepository {
	if capacity <= 0 {
		capacity = 500
	}
	return &memoryDeliveryLog{capacity: capacity}
}

func (r *memoryDeliveryLog) Save(record *domain.DeliveryRecord) error {
	prepare(record)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = r.records[over:]
	}
	return nil
}

func (r *memoryDeliveryLog) Recent(limit int) ([]domain.DeliveryRecord, error) {
	limit = normalizeLimit(limit)
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.DeliveryRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

func prepare(record *domain.DeliveryRecord) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
