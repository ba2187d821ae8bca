// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
//
// Error semantics:
//   - A second insert for the same (channel_id, message_id) returns ErrDuplicate.
//   - Lookups of a missing row return ErrNotFound.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

// MessageFilter narrows message listings. Zero values mean "no constraint".
type MessageFilter struct {
	Category domain.Category
	BeforeID uint64   // only rows with id < BeforeID
	Like     []string // LIKE patterns (escaped with '\'), all must match lower(text)
}

func (f MessageFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.BeforeID > 0 {
		q = q.Where("id < ?", f.BeforeID)
	}
	for _, p := range f.Like {
		q = q.Where(`LOWER(text) LIKE ? ESCAPE '\'`, p)
	}
	return q
}

// CreateMessage inserts m. CreatedAt defaults to now (UTC).
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetMessage fetches a message by primary key.
func GetMessage(ctx context.Context, db *gorm.DB, id uint64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMessageClicks increments the durable click count of message id by
// delta in one UPDATE. It returns ErrNotFound when no row matched.
func AddMessageClicks(ctx context.Context, db *gorm.DB, id uint64, delta int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns up to limit rows matching f, newest (highest id) first.
func ListMessages(ctx context.Context, db *gorm.DB, f MessageFilter, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := f.apply(db.WithContext(ctx).Model(&domain.Message{})).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages counts rows matching f.
func CountMessages(ctx context.Context, db *gorm.DB, f MessageFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Message{})).Count(&total).Error
	return total, err
}
