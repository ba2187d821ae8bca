// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

// MessagesStats returns the number of messages in category (all when empty)
// and the newest CreatedAt among them, or nil when there are none.
func MessagesStats(ctx context.Context, db *gorm.DB, category domain.Category) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{})
	if category != "" {
		q = q.Where("category = ?", category)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// SumClicks returns the total durable clicks in category (all when empty).
func SumClicks(ctx context.Context, db *gorm.DB, category domain.Category) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Message{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var total int64
	if err := q.Select("COALESCE(SUM(clicks), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
