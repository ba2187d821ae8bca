package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

// AddDailyClicks upserts the aggregate for day, adding delta to any
// existing count.
func AddDailyClicks(ctx context.Context, db *gorm.DB, day string, delta int64) error {
	row := &domain.DailyClick{Day: day, Clicks: delta, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"clicks":     gorm.Expr("daily_clicks.clicks + ?", delta),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(row).Error
}

// ListDailyClicks returns aggregates for days >= since, newest first.
func ListDailyClicks(ctx context.Context, db *gorm.DB, since string) ([]domain.DailyClick, error) {
	var out []domain.DailyClick
	err := db.WithContext(ctx).
		Where("day >= ?", since).
		Order("day DESC").
		Find(&out).Error
	return out, err
}
