// Package repo implements the persistence layer for community permission
// state. This file provides a small aggregate query used for conditional
// responses (ETag generation) in the admin HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// CommunitiesStats returns the number of communities and the greatest
// UpdatedAt among them. With no rows, maxUpdatedAt is nil.
func CommunitiesStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := func() *gorm.DB { return db.WithContext(ctx).Model(&domain.Community{}) }

	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
