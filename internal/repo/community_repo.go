// Package repo implements the persistence layer for community permission
// state. This file provides repository functions for the Community and
// CommunityMember models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no authorization, only persistence and query composition.
//
// Error semantics:
//   - Missing rows are reported as ErrNotFound (gorm.ErrRecordNotFound).
//   - Adding a role the user already holds yields ErrDuplicate.
//   - Other DB errors are propagated unchanged.
//
// Communities are created lazily: the first write for an unknown community
// inserts its row.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate is returned when a member already holds the requested role.
var ErrDuplicate = errors.New("member already holds role")

// EnsureCommunity inserts the community row if it does not exist yet.
func EnsureCommunity(ctx context.Context, db *gorm.DB, id string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&domain.Community{ID: id, CreatedAt: now, UpdatedAt: now}).Error
}

// GetCommunity fetches a community row by id, or ErrNotFound.
func GetCommunity(ctx context.Context, db *gorm.DB, id string) (*domain.Community, error) {
	var c domain.Community
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommunityConfig assembles the permission view of a community. An
// unknown community yields an empty config, not an error.
func GetCommunityConfig(ctx context.Context, db *gorm.DB, id string) (domain.CommunityConfig, error) {
	cfg := domain.CommunityConfig{CommunityID: id, AdminIDs: []string{}, StaffIDs: []string{}}

	c, err := GetCommunity(ctx, db, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return cfg, nil
	case err != nil:
		return cfg, err
	}
	cfg.RelayChannelID = c.RelayChannelID

	var members []domain.CommunityMember
	if err := db.WithContext(ctx).
		Where("community_id = ?", id).
		Order("created_at asc, id asc").
		Find(&members).Error; err != nil {
		return cfg, err
	}
	for _, m := range members {
		switch m.Role {
		case domain.RoleAdmin:
			cfg.AdminIDs = append(cfg.AdminIDs, m.UserID)
		case domain.RoleStaff:
			cfg.StaffIDs = append(cfg.StaffIDs, m.UserID)
		}
	}
	return cfg, nil
}

// SetRelayChannel upserts the community's relay channel.
func SetRelayChannel(ctx context.Context, db *gorm.DB, id, channelID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"relay_channel_id", "updated_at"}),
		}).
		Create(&domain.Community{ID: id, RelayChannelID: channelID, CreatedAt: now, UpdatedAt: now}).Error
}

// AddMember grants role to userID in the community, creating the community
// row if needed. It returns ErrDuplicate if the role is already held.
func AddMember(ctx context.Context, db *gorm.DB, communityID, userID, role string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&domain.CommunityMember{}).
			Where("community_id = ? AND user_id = ? AND role = ?", communityID, userID, role).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		m := &domain.CommunityMember{
			ID:          uuid.NewString(),
			CommunityID: communityID,
			UserID:      userID,
			Role:        role,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return touchCommunity(tx, communityID)
	})
}

// RemoveMember revokes role from userID. It returns ErrNotFound if the user
// did not hold it.
func RemoveMember(ctx context.Context, db *gorm.DB, communityID, userID, role string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("community_id = ? AND user_id = ? AND role = ?", communityID, userID, role).
			Delete(&domain.CommunityMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return touchCommunity(tx, communityID)
	})
}

// CountCommunities returns the number of configured communities.
func CountCommunities(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Community{}).Count(&total).Error
	return total, err
}

// ListCommunitiesPage returns a page of communities ordered by id.
func ListCommunitiesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Community, error) {
	var out []domain.Community
	err := db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// touchCommunity bumps updated_at so list ETags change on member edits.
func touchCommunity(tx *gorm.DB, id string) error {
	return tx.Model(&domain.Community{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
