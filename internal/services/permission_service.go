// Package services – PermissionService
//
// This file implements the Community Permission Store: per-community admin
// and staff lists plus the relay channel, and the owner > admin > staff
// authorization ladder used by every configuration command.
package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/repo"
)

// Level is a required authorization level.
type Level int

const (
	LevelStaff Level = iota + 1
	LevelAdmin
	LevelOwner
)

// Operator is the actor used by trusted local tooling (CLI, authenticated
// admin API). It is treated as an owner.
const Operator = "@operator"

// PermissionService reads and writes community permission state and
// enforces who may change it. It is safe for concurrent use.
type PermissionService struct {
	// DB is the database handle used for all permission operations.
	DB *gorm.DB

	mu     sync.RWMutex
	owners map[string]struct{}
}

// NewPermissionService returns a service with the given static owners.
func NewPermissionService(db *gorm.DB, ownerIDs ...string) *PermissionService {
	s := &PermissionService{DB: db, owners: make(map[string]struct{})}
	for _, id := range ownerIDs {
		s.AddOwner(id)
	}
	return s
}

// AddOwner registers an additional owner, e.g. the application owner
// discovered at connect time.
func (s *PermissionService) AddOwner(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners == nil {
		s.owners = make(map[string]struct{})
	}
	s.owners[id] = struct{}{}
}

// IsOwner reports whether id is a bot owner.
func (s *PermissionService) IsOwner(id string) bool {
	if id == Operator {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owners[id]
	return ok
}

// Owners returns the registered owner ids, sorted.
func (s *PermissionService) Owners() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.owners))
	for id := range s.owners {
		out = append(out, id)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Get returns the community's configuration. A community that was never
// configured yields an empty config.
func (s *PermissionService) Get(ctx context.Context, communityID string) (domain.CommunityConfig, error) {
	if !ValidID(communityID) {
		return domain.CommunityConfig{}, ErrInvalidID
	}
	return repo.GetCommunityConfig(ctx, s.DB, communityID)
}

// ListPage returns a page of configured communities ordered by id, and the
// total count. page is 1-based.
func (s *PermissionService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Community, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	total, err := repo.CountCommunities(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListCommunitiesPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// IsAdmin reports whether userID is listed as admin or is an owner.
func (s *PermissionService) IsAdmin(ctx context.Context, communityID, userID string) (bool, error) {
	if s.IsOwner(userID) {
		return true, nil
	}
	cfg, err := s.Get(ctx, communityID)
	if err != nil {
		return false, err
	}
	return cfg.ListsAdmin(userID), nil
}

// IsStaff reports whether userID is listed as staff or is an admin.
func (s *PermissionService) IsStaff(ctx context.Context, communityID, userID string) (bool, error) {
	if s.IsOwner(userID) {
		return true, nil
	}
	cfg, err := s.Get(ctx, communityID)
	if err != nil {
		return false, err
	}
	return cfg.ListsStaff(userID) || cfg.ListsAdmin(userID), nil
}

// Authorize returns nil if actorID holds at least lvl in the community, or
// the matching ErrNot* sentinel.
func (s *PermissionService) Authorize(ctx context.Context, communityID, actorID string, lvl Level) error {
	switch lvl {
	case LevelOwner:
		if !s.IsOwner(actorID) {
			return ErrNotOwner
		}
		return nil
	case LevelAdmin:
		ok, err := s.IsAdmin(ctx, communityID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAdmin
		}
		return nil
	default:
		ok, err := s.IsStaff(ctx, communityID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotStaff
		}
		return nil
	}
}

// SetRelayChannel designates the channel under which ticket threads are
// created. Requires admin.
func (s *PermissionService) SetRelayChannel(ctx context.Context, actorID, communityID, channelID string) error {
	if !ValidID(communityID) || !ValidID(channelID) {
		return ErrInvalidID
	}
	if err := s.Authorize(ctx, communityID, actorID, LevelAdmin); err != nil {
		return err
	}
	return repo.SetRelayChannel(ctx, s.DB, communityID, channelID)
}

// AddAdmin lists userID as admin. Requires owner.
func (s *PermissionService) AddAdmin(ctx context.Context, actorID, communityID, userID string) error {
	return s.addMember(ctx, actorID, communityID, userID, domain.RoleAdmin, LevelOwner)
}

// RemoveAdmin unlists userID as admin. Requires owner.
func (s *PermissionService) RemoveAdmin(ctx context.Context, actorID, communityID, userID string) error {
	return s.removeMember(ctx, actorID, communityID, userID, domain.RoleAdmin, LevelOwner)
}

// AddStaff lists userID as staff. Requires admin.
func (s *PermissionService) AddStaff(ctx context.Context, actorID, communityID, userID string) error {
	return s.addMember(ctx, actorID, communityID, userID, domain.RoleStaff, LevelAdmin)
}

// RemoveStaff unlists userID as staff. Requires admin.
func (s *PermissionService) RemoveStaff(ctx context.Context, actorID, communityID, userID string) error {
	return s.removeMember(ctx, actorID, communityID, userID, domain.RoleStaff, LevelAdmin)
}

func (s *PermissionService) addMember(ctx context.Context, actorID, communityID, userID, role string, lvl Level) error {
	if !ValidID(communityID) || !ValidID(userID) {
		return ErrInvalidID
	}
	if err := s.Authorize(ctx, communityID, actorID, lvl); err != nil {
		return err
	}
	err := repo.AddMember(ctx, s.DB, communityID, userID, role)
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrAlreadyListed
	}
	return err
}

func (s *PermissionService) removeMember(ctx context.Context, actorID, communityID, userID, role string, lvl Level) error {
	if !ValidID(communityID) || !ValidID(userID) {
		return ErrInvalidID
	}
	if err := s.Authorize(ctx, communityID, actorID, lvl); err != nil {
		return err
	}
	err := repo.RemoveMember(ctx, s.DB, communityID, userID, role)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotListed
	}
	return err
}

// ValidID reports whether s looks like a platform snowflake.
func ValidID(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
