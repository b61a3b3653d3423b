package domain

import (
	"slices"
	"time"
)

// Member roles stored in community_members.role.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Community is one guild the relay is configured for.
//
// Fields:
//   - ID: platform community id (snowflake), primary key.
//   - RelayChannelID: channel under which ticket threads are opened; empty
//     until an admin sets it.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Community struct {
	ID             string    `json:"id"               gorm:"type:varchar(32);primaryKey"`
	RelayChannelID string    `json:"relay_channel_id" gorm:"type:varchar(32);not null;default:''"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Community.
func (Community) TableName() string { return "communities" }

// CommunityMember grants a user a role inside a community. A user holds a
// given role at most once per community (unique index).
type CommunityMember struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	CommunityID string    `json:"community_id" gorm:"type:varchar(32);not null;index;uniqueIndex:ux_member_role"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(32);not null;uniqueIndex:ux_member_role"`
	Role        string    `json:"role"         gorm:"type:varchar(8);not null;uniqueIndex:ux_member_role;check:role IN ('admin','staff')"`
	CreatedAt   time.Time `json:"created_at"`

	// Community is the owning community. Members are cascade-deleted
	// with it.
	Community Community `json:"-" gorm:"foreignKey:CommunityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CommunityMember.
func (CommunityMember) TableName() string { return "community_members" }

// CommunityConfig is the read view over one community's permission state.
type CommunityConfig struct {
	CommunityID    string   `json:"community_id"`
	RelayChannelID string   `json:"relay_channel_id,omitempty"`
	AdminIDs       []string `json:"admin_ids"`
	StaffIDs       []string `json:"staff_ids"`
}

// HasRelayChannel reports whether tickets can be opened in the community.
func (c CommunityConfig) HasRelayChannel() bool { return c.RelayChannelID != "" }

// IsEmpty reports whether nothing has been configured yet.
func (c CommunityConfig) IsEmpty() bool {
	return c.RelayChannelID == "" && len(c.AdminIDs) == 0 && len(c.StaffIDs) == 0
}

// ListsAdmin reports whether userID is on the admin list.
func (c CommunityConfig) ListsAdmin(userID string) bool { return slices.Contains(c.AdminIDs, userID) }

// ListsStaff reports whether userID is on the staff list.
func (c CommunityConfig) ListsStaff(userID string) bool { return slices.Contains(c.StaffIDs, userID) }
