// Package domain defines the data model of the relay: ticket records kept
// on disk per community, the GORM-mapped community permission tables, and
// the small value types passed between the router and the platform adapter.
package domain

import (
	"strings"
	"time"
)

// IdentityMode is whether a ticket shows the real user to staff.
type IdentityMode string

const (
	ModeIdentified IdentityMode = "identified"
	ModeAnonymous  IdentityMode = "anonymous"
)

// Valid reports whether m is one of the known modes.
func (m IdentityMode) Valid() bool {
	return m == ModeIdentified || m == ModeAnonymous
}

// ParseIdentityMode accepts a mode name case-insensitively.
func ParseIdentityMode(s string) (IdentityMode, bool) {
	m := IdentityMode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// UserRef is the minimal handle on a platform user.
type UserRef struct {
	ID          string
	Name        string
	DisplayName string
}

// Label returns the name staff or users see next to relayed text.
func (u UserRef) Label() string {
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.ID
}

// TicketRecord is the persisted state of one user's ticket in one community.
//
// Anonymous records carry UserHash and never UserID. Path and Key are filled
// in by the store when a record is loaded and are not serialized.
type TicketRecord struct {
	IdentityMode IdentityMode `json:"identity_mode"`
	TicketOpen   bool         `json:"ticket_open"`
	ThreadID     string       `json:"thread_id"`
	CommunityID  string       `json:"guild_id"`
	UserHash     string       `json:"user_hash,omitempty"`
	UserID       string       `json:"user_id,omitempty"`
	OpenedAt     time.Time    `json:"opened_at,omitempty"`

	// Key is the file stem: raw user id (identified) or token (anonymous).
	Key string `json:"-"`
	// Path is the file the record was read from.
	Path string `json:"-"`
}

// Anonymous is shorthand for IdentityMode == ModeAnonymous.
func (r TicketRecord) Anonymous() bool { return r.IdentityMode == ModeAnonymous }
