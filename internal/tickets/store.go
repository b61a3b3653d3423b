// Package tickets persists ticket records, one JSON file per user under a
// directory per community, and keeps the in-memory table that lets replies
// reach anonymous users.
//
// Layout:
//
//	<root>/<community_id>/<user_id>.json   identified tickets
//	<root>/<community_id>/<token>.json     anonymous tickets
//
// Lookups are linear scans of a community directory because the file name
// is not always the lookup key. Unreadable or malformed files are skipped.
package tickets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/identity"
)

const recordExt = ".json"

// ErrInvalidKey is returned when a community id or file key cannot be used
// as a path element.
var ErrInvalidKey = errors.New("invalid ticket key")

// Store is the Ticket State Store. Save and Delete are its only write paths.
type Store struct {
	root     string
	sessions *SessionTable
}

// NewStore returns a store rooted at root. A nil sessions table gets a
// fresh one.
func NewStore(root string, sessions *SessionTable) *Store {
	if sessions == nil {
		sessions = NewSessionTable()
	}
	return &Store{root: root, sessions: sessions}
}

// Sessions exposes the anonymous session table fed by lookups.
func (s *Store) Sessions() *SessionTable { return s.sessions }

// Root returns the directory holding all community directories.
func (s *Store) Root() string { return s.root }

// Lookup returns the user's record in the community, or nil. Identified
// records match on file key, anonymous ones on token; an anonymous match
// refreshes the session table.
func (s *Store) Lookup(communityID string, user domain.UserRef) (*domain.TicketRecord, error) {
	token := identity.Hash(user.ID)
	var found *domain.TicketRecord
	err := s.scan(communityID, func(rec *domain.TicketRecord) bool {
		switch rec.IdentityMode {
		case domain.ModeIdentified:
			if rec.Key == user.ID {
				found = rec
			}
		case domain.ModeAnonymous:
			if rec.UserHash == token {
				found = rec
			}
		}
		return found == nil
	})
	if err != nil {
		return nil, err
	}
	if found != nil && found.Anonymous() {
		s.sessions.Remember(token, user)
	}
	return found, nil
}

// LookupByThread returns the open record linked to threadID, or nil.
func (s *Store) LookupByThread(communityID, threadID string) (*domain.TicketRecord, error) {
	var found *domain.TicketRecord
	err := s.scan(communityID, func(rec *domain.TicketRecord) bool {
		if rec.TicketOpen && rec.ThreadID == threadID {
			found = rec
		}
		return found == nil
	})
	return found, err
}

// Save writes rec for user. The file path is rec.Path when the record was
// loaded from disk, otherwise derived from mode and key. Anonymous records
// are stripped of the raw id and carry the token instead.
func (s *Store) Save(communityID string, user domain.UserRef, rec *domain.TicketRecord) error {
	if rec == nil || !rec.IdentityMode.Valid() {
		return fmt.Errorf("save ticket: invalid identity mode %q", modeOf(rec))
	}
	if err := checkElem(communityID); err != nil {
		return err
	}

	out := *rec
	out.CommunityID = communityID
	if out.Anonymous() {
		out.UserID = ""
		out.UserHash = identity.Hash(user.ID)
		out.Key = out.UserHash
	} else {
		out.UserID = user.ID
		out.UserHash = ""
		out.Key = user.ID
	}
	if err := checkElem(out.Key); err != nil {
		return err
	}
	if out.Path == "" {
		out.Path = s.path(communityID, out.Key)
	}

	b, err := json.MarshalIndent(&out, "", "    ")
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	if err := atomic.WriteFile(out.Path, bytes.NewReader(append(b, '\n'))); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}

	if out.Anonymous() {
		s.sessions.Remember(out.UserHash, user)
	}
	*rec = out
	return nil
}

// Delete removes the user's record in the community. Deleting a missing
// record is not an error.
func (s *Store) Delete(communityID string, user domain.UserRef) error {
	rec, err := s.Lookup(communityID, user)
	if err != nil || rec == nil {
		return err
	}
	if err := os.Remove(rec.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// Stats counts community directories and open records across all of them.
func (s *Store) Stats() (communities, open int, err error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		communities++
		if err := s.scan(e.Name(), func(rec *domain.TicketRecord) bool {
			if rec.TicketOpen {
				open++
			}
			return true
		}); err != nil {
			return 0, 0, err
		}
	}
	return communities, open, nil
}

// scan calls fn for every decodable record of the community in file name
// order (os.ReadDir sorts) until fn returns false. A missing directory is an
// empty community.
func (s *Store) scan(communityID string, fn func(*domain.TicketRecord) bool) error {
	if err := checkElem(communityID); err != nil {
		return err
	}
	dir := filepath.Join(s.root, communityID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan tickets: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		path := filepath.Join(dir, name)
		rec, err := readRecord(path)
		if err != nil {
			log.Debug().Err(err).Str("community_id", communityID).Str("file", name).Msg("skipping unreadable ticket record")
			continue
		}
		rec.Key = strings.TrimSuffix(name, recordExt)
		rec.Path = path
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

func readRecord(path string) (*domain.TicketRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec domain.TicketRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	if !rec.IdentityMode.Valid() {
		return nil, fmt.Errorf("unknown identity mode %q", rec.IdentityMode)
	}
	return &rec, nil
}

func (s *Store) path(communityID, key string) string {
	return filepath.Join(s.root, communityID, key+recordExt)
}

func checkElem(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return nil
}

func modeOf(rec *domain.TicketRecord) domain.IdentityMode {
	if rec == nil {
		return ""
	}
	return rec.IdentityMode
}
