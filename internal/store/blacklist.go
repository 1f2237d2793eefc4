package store

import (
	"errors"
	"fmt"
	"sort"
)

// InsertBlacklistEntry suppresses a user. Idempotent like InsertContact.
func (s *Store) InsertBlacklistEntry(e BlacklistEntry) (BlacklistEntry, error) {
	id := NormalizeID(e.ID)
	if id == "" {
		return BlacklistEntry{}, fmt.Errorf("blacklist id: %w", ErrInvalid)
	}
	e.ID = id
	e.AddedDate = s.stamp()

	var existing BlacklistEntry
	err := updateDoc(s, s.blacklist, func(doc *Blacklist) error {
		if cur, ok := (*doc)[id]; ok {
			existing = cur
			return ErrAlreadyExists
		}
		(*doc)[id] = e
		return nil
	})
	if errors.Is(err, ErrAlreadyExists) {
		return existing, err
	}
	if err != nil {
		return BlacklistEntry{}, err
	}
	return e, nil
}

// IsBlacklisted reports blacklist membership. An unreadable blacklist is an
// error, never a "no".
func (s *Store) IsBlacklisted(userID any) (bool, error) {
	return s.blacklisted(NormalizeID(userID))
}

func (s *Store) blacklisted(id string) (bool, error) {
	bl, err := loadDoc(s, s.blacklist)
	if err != nil {
		return false, err
	}
	_, ok := bl[id]
	return ok, nil
}

// Blacklist returns every suppressed user.
func (s *Store) Blacklist() (Blacklist, error) {
	return loadDoc(s, s.blacklist)
}

// SortedBlacklist returns entries ordered by added date, then id.
func (s *Store) SortedBlacklist() ([]BlacklistEntry, error) {
	bl, err := s.Blacklist()
	if err != nil {
		return nil, err
	}
	out := make([]BlacklistEntry, 0, len(bl))
	for _, e := range bl {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedDate != out[j].AddedDate {
			return out[i].AddedDate < out[j].AddedDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RemoveBlacklistEntry lifts a suppression.
func (s *Store) RemoveBlacklistEntry(id any) (BlacklistEntry, error) {
	return removeKey(s, s.blacklist, NormalizeID(id))
}
