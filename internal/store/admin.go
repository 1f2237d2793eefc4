package store

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// IsAuthorizedAdmin reports whether the user administers at least one
// group. It is evaluated on every call, and a failed read denies access.
func (s *Store) IsAuthorizedAdmin(userID any) bool {
	id := NormalizeID(userID)
	if id == "" {
		return false
	}
	admins, err := loadDoc(s, s.admins)
	if err != nil {
		s.logger.Warn("admin roster unreadable, denying", zap.String("user_id", id), zap.Error(err))
		return false
	}
	for _, roster := range admins {
		if _, ok := roster[id]; ok {
			return true
		}
	}
	return false
}

// GrantAdmin adds or refreshes a user in a group's admin roster.
func (s *Store) GrantAdmin(groupID, userID any, e AdminEntry) error {
	gid, uid := NormalizeID(groupID), NormalizeID(userID)
	if gid == "" || uid == "" {
		return fmt.Errorf("admin grant: %w", ErrInvalid)
	}
	if e.AddedDate == "" {
		e.AddedDate = s.stamp()
	}
	return updateDoc(s, s.admins, func(doc *Admins) error {
		roster, ok := (*doc)[gid]
		if !ok {
			roster = make(map[string]AdminEntry)
			(*doc)[gid] = roster
		}
		roster[uid] = e
		return nil
	})
}

// RevokeAdmin removes a user from a group's roster. An emptied roster is
// dropped.
func (s *Store) RevokeAdmin(groupID, userID any) error {
	gid, uid := NormalizeID(groupID), NormalizeID(userID)
	return updateDoc(s, s.admins, func(doc *Admins) error {
		roster, ok := (*doc)[gid]
		if !ok {
			return ErrNotFound
		}
		if _, ok := roster[uid]; !ok {
			return ErrNotFound
		}
		delete(roster, uid)
		if len(roster) == 0 {
			delete(*doc, gid)
		}
		return nil
	})
}

// AdminGroups lists the group ids the user administers, sorted.
func (s *Store) AdminGroups(userID any) ([]string, error) {
	id := NormalizeID(userID)
	admins, err := loadDoc(s, s.admins)
	if err != nil {
		return nil, err
	}
	var out []string
	for gid, roster := range admins {
		if _, ok := roster[id]; ok {
			out = append(out, gid)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GroupAdmins returns the roster of one group.
func (s *Store) GroupAdmins(groupID any) (map[string]AdminEntry, error) {
	admins, err := loadDoc(s, s.admins)
	if err != nil {
		return nil, err
	}
	return admins[NormalizeID(groupID)], nil
}

// Admins returns the whole roster.
func (s *Store) Admins() (Admins, error) {
	return loadDoc(s, s.admins)
}
