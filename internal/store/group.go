package store

import (
	"errors"
	"fmt"
	"sort"
)

// InsertGroup starts tracking a group. It stamps added_date, zeroes
// contacts_count and returns ErrAlreadyExists (with the stored group) when
// the id is already tracked.
func (s *Store) InsertGroup(g Group) (Group, error) {
	id := NormalizeID(g.ID)
	if id == "" {
		return Group{}, fmt.Errorf("group id: %w", ErrInvalid)
	}
	g.ID = id
	g.AddedDate = s.stamp()
	g.ContactsCount = 0

	var existing Group
	err := updateDoc(s, s.groups, func(doc *Groups) error {
		if cur, ok := (*doc)[id]; ok {
			existing = cur
			return ErrAlreadyExists
		}
		(*doc)[id] = g
		return nil
	})
	if errors.Is(err, ErrAlreadyExists) {
		return existing, err
	}
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

// Group returns one tracked group.
func (s *Store) Group(id any) (Group, error) {
	groups, err := loadDoc(s, s.groups)
	if err != nil {
		return Group{}, err
	}
	g, ok := groups[NormalizeID(id)]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

// Groups returns every tracked group.
func (s *Store) Groups() (Groups, error) {
	return loadDoc(s, s.groups)
}

// SortedGroups returns tracked groups ordered by id.
func (s *Store) SortedGroups(ids ...string) ([]Group, error) {
	groups, err := s.Groups()
	if err != nil {
		return nil, err
	}
	var out []Group
	if len(ids) == 0 {
		for _, g := range groups {
			out = append(out, g)
		}
	} else {
		for _, id := range ids {
			if g, ok := groups[NormalizeID(id)]; ok {
				out = append(out, g)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IsTracked reports whether messages from the group are harvested. A failed
// read counts as untracked.
func (s *Store) IsTracked(groupID any) bool {
	_, err := s.Group(groupID)
	return err == nil
}

// RemoveGroup stops tracking a group. Contacts harvested from it keep their
// group_id, and its admin roster is left in place.
func (s *Store) RemoveGroup(id any) (Group, error) {
	return removeKey(s, s.groups, NormalizeID(id))
}
