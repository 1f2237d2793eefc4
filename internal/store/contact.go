package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// InsertContact records a harvested user. The blacklist is checked first
// and a blacklisted id is rejected with ErrBlacklisted before anything is
// written. The first record for an id wins: later calls return
// ErrAlreadyExists together with the stored contact.
//
// aliases are other ids the same user may already be stored or blacklisted
// under. A record found under an alias is moved to id and reported as
// ErrAlreadyExists, so one person is never harvested twice.
func (s *Store) InsertContact(c Contact, aliases ...string) (Contact, error) {
	id := NormalizeID(c.ID)
	if id == "" {
		return Contact{}, fmt.Errorf("contact id: %w", ErrInvalid)
	}
	keys := []string{id}
	for _, a := range aliases {
		if a = NormalizeID(a); a != "" && a != id {
			keys = append(keys, a)
		}
	}

	for _, k := range keys {
		blocked, err := s.blacklisted(k)
		if err != nil {
			return Contact{}, err
		}
		if blocked {
			return Contact{}, ErrBlacklisted
		}
	}

	c.ID = id
	c.GroupID = NormalizeID(c.GroupID)
	c.AddedDate = s.stamp()

	var (
		existing  Contact
		movedFrom string
	)
	err := updateDoc(s, s.contacts, func(doc *Contacts) error {
		if cur, ok := (*doc)[id]; ok {
			existing = cur
			return ErrAlreadyExists
		}
		for _, alias := range keys[1:] {
			cur, ok := (*doc)[alias]
			if !ok {
				continue
			}
			delete(*doc, alias)
			cur.ID = id
			if cur.Phone == nil {
				cur.Phone = c.Phone
			}
			(*doc)[id] = cur
			existing, movedFrom = cur, alias
			return nil
		}
		(*doc)[id] = c
		return nil
	})
	if errors.Is(err, ErrAlreadyExists) {
		return existing, err
	}
	if err != nil {
		return Contact{}, err
	}
	if movedFrom != "" {
		s.logger.Info("contact re-keyed", zap.String("from", movedFrom), zap.String("to", id))
		return existing, ErrAlreadyExists
	}
	return c, nil
}

// HasContact reports whether the id was ever harvested.
func (s *Store) HasContact(id any) (bool, error) {
	contacts, err := loadDoc(s, s.contacts)
	if err != nil {
		return false, err
	}
	_, ok := contacts[NormalizeID(id)]
	return ok, nil
}

// Contact returns one harvested contact.
func (s *Store) Contact(id any) (Contact, error) {
	contacts, err := loadDoc(s, s.contacts)
	if err != nil {
		return Contact{}, err
	}
	c, ok := contacts[NormalizeID(id)]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

// Contacts returns every harvested contact.
func (s *Store) Contacts() (Contacts, error) {
	return loadDoc(s, s.contacts)
}

// SortedContacts returns contacts ordered by added date, then id.
func (s *Store) SortedContacts() ([]Contact, error) {
	contacts, err := s.Contacts()
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedDate != out[j].AddedDate {
			return out[i].AddedDate < out[j].AddedDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindContact resolves a user reference ("123", "@name" or "+5511...")
// against harvested contacts. Usernames match case-insensitively.
func (s *Store) FindContact(ref string) (Contact, error) {
	kind, value := ParseUserRef(ref)
	if kind == RefInvalid {
		return Contact{}, fmt.Errorf("user reference %q: %w", ref, ErrInvalid)
	}
	contacts, err := loadDoc(s, s.contacts)
	if err != nil {
		return Contact{}, err
	}

	switch kind {
	case RefID:
		if c, ok := contacts[NormalizeID(value)]; ok {
			return c, nil
		}
	case RefUsername:
		for _, c := range contacts {
			if c.Username != "" && strings.EqualFold(c.Username, value) {
				return c, nil
			}
		}
	case RefPhone:
		for _, c := range contacts {
			if c.Phone != nil && strings.TrimPrefix(*c.Phone, "+") == value {
				return c, nil
			}
		}
	}
	return Contact{}, ErrNotFound
}

// RemoveContact deletes a harvested contact.
func (s *Store) RemoveContact(id any) (Contact, error) {
	return removeKey(s, s.contacts, NormalizeID(id))
}
