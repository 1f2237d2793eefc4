package store

import "sort"

// RecomputeStats rebuilds per-group contact counters and the Stats document
// from Groups, Contacts and Blacklist.
//
// Groups is written before Stats. If the Stats write fails the updated
// Groups stay on disk; the next successful recompute converges both.
// Calls are serialized and each one reads the collections afresh, so a
// recompute started after a mutation always counts it.
func (s *Store) RecomputeStats() (Stats, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.recomputeStats()
}

func (s *Store) recomputeStats() (Stats, error) {
	var (
		groups     Groups
		nContacts  int
		nBlacklist int
	)
	err := updateDoc(s, s.groups, func(doc *Groups) error {
		contacts, err := loadDoc(s, s.contacts)
		if err != nil {
			return err
		}
		bl, err := loadDoc(s, s.blacklist)
		if err != nil {
			return err
		}

		counts := make(map[string]int, len(*doc))
		for id := range *doc {
			counts[id] = 0
		}
		for _, c := range contacts {
			gid := NormalizeID(c.GroupID)
			if _, ok := counts[gid]; ok {
				counts[gid]++
			}
		}
		for id, g := range *doc {
			g.ContactsCount = counts[id]
			(*doc)[id] = g
		}

		groups = *doc
		nContacts = len(contacts)
		nBlacklist = len(bl)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalContacts: nContacts,
		TotalGroups:   len(groups),
		Blacklisted:   nBlacklist,
		GroupsStats:   make([]GroupStat, 0, len(groups)),
		LastUpdate:    s.now().Format(lastUpdateLayout),
	}
	for id, g := range groups {
		st.GroupsStats = append(st.GroupsStats, GroupStat{
			ID:            id,
			Title:         g.Title,
			Username:      g.Username,
			ContactsCount: g.ContactsCount,
		})
	}
	sort.Slice(st.GroupsStats, func(i, j int) bool { return st.GroupsStats[i].ID < st.GroupsStats[j].ID })

	err = updateDoc(s, s.stats, func(doc *Stats) error {
		*doc = st
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Stats returns the last computed statistics, which may be stale.
func (s *Store) Stats() (Stats, error) {
	st, err := loadDoc(s, s.stats)
	if err != nil {
		return Stats{}, err
	}
	if st.GroupsStats == nil {
		st.GroupsStats = []GroupStat{}
	}
	return st, nil
}
