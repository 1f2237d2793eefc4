package store

// Collection names; each is stored as <name>.json in the data directory.
const (
	GroupsCollection    = "groups"
	ContactsCollection  = "contacts"
	BlacklistCollection = "blacklist"
	AdminsCollection    = "admins"
	StatsCollection     = "stats"
)

// Group is a tracked chat group.
type Group struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Username         *string `json:"username"`
	ParticipantCount int     `json:"participant_count"`
	ContactsCount    int     `json:"contacts_count"`
	AddedDate        string  `json:"added_date"`
}

// Contact is a harvested participant. GroupID and GroupTitle record where the
// user was first seen and may dangle once that group is removed.
type Contact struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Phone      *string `json:"phone"`
	GroupID    string  `json:"group_id"`
	GroupTitle string  `json:"group_title"`
	AddedDate  string  `json:"added_date"`
}

// DisplayName joins first and last name.
func (c Contact) DisplayName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// BlacklistEntry suppresses harvesting of one user.
type BlacklistEntry struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
	AddedDate string  `json:"added_date"`
}

// AdminEntry is one administrator of one tracked group.
type AdminEntry struct {
	AddedDate string `json:"added_date"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GroupStat is the per-group summary inside Stats.
type GroupStat struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Username      *string `json:"username"`
	ContactsCount int     `json:"contacts_count"`
}

// Stats is derived entirely by RecomputeStats.
type Stats struct {
	TotalContacts int         `json:"total_contacts"`
	TotalGroups   int         `json:"total_groups"`
	Blacklisted   int         `json:"blacklisted"`
	GroupsStats   []GroupStat `json:"groups_stats"`
	LastUpdate    string      `json:"last_update"`
}

type (
	// Groups maps group id to group.
	Groups map[string]Group
	// Contacts maps user id to contact.
	Contacts map[string]Contact
	// Blacklist maps user id to entry.
	Blacklist map[string]BlacklistEntry
	// Admins maps group id to admin user id to entry.
	Admins map[string]map[string]AdminEntry
)

func emptyGroups() Groups       { return Groups{} }
func emptyContacts() Contacts   { return Contacts{} }
func emptyBlacklist() Blacklist { return Blacklist{} }
func emptyAdmins() Admins       { return Admins{} }
func emptyStats() Stats         { return Stats{GroupsStats: []GroupStat{}} }

// Sighting is a participant observed in a group message, normalized by the
// platform adapter.
type Sighting struct {
	UserID     string
	Username   string
	FirstName  string
	LastName   string
	Phone      *string
	GroupID    string
	GroupTitle string
	// Aliases are other ids the same person may be stored under, such as
	// the linked-identity key used before the phone number was known.
	Aliases []string
}

// Contact converts the sighting into a contact candidate.
func (s Sighting) Contact() Contact {
	return Contact{
		ID:         s.UserID,
		Username:   s.Username,
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		Phone:      s.Phone,
		GroupID:    s.GroupID,
		GroupTitle: s.GroupTitle,
	}
}

// BlacklistEntryFor copies the identity fields of a contact.
func BlacklistEntryFor(c Contact) BlacklistEntry {
	return BlacklistEntry{
		ID:        c.ID,
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}
