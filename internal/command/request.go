package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/store"
)

// Command names understood by the router.
const (
	Start         = "start"
	Help          = "help"
	AddGroup      = "add_group"
	Groups        = "groups"
	Contacts      = "contacts"
	Blacklist     = "blacklist"
	BlacklistList = "blacklist_list"
	Unblacklist   = "unblacklist"
	Stats         = "stats"
	RemoveGroup   = "remove_group"
	RemoveContact = "remove_contact"
)

// Request is one command received in a private chat.
type Request struct {
	IssuerID string
	// Issuer carries the issuer's profile; AddedDate is unused.
	Issuer  store.AdminEntry
	ReplyTo string
	Name    string
	Args    string
}

// Parse splits "/name@suffix args" into a lower-case name and trimmed
// arguments. ok is false when text is not a command.
func Parse(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i:] + " " + rest
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// GroupInfo is what the platform reports about a group.
type GroupInfo struct {
	ID               string
	Title            string
	Username         *string
	ParticipantCount int
	// SelfIsAdmin reports whether the harvesting account administers the group.
	SelfIsAdmin bool
}

// Command errors. Each wraps the store sentinel that decides its outcome.
var (
	// ErrGroupUnavailable is wrapped by resolvers when a group reference
	// cannot be resolved or the account is not a member.
	ErrGroupUnavailable = fmt.Errorf("group unavailable: %w", store.ErrNotFound)
	ErrNotGroupAdmin    = fmt.Errorf("account is not an admin of the group: %w", store.ErrInvalid)
	ErrNotHarvested     = fmt.Errorf("user is not a harvested contact: %w", store.ErrNotFound)
	ErrUsage            = fmt.Errorf("bad command arguments: %w", store.ErrInvalid)
)

// GroupResolver looks up a group by id, JID or invite link.
type GroupResolver interface {
	ResolveGroup(ctx context.Context, ref string) (GroupInfo, error)
}
