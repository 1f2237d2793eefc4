// Package reply renders command results and notifications as chat text.
package reply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/store"
)

// MaxLen is the longest message sent in one piece, in characters.
const MaxLen = 4096

const (
	msgUnauthorized = "❌ You are not allowed to run this command."
	msgFailure      = "❌ Something went wrong. Please try again later."
	msgUnknown      = "❓ Unknown command. Send /help to see what I can do."
)

var usage = map[string]string{
	command.AddGroup:      "/add_group <group id or invite link>",
	command.Blacklist:     "/blacklist <id, @username or +phone>",
	command.Unblacklist:   "/unblacklist <id>",
	command.RemoveGroup:   "/remove_group <group id>",
	command.RemoveContact: "/remove_contact <id>",
}

// Format renders a result as one or more messages.
func Format(res command.Result) []string {
	return Split(render(res), MaxLen)
}

func render(res command.Result) string {
	switch {
	case res.Outcome == store.OutcomeUnauthorized:
		return msgUnauthorized
	case res.Outcome == store.OutcomeStoreFailure:
		return msgFailure
	case res.Reason == command.ReasonUnknownCommand:
		return msgUnknown
	case res.Reason == command.ReasonUsage:
		return "❌ Wrong command format.\nUse: " + usage[res.Command]
	}

	switch res.Command {
	case command.Start:
		return start(res.Issuer)
	case command.Help:
		return Help()
	case command.AddGroup:
		return addGroup(res)
	case command.Groups:
		return groups(res.Groups)
	case command.Contacts:
		return contacts(res.Contacts)
	case command.Blacklist:
		return blacklist(res)
	case command.BlacklistList:
		return blacklistList(res.Blacklist)
	case command.Unblacklist:
		switch {
		case res.Outcome == store.OutcomeNotFound:
			return "❌ This user is not blacklisted."
		case res.Entry == nil:
			return msgFailure
		}
		return "✅ User " + res.Entry.ID + " removed from the blacklist."
	case command.Stats:
		return stats(res.Stats)
	case command.RemoveGroup:
		switch {
		case res.Outcome == store.OutcomeNotFound:
			return "❌ This group is not tracked."
		case res.Group == nil:
			return msgFailure
		}
		return "🗑 Group " + orDash(res.Group.Title) + " is no longer tracked."
	case command.RemoveContact:
		switch {
		case res.Outcome == store.OutcomeNotFound:
			return "❌ Contact not found."
		case res.Contact == nil:
			return msgFailure
		}
		return "🗑 Contact " + orDash(res.Contact.DisplayName()) + " removed."
	}
	return msgUnknown
}

func start(issuer store.AdminEntry) string {
	name := issuer.FirstName
	if name == "" {
		name = "there"
	}
	return "👋 Hi, " + name + "!\n\n" +
		"I collect the contacts of people who write in the groups you register.\n" +
		"Send /help to see what I can do."
}

var helpLines = []struct{ name, line string }{
	{command.AddGroup, "/add_group <id or invite link> - track a group you and this account administer"},
	{command.Groups, "/groups - your tracked groups"},
	{command.Contacts, "/contacts - harvested contacts"},
	{command.Blacklist, "/blacklist <id, @username or +phone> - stop harvesting a contact"},
	{command.Unblacklist, "/unblacklist <id> - lift a blacklist entry"},
	{command.BlacklistList, "/blacklist_list - blacklisted users"},
	{command.RemoveGroup, "/remove_group <id> - stop tracking a group"},
	{command.RemoveContact, "/remove_contact <id> - forget a harvested contact"},
	{command.Stats, "/stats - statistics"},
}

// Help lists the commands, marking those that need group admin standing.
func Help() string {
	var b strings.Builder
	b.WriteString("🤖 Commands\n\n")
	for _, h := range helpLines {
		if command.IsGated(h.name) {
			b.WriteString("🔒 ")
		}
		b.WriteString(h.line + "\n")
	}
	b.WriteString("\n🔒 needs you to administer at least one tracked group.")
	return b.String()
}

func addGroup(res command.Result) string {
	switch res.Reason {
	case command.ReasonNotGroupAdmin:
		return "❌ This account must be an admin of the group.\nPromote it and try again."
	case command.ReasonGroupUnavailable:
		return "❌ Could not get information about the group."
	}
	switch {
	case res.Outcome == store.OutcomeAlreadyExists:
		return "❌ This group is already tracked."
	case res.Outcome != store.OutcomeSuccess || res.Group == nil:
		return "❌ Could not add the group."
	}
	g := res.Group
	return "✅ Group added!\n\n" +
		"📌 Title: " + orDash(g.Title) + "\n" +
		"👥 Participants: " + strconv.Itoa(g.ParticipantCount) + "\n" +
		"🔗 Username: " + handle(g.Username) + "\n\n" +
		"👤 You are now an admin of this group.\n" +
		"📩 You will be notified about new contacts."
}

func groups(gs []store.Group) string {
	if len(gs) == 0 {
		return "📝 You have no groups yet."
	}
	var b strings.Builder
	b.WriteString("📋 Your groups:\n\n")
	for _, g := range gs {
		fmt.Fprintf(&b, "📌 %s\n🆔 %s\n👥 Participants: %d\n📊 Contacts added: %d\n📅 Added: %s\n🔗 %s\n\n",
			orDash(g.Title), g.ID, g.ParticipantCount, g.ContactsCount, g.AddedDate, handle(g.Username))
	}
	return strings.TrimRight(b.String(), "\n")
}

func contacts(cs []store.Contact) string {
	if len(cs) == 0 {
		return "📝 The contact list is empty."
	}
	var b strings.Builder
	b.WriteString("📋 Harvested contacts:\n\n")
	for _, c := range cs {
		fmt.Fprintf(&b, "👤 %s\n🆔 %s\n", orDash(c.DisplayName()), c.ID)
		if c.Username != "" {
			fmt.Fprintf(&b, "🔗 @%s\n", c.Username)
		}
		if c.Phone != nil && *c.Phone != "" {
			fmt.Fprintf(&b, "📱 %s\n", *c.Phone)
		}
		fmt.Fprintf(&b, "📅 Added: %s\n\n", c.AddedDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func blacklist(res command.Result) string {
	switch {
	case res.Reason == command.ReasonNotHarvested:
		return "❌ User not found among harvested contacts.\nOnly harvested users can be blacklisted."
	case res.Outcome == store.OutcomeAlreadyExists:
		return "❌ This user is already blacklisted."
	case res.Outcome != store.OutcomeSuccess || res.Entry == nil:
		return msgFailure
	}
	e := res.Entry
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	return "✅ User blacklisted:\n\n" +
		"👤 " + orDash(name) + "\n" +
		"🔗 " + handleString(e.Username) + "\n" +
		"🆔 " + e.ID
}

func blacklistList(es []store.BlacklistEntry) string {
	if len(es) == 0 {
		return "📝 The blacklist is empty."
	}
	var b strings.Builder
	b.WriteString("⛔️ Blacklist:\n\n")
	for _, e := range es {
		name := strings.TrimSpace(e.FirstName + " " + e.LastName)
		fmt.Fprintf(&b, "👤 %s\n🔗 %s\n🆔 %s\n📅 Added: %s\n\n",
			orDash(name), handleString(e.Username), e.ID, e.AddedDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func stats(st *store.Stats) string {
	if st == nil {
		return "📊 No statistics yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Statistics\n\n👥 Contacts added: %d\n👥 Groups tracked: %d\n⛔️ Blacklisted: %d\n",
		st.TotalContacts, st.TotalGroups, st.Blacklisted)
	if len(st.GroupsStats) > 0 {
		b.WriteString("\n📈 Per group:\n\n")
		for _, g := range st.GroupsStats {
			fmt.Fprintf(&b, "📌 %s\n🔗 %s\n👥 Contacts added: %d\n\n", orDash(g.Title), handle(g.Username), g.ContactsCount)
		}
	} else {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "🕒 Last update: %s", st.LastUpdate)
	return b.String()
}

// ContactAdded is the notice sent to a group's admins for a new contact.
func ContactAdded(c store.Contact) string {
	var b strings.Builder
	b.WriteString("✅ New contact")
	if c.GroupTitle != "" {
		b.WriteString(" from " + c.GroupTitle)
	}
	b.WriteString("\n\n👤 " + orDash(c.DisplayName()) + "\n")
	if c.Username != "" {
		b.WriteString("🔗 @" + c.Username + "\n")
	}
	if c.Phone != nil && *c.Phone != "" {
		b.WriteString("📱 " + *c.Phone + "\n")
	}
	b.WriteString("🆔 " + c.ID)
	return b.String()
}

func handle(username *string) string {
	if username == nil {
		return handleString("")
	}
	return handleString(*username)
}

func handleString(username string) string {
	if username == "" {
		return "no username"
	}
	return "@" + username
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
