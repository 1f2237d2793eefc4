package reply

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/store"
)

func strPtr(s string) *string { return &s }

func TestFormatOutcomes(t *testing.T) {
	tests := []struct {
		name string
		res  command.Result
		want string
	}{
		{"unauthorized", command.Result{Command: command.Stats, Outcome: store.OutcomeUnauthorized}, "not allowed"},
		{"store failure", command.Result{Command: command.Contacts, Outcome: store.OutcomeStoreFailure}, "Something went wrong"},
		{"unknown", command.Result{Command: "x", Outcome: store.OutcomeInvalid, Reason: command.ReasonUnknownCommand}, "Unknown command"},
		{"usage", command.Result{Command: command.Blacklist, Outcome: store.OutcomeInvalid, Reason: command.ReasonUsage}, "/blacklist <id, @username or +phone>"},
		{"start", command.Result{Command: command.Start, Issuer: store.AdminEntry{FirstName: "Ana"}}, "Hi, Ana!"},
		{"help", command.Result{Command: command.Help}, "/add_group"},
		{"group exists", command.Result{Command: command.AddGroup, Outcome: store.OutcomeAlreadyExists}, "already tracked"},
		{"not group admin", command.Result{Command: command.AddGroup, Outcome: store.OutcomeInvalid, Reason: command.ReasonNotGroupAdmin}, "must be an admin"},
		{"group unavailable", command.Result{Command: command.AddGroup, Outcome: store.OutcomeNotFound, Reason: command.ReasonGroupUnavailable}, "Could not get information"},
		{"not harvested", command.Result{Command: command.Blacklist, Outcome: store.OutcomeNotFound, Reason: command.ReasonNotHarvested}, "Only harvested users"},
		{"already blacklisted", command.Result{Command: command.Blacklist, Outcome: store.OutcomeAlreadyExists}, "already blacklisted"},
		{"not blacklisted", command.Result{Command: command.Unblacklist, Outcome: store.OutcomeNotFound}, "not blacklisted"},
		{"no groups", command.Result{Command: command.Groups}, "no groups yet"},
		{"no contacts", command.Result{Command: command.Contacts}, "contact list is empty"},
		{"empty blacklist", command.Result{Command: command.BlacklistList}, "blacklist is empty"},
		{"remove missing group", command.Result{Command: command.RemoveGroup, Outcome: store.OutcomeNotFound}, "not tracked"},
		{"remove missing contact", command.Result{Command: command.RemoveContact, Outcome: store.OutcomeNotFound}, "Contact not found"},
		{"success without payload", command.Result{Command: command.RemoveContact, Outcome: store.OutcomeSuccess}, "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := Format(tt.res)
			if len(msgs) != 1 {
				t.Fatalf("got %d messages, want 1", len(msgs))
			}
			if !strings.Contains(msgs[0], tt.want) {
				t.Errorf("Format() = %q, want it to contain %q", msgs[0], tt.want)
			}
		})
	}
}

func TestFormatAddGroup(t *testing.T) {
	msg := Format(command.Result{
		Command: command.AddGroup,
		Outcome: store.OutcomeSuccess,
		Group:   &store.Group{ID: "1", Title: "Buyers", ParticipantCount: 12},
	})[0]
	for _, want := range []string{"Group added", "Buyers", "Participants: 12", "no username"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestFormatStats(t *testing.T) {
	msg := Format(command.Result{
		Command: command.Stats,
		Outcome: store.OutcomeSuccess,
		Stats: &store.Stats{
			TotalContacts: 3,
			TotalGroups:   1,
			Blacklisted:   1,
			GroupsStats:   []store.GroupStat{{ID: "1", Title: "Buyers", Username: strPtr("buyers"), ContactsCount: 3}},
			LastUpdate:    "14.03.2026 09:26",
		},
	})[0]
	for _, want := range []string{"Contacts added: 3", "Groups tracked: 1", "Blacklisted: 1", "@buyers", "Last update: 14.03.2026 09:26"} {
		if !strings.Contains(msg, want) {
			t.Errorf("stats message %q missing %q", msg, want)
		}
	}
}

func TestFormatLongContactListSplits(t *testing.T) {
	var cs []store.Contact
	for i := 0; i < 400; i++ {
		cs = append(cs, store.Contact{ID: "5511999990000", FirstName: "Someone", LastName: "Long-Name", AddedDate: "2026-03-14 09:26:53"})
	}
	msgs := Format(command.Result{Command: command.Contacts, Outcome: store.OutcomeSuccess, Contacts: cs})
	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want the list split", len(msgs))
	}
	for i, m := range msgs {
		if n := utf8.RuneCountInString(m); n > MaxLen {
			t.Errorf("message %d has %d characters, limit %d", i, n, MaxLen)
		}
	}
	if !strings.HasPrefix(msgs[0], "📋 Harvested contacts") {
		t.Errorf("first chunk starts with %q", msgs[0][:20])
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"lines", "aaa\nbbb\nccc", 8, []string{"aaa\nbbb", "ccc"}},
		{"long line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "ééééé", 2, []string{"éé", "éé", "é"}},
		{"no limit", "abc", 0, []string{"abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Split(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestContactAdded(t *testing.T) {
	msg := ContactAdded(store.Contact{ID: "42", FirstName: "Bob", Phone: strPtr("+5511999990000"), GroupTitle: "Buyers"})
	for _, want := range []string{"from Buyers", "Bob", "+5511999990000", "42"} {
		if !strings.Contains(msg, want) {
			t.Errorf("ContactAdded() = %q, missing %q", msg, want)
		}
	}
}

func TestHelpMarksGatedCommands(t *testing.T) {
	help := Help()
	for _, line := range strings.Split(help, "\n") {
		if !strings.Contains(line, " - ") {
			continue
		}
		name := strings.TrimPrefix(strings.TrimPrefix(line, "🔒 "), "/")
		name, _, _ = strings.Cut(name, " ")
		if got := strings.HasPrefix(line, "🔒 "); got != command.IsGated(name) {
			t.Errorf("/%s marked gated = %v, want %v", name, got, command.IsGated(name))
		}
	}
	for _, want := range []string{"🔒 /stats", "\n/add_group", "\n/groups"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q", want)
		}
	}
}
