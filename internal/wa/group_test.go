package wa

import (
	"errors"
	"testing"

	"github.com/matheus3301/wpp-harvest/internal/command"
	"go.mau.fi/whatsmeow/types"
)

func TestParseGroupRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantJID  string
		wantCode string
		wantErr  bool
	}{
		{"full jid", "120363123456@g.us", "120363123456@g.us", "", false},
		{"bare id", " 120363123456 ", "120363123456@g.us", "", false},
		{"legacy id", "5511999990000-1600000000", "5511999990000-1600000000@g.us", "", false},
		{"invite link", "https://chat.whatsapp.com/AbCdEf123", "", "AbCdEf123", false},
		{"invite link with query", "chat.whatsapp.com/AbC/?s=1", "", "AbC", false},
		{"empty invite", "https://chat.whatsapp.com/", "", "", true},
		{"user jid", "5511999990000@s.whatsapp.net", "", "", true},
		{"name", "my group", "", "", true},
		{"dangling hyphen", "123-", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jid, code, err := ParseGroupRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGroupRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, command.ErrGroupUnavailable) {
					t.Errorf("error %v does not wrap ErrGroupUnavailable", err)
				}
				return
			}
			gotJID := ""
			if !jid.IsEmpty() {
				gotJID = jid.String()
			}
			if gotJID != tt.wantJID || code != tt.wantCode {
				t.Errorf("ParseGroupRef(%q) = (%q, %q), want (%q, %q)", tt.ref, gotJID, code, tt.wantJID, tt.wantCode)
			}
		})
	}
}

func TestGroupInfoFrom(t *testing.T) {
	me := types.NewJID("5511999990000", types.DefaultUserServer)
	myLID := types.NewJID("3917077286968", types.HiddenUserServer)

	info := &types.GroupInfo{
		JID:       types.NewJID("120363123456", types.GroupServer),
		GroupName: types.GroupName{Name: "Buyers"},
		Participants: []types.GroupParticipant{
			{JID: types.NewJID("5511888880000", types.DefaultUserServer), IsAdmin: true},
			{JID: myLID},
			{JID: types.NewJID("5511777770000", types.DefaultUserServer)},
		},
	}

	got := groupInfoFrom(info, []types.JID{me, myLID})
	if got.ID != "120363123456" || got.Title != "Buyers" || got.ParticipantCount != 3 {
		t.Errorf("groupInfoFrom() = %+v", got)
	}
	if got.SelfIsAdmin {
		t.Error("SelfIsAdmin = true for a plain member")
	}

	info.Participants[1].IsAdmin = true
	if !groupInfoFrom(info, []types.JID{me, myLID}).SelfIsAdmin {
		t.Error("SelfIsAdmin = false, want true when our LID is an admin")
	}

	info.Participants[1] = types.GroupParticipant{JID: types.JID{User: me.User, Server: me.Server, Device: 2}, IsSuperAdmin: true}
	if !groupInfoFrom(info, []types.JID{me}).SelfIsAdmin {
		t.Error("SelfIsAdmin = false, want true for a device JID of ours")
	}
}
